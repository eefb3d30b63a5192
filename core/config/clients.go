package config

import (
	"github.com/Layr-Labs/eigensdk-go/chainio/clients/eth"
	rpccalls "github.com/Layr-Labs/eigensdk-go/metrics/collectors/rpc_calls"
	"github.com/prometheus/client_golang/prometheus"
)

const AppName = "safe-userop"

// NewEthClient dials the configured node. When reg is non-nil every rpc call is counted
// through the eigen sdk rpc collector.
func (c *Config) NewEthClient(reg prometheus.Registerer) (eth.Client, error) {
	if reg != nil && c.EnableMetrics {
		rpcCallsCollector := rpccalls.NewCollector(AppName, reg)
		return eth.NewInstrumentedClient(c.EthRpcUrl, rpcCallsCollector)
	}
	return eth.NewClient(c.EthRpcUrl)
}
