package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/safe-userop/core/config"
	"github.com/AvaProtocol/safe-userop/relay"
)

const defaultConfigPath = "config/relay.yaml"

// rootCmd represents the base command when called without any subcommands
var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "safe-userop",
		Short: "Safe module user operation relay",
		Long: `Build, sign and submit ERC-4337 v0.7 user operations for a Safe module account
straight to the entry point.

Such as "safe-userop address" to inspect the account or "safe-userop run" to send the
configured token transfer.
`,
		SilenceUsage: true,
	}
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to config file")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// connect loads the config and dials the node.
func connect(ctx context.Context) (*config.Config, *relay.Relay, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	r, err := relay.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r, nil
}
