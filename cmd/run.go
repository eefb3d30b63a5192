package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
	"github.com/AvaProtocol/safe-userop/relay"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the configured token transfer as a user operation",
	Long: `Derive the module account of the configured Safe, mint tokens to the Safe when it
holds none, then build, sign and submit one user operation that transfers the configured
amount to the recipient. The command waits for one confirmation.

The module account must already be enabled on the Safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg, r, err := connect(ctx)
		if err != nil {
			return err
		}

		if errC := r.StartMetrics(ctx); errC != nil {
			go func() {
				for err := range errC {
					cfg.Logger.Error("metrics server stopped", "err", err)
				}
			}()
		}

		summary, err := r.Run(ctx)
		printRunSummary(cmd.OutOrStdout(), summary, err)
		return err
	},
}

func printRunSummary(w io.Writer, s *relay.RunSummary, runErr error) {
	fmt.Fprintf(w, "📨 User Operation Run\n")
	fmt.Fprintf(w, "=====================\n\n")

	if s != nil {
		fmt.Fprintf(w, "🆔 Run:            %s (%s)\n", s.RunID, s.State)
		fmt.Fprintf(w, "👛 Sender:         %s\n", s.Sender.Hex())
		if s.UserOpHash != (common.Hash{}) {
			fmt.Fprintf(w, "🔑 UserOp hash:    %s\n", s.UserOpHash.Hex())
		}
		if s.Minted {
			fmt.Fprintf(w, "🪙 Minted tokens to the Safe before the transfer\n")
		}
		if s.BalanceBefore != "" {
			fmt.Fprintf(w, "💰 Balance before: %s\n", s.BalanceBefore)
		}
		if s.TxHash != (common.Hash{}) {
			fmt.Fprintf(w, "⛓️  Transaction:    %s\n", s.TxHash.Hex())
		}
		if s.TxURL != "" {
			fmt.Fprintf(w, "   %s\n", s.TxURL)
		}
		for _, ev := range s.Events {
			fmt.Fprintf(w, "📋 Event: success=%t gas_used=%s gas_cost=%s\n", ev.Success, ev.ActualGasUsed, ev.ActualGasCost)
		}
		if s.BalanceAfter != "" {
			fmt.Fprintf(w, "💰 Balance after:  %s\n", s.BalanceAfter)
		}
		fmt.Fprintln(w)
	}

	if runErr == nil {
		fmt.Fprintf(w, "✅ Confirmed\n")
		return
	}

	fmt.Fprintf(w, "❌ %v\n", runErr)
	var se *preset.StageError
	if errors.As(runErr, &se) {
		fmt.Fprintf(w, "   stage: %s\n", se.Stage)
		if len(se.Raw) > 0 {
			fmt.Fprintf(w, "   revert data: 0x%x\n", se.Raw)
		}
		if se.Revert != nil && se.Revert.IsSignatureFailure() {
			fmt.Fprintf(w, "   💡 The entry point rejected the signature: check that the key owns the module account\n")
		}
	}
	if errors.Is(runErr, preset.ErrModuleNotEnabled) {
		fmt.Fprintf(w, "   💡 Enable the module account on the Safe first\n")
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
