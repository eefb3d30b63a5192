package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/safe-userop/core/config"
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Fund the paymaster after a redeploy",
	Long: `Deposit funding.deposit_amount ether into the entry point on behalf of the paymaster
and send the same amount to the paymaster address. Only needed when the paymaster was
redeployed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg, r, err := connect(ctx)
		if err != nil {
			return err
		}

		hashes, err := r.FundPaymaster(ctx)
		w := cmd.OutOrStdout()
		for _, h := range hashes {
			fmt.Fprintf(w, "✅ %s\n", h.Hex())
		}
		if err != nil {
			fmt.Fprintf(w, "❌ %v\n", err)
			return err
		}
		fmt.Fprintf(w, "Paymaster %s funded with %s ETH\n", cfg.Paymaster.Hex(), config.FormatUnits(cfg.DepositAmount, 18))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
}
