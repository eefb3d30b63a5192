package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the module account derived for the configured Safe",
	Long: `Ask the entry point for the counterfactual address of the module account and
report whether it is deployed, enabled on the Safe, its nonce and its entry point deposit.
Nothing is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		_, r, err := connect(ctx)
		if err != nil {
			return err
		}

		info, err := r.Account(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Owner:          %s\n", info.Owner.Hex())
		fmt.Fprintf(w, "Safe:           %s\n", info.Safe.Hex())
		fmt.Fprintf(w, "Factory:        %s\n", info.Factory.Hex())
		fmt.Fprintf(w, "Module account: %s\n", info.Sender.Hex())
		fmt.Fprintf(w, "Init code:      %s\n", info.InitCode)
		fmt.Fprintf(w, "Deployed:       %t\n", info.Deployed)
		fmt.Fprintf(w, "Module enabled: %t\n", info.ModuleEnabled)
		fmt.Fprintf(w, "Nonce:          %s\n", info.Nonce)
		fmt.Fprintf(w, "Deposit:        %s wei\n", info.Deposit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
