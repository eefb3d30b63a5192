package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var typedDataCmd = &cobra.Command{
	Use:   "typed-data",
	Short: "Build and sign the transfer operation without sending it",
	Long: `Print, as JSON, the operation signed for the entry point together with its SafeOp
typed-data envelope and the owner's typed-data signature. The typed data is bound to the
module account and typed_data.chain_id from the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		_, r, err := connect(ctx)
		if err != nil {
			return err
		}

		out, err := r.SignOperation(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(typedDataCmd)
}
