package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/safe-userop/core/auth"
	"github.com/AvaProtocol/safe-userop/core/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign the auth service login message",
	Long: `Fetch the login message for the owner address from auth_server_url and sign it with
the owner key. Prints the signature and the authorization header to use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.AuthServerUrl == "" {
			return fmt.Errorf("auth_server_url is not configured")
		}

		cred, err := auth.NewClient(cfg.AuthServerUrl, cfg.Logger).Login(commandContext(cmd), cfg.PrivateKey)
		if err != nil {
			return err
		}
		if err := cred.Verify(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Address:       %s\n", cred.Address.Hex())
		fmt.Fprintf(w, "Message:       %s\n", cred.Message)
		fmt.Fprintf(w, "Signature:     %s\n", cred.Signature)
		fmt.Fprintf(w, "Authorization: %s\n", cred.AuthorizationHeader())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
