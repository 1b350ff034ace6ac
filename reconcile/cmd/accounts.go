package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Print the accounts of the ledger file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := o.provider().Accounts(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
}
