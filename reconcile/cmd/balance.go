package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plenert/reconcile/reconcile/balance"
)

func newBalanceCmd(o *options) *cobra.Command {
	var target string

	balanceCmd := &cobra.Command{
		Use:   "balance ACCOUNT",
		Short: "Print the cleared and pending balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := o.provider().ClearedPendingBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cleared+Pending: %s\n", balance.Format(current))
			if target == "" {
				return nil
			}
			goal, err := balance.Parse(target)
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}
			fmt.Fprintf(out, "Target:          %s\n", balance.Format(goal))
			fmt.Fprintf(out, "Delta:           %s\n", balance.Format(balance.Delta(goal, current)))
			return nil
		},
	}

	balanceCmd.Flags().StringVarP(&target, "target", "t", "", "Statement balance to compare with.")
	return balanceCmd
}
