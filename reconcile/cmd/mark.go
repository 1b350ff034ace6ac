package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plenert/reconcile"
)

func newMarkCmd(o *options) *cobra.Command {
	var from, to string
	var transaction bool

	markCmd := &cobra.Command{
		Use:   "mark --to STATUS [--from STATUS] LINE...",
		Short: "Change the status of postings by line number",
		Long: `Change the status of postings by line number.

STATUS is one of "" (or none), ! (or pending) and * (or cleared). All
postings must have the --from status, otherwise the file is left untouched.
With --transaction, LINE is the header line of a transaction and every
posting of it is set.`,
		Example: `  ledger-reconcile mark --from '' --to '!' 12 15
  ledger-reconcile mark --from pending --to cleared 12 15 31
  ledger-reconcile mark --transaction --to cleared 11`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid line number %q", a)
				}
				lines[i] = n
			}
			status, err := reconcile.ParseStatus(to)
			if err != nil {
				return err
			}

			file := o.cfg.LedgerFile
			editor := reconcile.NewEditor(file, nil)
			log := o.log.With().Str("file", file).Ints("lines", lines).Str("to", status.Name()).Logger()

			if transaction {
				if err := editor.UpdateTransactionsStatus(lines, status); err != nil {
					log.Warn().Err(err).Msg("update refused")
					return err
				}
				log.Info().Msg("transactions updated")
				fmt.Fprintf(cmd.OutOrStdout(), "Set %d transactions to %s\n", len(lines), status.Name())
				return nil
			}

			if !cmd.Flags().Changed("from") {
				return errors.New("--from is required unless --transaction is given")
			}
			expected, err := reconcile.ParseStatus(from)
			if err != nil {
				return err
			}
			if err := editor.UpdatePostingsStatus(lines, expected, status); err != nil {
				log.Warn().Err(err).Str("from", expected.Name()).Msg("update refused")
				return err
			}
			log.Info().Str("from", expected.Name()).Msg("postings updated")
			fmt.Fprintf(cmd.OutOrStdout(), "Set %d postings to %s\n", len(lines), status.Name())
			return nil
		},
	}

	markCmd.Flags().StringVar(&from, "from", "", "Status the postings must have now.")
	markCmd.Flags().StringVar(&to, "to", "", "New status.")
	markCmd.Flags().BoolVar(&transaction, "transaction", false, "Lines are transaction headers.")
	_ = markCmd.MarkFlagRequired("to")
	return markCmd
}
