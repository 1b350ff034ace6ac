package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/balance"
	"github.com/plenert/reconcile/reconcile/selector"
	"github.com/plenert/reconcile/reconcile/tui"
	"github.com/plenert/reconcile/reconcile/watch"
)

func runInteractive(cmd *cobra.Command, o *options, account, target string) error {
	ctx := cmd.Context()
	file := o.cfg.LedgerFile
	p := o.provider()

	accounts, err := p.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("no accounts found in ledger file")
	}

	if account == "" {
		account, err = o.pick(ctx, accounts, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if account == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No account selected.")
			return nil
		}
	}
	if !slices.Contains(accounts, account) {
		return fmt.Errorf("account %q not found in ledger file", account)
	}

	current, err := p.ClearedPendingBalance(ctx, account)
	if err != nil {
		return err
	}
	var goal decimal.Decimal
	if target != "" {
		if goal, err = balance.Parse(target); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	} else {
		goal = promptTarget(cmd.InOrStdin(), cmd.OutOrStdout(), current)
	}

	var program *tea.Program
	w := watch.New(file, func() { program.Send(tui.FileChangedMsg{}) },
		watch.WithSettle(o.cfg.Settle),
		watch.WithInterval(o.cfg.ReloadInterval),
		watch.WithLogger(o.log))

	pending, cleared := o.cfg.Colors()
	program = tea.NewProgram(tui.New(tui.Options{
		Provider:      p,
		Editor:        reconcile.NewEditor(file, w),
		Account:       account,
		Target:        goal,
		EditorCommand: o.cfg.Editor,
		Pick:          o.pick,
		PendingColor:  pending,
		ClearedColor:  cleared,
		Log:           o.log,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := w.Start(wctx); err != nil {
		return err
	}
	defer w.Close()

	o.log.Info().Str("file", file).Str("account", account).Msg("reconciling")
	_, err = program.Run()
	return err
}

// pick runs the account selector. A canceled selection is an empty account.
func (o *options) pick(ctx context.Context, accounts []string, in io.Reader, out io.Writer) (string, error) {
	s := selector.New(accounts, o.cfg.FZF)
	s.In, s.Out = in, out
	account, err := s.Select(ctx, "Select account to reconcile")
	if errors.Is(err, selector.ErrCanceled) {
		return "", nil
	}
	return account, err
}

// promptTarget asks for the statement balance until it parses. An empty
// answer, or the end of input, keeps current.
func promptTarget(in io.Reader, out io.Writer, current decimal.Decimal) decimal.Decimal {
	r := bufio.NewScanner(in)
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	for {
		bold.Fprint(out, "Target balance")
		fmt.Fprintf(out, " [%s]: ", balance.Format(current))
		if !r.Scan() {
			fmt.Fprintln(out)
			return current
		}
		answer := strings.TrimSpace(r.Text())
		if answer == "" {
			return current
		}
		v, err := balance.Parse(answer)
		if err != nil {
			red.Fprintf(out, "Invalid amount: %v\n", err)
			continue
		}
		return v
	}
}
