package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	date "github.com/joyt/godate"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/balance"
)

const (
	transactionDateFormat = "2006/01/02"
	newLine               = "\n"
)

// postingRow is one uncleared posting with its transaction.
type postingRow struct {
	date    time.Time
	entry   reconcile.Entry
	posting reconcile.Posting
}

func newPostingsCmd(o *options) *cobra.Command {
	var startString, endString string
	var columnWidth int
	var reverse bool

	postingsCmd := &cobra.Command{
		Use:   "postings ACCOUNT",
		Short: "Print the uncleared postings of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end time.Time
			var err error
			if startString != "" {
				if start, err = date.Parse(startString); err != nil {
					return fmt.Errorf("unable to parse begin date %q: %w", startString, err)
				}
			}
			if endString != "" {
				if end, err = date.Parse(endString); err != nil {
					return fmt.Errorf("unable to parse end date %q: %w", endString, err)
				}
			}

			entries, err := o.provider().Uncleared(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := postingRows(entries, day(start), day(end))
			if err != nil {
				return err
			}
			if reverse {
				slices.Reverse(rows)
			}

			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("columns") {
				columnWidth = terminalWidth(out, columnWidth)
			}
			printPostings(out, rows, columnWidth, isTerminal(out))
			return nil
		},
	}

	postingsCmd.Flags().StringVarP(&startString, "begin", "b", "", "Begin date of transaction processing.")
	postingsCmd.Flags().StringVarP(&endString, "end", "e", "", "End date of transaction processing.")
	postingsCmd.Flags().IntVar(&columnWidth, "columns", 80, "Set a column width for output.")
	postingsCmd.Flags().BoolVar(&reverse, "reverse", false, "Newest transactions first.")
	return postingsCmd
}

// postingRows flattens entries into rows sorted by date, keeping those
// dated within [start, end]. Zero bounds are open.
func postingRows(entries []reconcile.Entry, start, end time.Time) ([]postingRow, error) {
	var rows []postingRow
	for _, e := range entries {
		d, err := time.Parse(transactionDateFormat, e.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: unable to parse date(%s): %w", e.Line, e.Date, err)
		}
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		for _, p := range e.Postings {
			if p.Status == reconcile.Cleared {
				continue
			}
			rows = append(rows, postingRow{date: d, entry: e, posting: p})
		}
	}
	slices.SortStableFunc(rows, func(a, b postingRow) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}
		return a.posting.Line - b.posting.Line
	})
	return rows, nil
}

// day drops the time and zone of t, keeping its calendar date.
func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	tw, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return fallback
	}
	return tw
}

// printPostings writes rows as columns: status, line, date, check, amount
// and description, the description cut to fit in columns.
func printPostings(w io.Writer, rows []postingRow, columns int, colored bool) {
	colorPending := color.New(color.FgYellow)
	colorNeg := color.New(color.FgRed)
	colorDim := color.New(color.Faint)
	for _, c := range []*color.Color{colorPending, colorNeg, colorDim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	lineWidth, codeWidth := len("Line"), len("Check")
	for _, r := range rows {
		lineWidth = max(lineWidth, len(strconv.Itoa(r.posting.Line)))
		codeWidth = max(codeWidth, utf8.RuneCountInString(r.entry.Code))
	}
	const amountWidth = 13
	// mark, line, date, check, amount and the spaces between them
	fixed := 1 + lineWidth + 10 + codeWidth + amountWidth + 5*2
	descWidth := columns - fixed
	if descWidth < 10 {
		descWidth = 10
	}

	buf := bufio.NewWriter(w)
	colorDim.Fprintf(buf, "%s  %*s  %-10s  %-*s  %*s  %s"+newLine,
		" ", lineWidth, "Line", "Date", codeWidth, "Check", amountWidth, "Amount", "Description")

	for _, r := range rows {
		mark := "·"
		if r.posting.Status == reconcile.Pending {
			mark = "!"
		}
		amount := r.posting.Amount
		negative := strings.Contains(amount, "-")
		if v, err := balance.Parse(amount); err == nil {
			amount = balance.FormatAligned(v)
			negative = v.IsNegative()
		}
		amount = fmt.Sprintf("%*s", amountWidth, amount)
		if negative {
			amount = colorNeg.Sprint(amount)
		}

		desc := r.entry.Description
		if utf8.RuneCountInString(desc) > descWidth {
			desc = string([]rune(desc)[:descWidth-1]) + "…"
		}

		line := fmt.Sprintf("%s  %*d  %s  %-*s  %s  %s",
			mark, lineWidth, r.posting.Line, r.date.Format(transactionDateFormat),
			codeWidth, r.entry.Code, amount, desc)
		if r.posting.Status == reconcile.Pending {
			colorPending.Fprint(buf, line)
		} else {
			buf.WriteString(line)
		}
		buf.WriteString(newLine)
	}
	buf.Flush()
}
