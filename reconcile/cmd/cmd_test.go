package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plenert/reconcile"
)

const cmdLedger = `2024/01/01 * Opening
    Assets:Checking      $1,000.00
    Equity:Opening

2024/01/05 (1001) Grocery Store
    Assets:Checking      $-45.50
    Expenses:Food

2024/01/07 Paycheck
    Assets:Checking      $2,000.00
    Income:Salary

2024/01/09 ! Rent
    Assets:Checking      $-800.00
    Expenses:Rent
`

func writeLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ledger")
	require.NoError(t, os.WriteFile(path, []byte(cmdLedger), 0o644))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, past, past))
	return path
}

func fileLine(t *testing.T, path string, n int) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(string(data), "\n")[n-1]
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"LEDGER_FILE", "LEDGER_RECONCILE_BIN", "LEDGER_RECONCILE_EDITOR"} {
		t.Setenv(k, "")
	}

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAccounts(t *testing.T) {
	path := writeLedger(t)
	want := "Assets:Checking\nEquity:Opening\nExpenses:Food\nExpenses:Rent\nIncome:Salary\n"

	out, _, err := execute(t, "--builtin", "-f", path, "accounts")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	// without the ledger command the file is read directly
	out, _, err = execute(t, "--ledger-bin", filepath.Join(t.TempDir(), "no-ledger"), "-f", path, "accounts")
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestLedgerFileFromEnvironment(t *testing.T) {
	path := writeLedger(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEDGER_FILE", path)

	var stdout bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--builtin", "accounts"})
	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "Income:Salary")
}

func TestLedgerFileErrors(t *testing.T) {
	_, _, err := execute(t, "--builtin", "accounts")
	assert.EqualError(t, err, "no ledger file: use --file or set LEDGER_FILE")

	_, _, err = execute(t, "--builtin", "-f", filepath.Join(t.TempDir(), "missing.ledger"), "accounts")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBalance(t *testing.T) {
	path := writeLedger(t)

	out, _, err := execute(t, "--builtin", "-f", path, "balance", "Assets:Checking")
	require.NoError(t, err)
	assert.Equal(t, "Cleared+Pending: $200.00\n", out)

	out, _, err = execute(t, "--builtin", "-f", path, "balance", "Assets:Checking", "--target", "$154.50")
	require.NoError(t, err)
	assert.Contains(t, out, "Target:          $154.50\n")
	assert.Contains(t, out, "Delta:           -$45.50\n")

	_, _, err = execute(t, "--builtin", "-f", path, "balance", "Assets:Checking", "--target", "lots")
	assert.ErrorContains(t, err, "target")
}

func TestPostings(t *testing.T) {
	path := writeLedger(t)

	out, _, err := execute(t, "--builtin", "-f", path, "postings", "Assets:Checking")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Description")
	assert.Contains(t, lines[1], "Grocery Store")
	assert.Contains(t, lines[1], "1001")
	assert.Contains(t, lines[1], "-$45.50")
	assert.True(t, strings.HasPrefix(lines[1], "·"))
	assert.Contains(t, lines[2], "Paycheck")
	assert.Contains(t, lines[3], "Rent")
	assert.True(t, strings.HasPrefix(lines[3], "!"))

	out, _, err = execute(t, "--builtin", "-f", path, "postings", "Assets:Checking", "--reverse", "-b", "2024/01/06")
	require.NoError(t, err)
	assert.NotContains(t, out, "Grocery Store")
	assert.Less(t, strings.Index(out, "Rent"), strings.Index(out, "Paycheck"))

	out, _, err = execute(t, "--builtin", "-f", path, "postings", "Assets:Checking", "-e", "2024/01/07")
	require.NoError(t, err)
	assert.Contains(t, out, "Paycheck")
	assert.NotContains(t, out, "Rent")

	_, _, err = execute(t, "--builtin", "-f", path, "postings", "Assets:Checking", "-b", "someday")
	assert.ErrorContains(t, err, "unable to parse begin date")
}

func TestPostingsCutsDescription(t *testing.T) {
	path := writeLedger(t)
	out, _, err := execute(t, "--builtin", "-f", path, "postings", "Assets:Checking", "--columns", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Grocery S…")
}

func TestMark(t *testing.T) {
	path := writeLedger(t)

	out, errOut, err := execute(t, "--builtin", "-f", path, "mark", "--from", "", "--to", "pending", "6", "10")
	require.NoError(t, err)
	assert.Equal(t, "Set 2 postings to pending\n", out)
	assert.Contains(t, errOut, "postings updated")
	assert.Equal(t, "    ! Assets:Checking      $-45.50", fileLine(t, path, 6))
	assert.Equal(t, "    ! Assets:Checking      $2,000.00", fileLine(t, path, 10))

	out, _, err = execute(t, "--builtin", "-f", path, "mark", "--from", "!", "--to", "*", "6", "10", "14")
	require.NoError(t, err)
	assert.Equal(t, "Set 3 postings to cleared\n", out)

	out, _, err = execute(t, "--builtin", "-f", path, "postings", "Assets:Checking")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), "only the heading is left")
}

func TestMarkRefused(t *testing.T) {
	path := writeLedger(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, errOut, err := execute(t, "--builtin", "-f", path, "mark", "--from", "pending", "--to", "cleared", "6", "14")
	assert.ErrorIs(t, err, reconcile.ErrStatusMismatch)
	assert.Contains(t, errOut, "update refused")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestMarkTransaction(t *testing.T) {
	path := writeLedger(t)

	out, _, err := execute(t, "--builtin", "-f", path, "mark", "--transaction", "--to", "cleared", "5")
	require.NoError(t, err)
	assert.Equal(t, "Set 1 transactions to cleared\n", out)
	assert.Equal(t, reconcile.Cleared, reconcile.HeaderStatus(fileLine(t, path, 5)))
	assert.Equal(t, "    Assets:Checking      $-45.50", fileLine(t, path, 6))

	_, _, err = execute(t, "--builtin", "-f", path, "mark", "--transaction", "--to", "cleared", "6")
	assert.ErrorIs(t, err, reconcile.ErrNotHeader)
}

func TestMarkTransactionsAllOrNothing(t *testing.T) {
	path := writeLedger(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, errOut, err := execute(t, "--builtin", "-f", path, "mark", "--transaction", "--to", "cleared", "5", "99")
	assert.ErrorIs(t, err, reconcile.ErrLineOutOfRange)
	assert.Contains(t, errOut, "update refused")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	out, _, err := execute(t, "--builtin", "-f", path, "mark", "--transaction", "--to", "cleared", "5", "9")
	require.NoError(t, err)
	assert.Equal(t, "Set 2 transactions to cleared\n", out)
	assert.Equal(t, reconcile.Cleared, reconcile.HeaderStatus(fileLine(t, path, 5)))
	assert.Equal(t, reconcile.Cleared, reconcile.HeaderStatus(fileLine(t, path, 9)))
}

func TestMarkArguments(t *testing.T) {
	path := writeLedger(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing from", []string{"--to", "!", "6"}, "--from is required"},
		{"missing to", []string{"--from", "", "6"}, `required flag(s) "to" not set`},
		{"bad status", []string{"--from", "", "--to", "maybe", "6"}, `unknown status "maybe"`},
		{"bad line", []string{"--from", "", "--to", "!", "six"}, `invalid line number "six"`},
		{"no lines", []string{"--from", "", "--to", "!"}, "requires at least 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--builtin", "-f", path, "mark"}, tt.args...)
			_, _, err := execute(t, args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPromptTarget(t *testing.T) {
	current := decimal.RequireFromString("200")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"keep current", "\n", "200"},
		{"end of input", "", "200"},
		{"amount", "$1,234.50\n", "1234.5"},
		{"retry", "abc\n-$12\n", "-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := promptTarget(strings.NewReader(tt.input), &out, current)
			assert.Equal(t, tt.want, got.String())
			assert.Contains(t, out.String(), "[$200.00]")
		})
	}

	var out bytes.Buffer
	promptTarget(strings.NewReader("abc\n\n"), &out, current)
	assert.Contains(t, out.String(), "Invalid amount")
}

func TestPostingRows(t *testing.T) {
	entries := []reconcile.Entry{
		{Date: "2024/01/09", Line: 9, Postings: []reconcile.Posting{{Line: 10}, {Line: 11, Status: reconcile.Cleared}}},
		{Date: "2024/01/05", Line: 1, Postings: []reconcile.Posting{{Line: 3}, {Line: 2, Status: reconcile.Pending}}},
	}
	rows, err := postingRows(entries, time.Time{}, time.Time{})
	require.NoError(t, err)
	var lines []int
	for _, r := range rows {
		lines = append(lines, r.posting.Line)
	}
	assert.Equal(t, []int{2, 3, 10}, lines)

	_, err = postingRows([]reconcile.Entry{{Date: "Jan 5", Line: 4}}, time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "line 4")
}
