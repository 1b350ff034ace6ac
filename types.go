package reconcile

import (
	"context"

	"github.com/shopspring/decimal"
)

// Posting is one posting line of a transaction as reported by a Provider.
type Posting struct {
	Account string
	// Amount as written, unparsed.
	Amount string
	Status Status
	// Line is the 1-based line number of the posting in the ledger file.
	Line int
	// Text is the original line when the provider has it, empty otherwise.
	Text string
}

// Entry is a transaction seen through one account: Postings holds only the
// postings of that account. Line is the 1-based line of the transaction
// header.
type Entry struct {
	Date        string
	Code        string
	Description string
	Line        int
	Postings    []Posting
}

// Provider supplies the accounts and transactions of a ledger file. It is
// implemented by the built-in Scanner and by the external ledger command
// wrapper.
type Provider interface {
	// Accounts returns every account name, sorted.
	Accounts(ctx context.Context) ([]string, error)
	// Uncleared returns the transactions of account having at least one
	// posting of that account which is not cleared.
	Uncleared(ctx context.Context, account string) ([]Entry, error)
	// ClearedPendingBalance sums the cleared and pending postings of account.
	ClearedPendingBalance(ctx context.Context, account string) (decimal.Decimal, error)
}

// ChangeNotifier is told about every successful write, right after it
// happened, so that a file watcher can tell its own writes from foreign ones.
type ChangeNotifier interface {
	MarkInternalChange()
}
