// Package ledgercli queries a ledger file through the ledger command line
// tool.
package ledgercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/balance"
	"github.com/plenert/reconcile/reconcile/sexp"
)

const (
	transactionDateFormat = "2006/01/02"
	accountsKey           = "accounts"
)

// ErrMalformedRecord is returned when the output of "ledger emacs" does not
// have the expected shape.
var ErrMalformedRecord = errors.New("malformed ledger emacs record")

// Client runs the ledger binary against one file. It implements
// reconcile.Provider.
type Client struct {
	Bin  string
	File string

	cache *cache.Cache
	log   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCacheTTL sets how long the account list is kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache.New(ttl, 2*ttl)
	}
}

// WithLogger sets the logger used for command traces.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New returns a Client running bin on file.
func New(bin, file string, opts ...Option) *Client {
	c := &Client{
		Bin:   bin,
		File:  file,
		cache: cache.New(5*time.Minute, 10*time.Minute),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the ledger binary can be found.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.Bin)
	return err == nil
}

// Invalidate drops the cached account list, to be called when the file
// changed behind our back.
func (c *Client) Invalidate() {
	c.cache.Flush()
}

// Accounts returns the sorted account names of the file. The list is cached.
// A failing ledger run yields no accounts.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	if v, ok := c.cache.Get(accountsKey); ok {
		return v.([]string), nil
	}

	out, ok, err := c.run(ctx, "accounts")
	if err != nil || !ok {
		return nil, err
	}
	var accounts []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			accounts = append(accounts, l)
		}
	}
	sort.Strings(accounts)
	c.cache.SetDefault(accountsKey, accounts)
	return accounts, nil
}

// Uncleared returns the transactions with uncleared postings to account.
func (c *Client) Uncleared(ctx context.Context, account string) ([]reconcile.Entry, error) {
	out, ok, err := c.run(ctx, "--uncleared", "emacs", account)
	if err != nil || !ok {
		return nil, err
	}
	return ParseEmacs(out)
}

// ClearedPendingBalance returns the balance of account over cleared and
// pending postings. A failing ledger run or empty report is zero.
func (c *Client) ClearedPendingBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	out, ok, err := c.run(ctx, "--limit", "cleared or pending", "balance", account)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	// first line is "    $1,234.56  Account:Name"
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return decimal.Zero, nil
	}
	v, err := balance.Parse(fields[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("unexpected balance output %q: %w", first, err)
	}
	return v, nil
}

// run executes ledger with args appended to the common options. ok is false
// when ledger exited with an error status, which it does for empty files and
// unknown accounts.
func (c *Client) run(ctx context.Context, args ...string) (out string, ok bool, err error) {
	args = append([]string{
		"-f", c.File,
		"--no-aliases",
		"--no-pager",
		"--price-db", "/dev/null",
	}, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	c.log.Debug().Str("bin", c.Bin).Strs("args", args).Dur("took", time.Since(start)).Err(err).Msg("ledger")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		c.log.Debug().Str("stderr", strings.TrimSpace(stderr.String())).Msg("ledger failed")
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("unable to run %s: %w", c.Bin, err)
	}
	return stdout.String(), true, nil
}

// ParseEmacs decodes the output of "ledger emacs". Each transaction is
//
//	(FILE LINE (HIGH LOW USEC) CODE PAYEE POSTING...)
//
// and each posting (LINE ACCOUNT AMOUNT STATE [NOTE]).
func ParseEmacs(out string) ([]reconcile.Entry, error) {
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	v, err := sexp.Parse(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	records, ok := v.([]any)
	if !ok {
		return nil, malformed(v, "top level is not a list")
	}

	entries := make([]reconcile.Entry, 0, len(records))
	for _, r := range records {
		e, err := entry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entry(v any) (e reconcile.Entry, err error) {
	fields, ok := v.([]any)
	if !ok || len(fields) < 5 {
		return e, malformed(v, "transaction needs at least 5 fields")
	}
	if e.Line, ok = fields[1].(int); !ok {
		return e, malformed(v, "line is not an integer")
	}
	if e.Date, err = emacsDate(fields[2]); err != nil {
		return e, malformed(v, err.Error())
	}
	switch code := fields[3].(type) {
	case nil:
	case string:
		e.Code = code
	default:
		return e, malformed(v, "code is not a string")
	}
	switch payee := fields[4].(type) {
	case nil:
	case string:
		e.Description = payee
	default:
		return e, malformed(v, "payee is not a string")
	}

	for _, p := range fields[5:] {
		posting, err := emacsPosting(p)
		if err != nil {
			return e, malformed(v, err.Error())
		}
		e.Postings = append(e.Postings, posting)
	}
	return e, nil
}

// emacsDate converts an emacs time triple to a local date.
func emacsDate(v any) (string, error) {
	t, ok := v.([]any)
	if !ok || len(t) < 2 {
		return "", errors.New("date is not a time triple")
	}
	high, ok1 := t[0].(int)
	low, ok2 := t[1].(int)
	if !ok1 || !ok2 {
		return "", errors.New("date is not a time triple")
	}
	return time.Unix(int64(high)*65536+int64(low), 0).Local().Format(transactionDateFormat), nil
}

func emacsPosting(v any) (p reconcile.Posting, err error) {
	fields, ok := v.([]any)
	if !ok || len(fields) < 3 {
		return p, errors.New("posting needs at least 3 fields")
	}
	if p.Line, ok = fields[0].(int); !ok {
		return p, errors.New("posting line is not an integer")
	}
	if p.Account, ok = fields[1].(string); !ok {
		return p, errors.New("posting account is not a string")
	}
	if p.Amount, ok = fields[2].(string); !ok {
		return p, errors.New("posting amount is not a string")
	}
	if len(fields) > 3 {
		if p.Status, err = emacsState(fields[3]); err != nil {
			return p, err
		}
	}
	return p, nil
}

func emacsState(v any) (reconcile.Status, error) {
	switch v {
	case nil:
		return reconcile.Unset, nil
	case sexp.Symbol("pending"):
		return reconcile.Pending, nil
	case sexp.Symbol("cleared"), sexp.Symbol("t"):
		return reconcile.Cleared, nil
	}
	return reconcile.Unset, fmt.Errorf("unknown posting state %s", sexp.String(v))
}

func malformed(v any, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedRecord, reason, sexp.String(v))
}
