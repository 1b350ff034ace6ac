package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alfredxing/calc/compute"
	date "github.com/joyt/godate"
	"github.com/shopspring/decimal"
)

const entryDateFormat = "2006/01/02"

var (
	codeDescription = regexp.MustCompile(`^\((.*?)\)\s*(.*)$`)
	postingParts    = regexp.MustCompile(`^(.+?)(?:(?:\s{2,}|\t)\s*(.*?))?\s*$`)
	amountParts     = regexp.MustCompile(`^(-)?\s*([^\d\s\-.,()]+)?\s*(-)?\s*(\d[\d,]*(?:\.\d+)?|\.\d+)\s*([^\d\s\-.,()]+)?$`)
)

// Scanner is a Provider reading transactions straight from the ledger file
// with the line classifier, for use when the ledger command is not
// available. It understands dated transactions with indented postings; other
// directives are skipped.
type Scanner struct {
	File *File
}

// NewScanner returns a Scanner for the ledger at path.
func NewScanner(path string) *Scanner {
	return &Scanner{File: NewFile(path)}
}

type scannedPosting struct {
	account   string
	amount    string
	commodity string
	balance   decimal.Decimal
	elided    bool
	status    Status
	line      int
	text      string
}

type scannedTransaction struct {
	date        string
	code        string
	description string
	line        int
	postings    []scannedPosting
}

// Accounts returns every account used by a posting, sorted.
func (s *Scanner) Accounts(_ context.Context) ([]string, error) {
	txs, err := s.scan()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var accounts []string
	for _, t := range txs {
		for _, p := range t.postings {
			if !seen[p.account] {
				seen[p.account] = true
				accounts = append(accounts, p.account)
			}
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// Uncleared returns, in file order, the transactions having postings to
// account whose effective status is not cleared.
func (s *Scanner) Uncleared(_ context.Context, account string) ([]Entry, error) {
	txs, err := s.scan()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, t := range txs {
		var postings []Posting
		for _, p := range t.postings {
			if p.account != account || p.status == Cleared {
				continue
			}
			postings = append(postings, Posting{
				Account: p.account,
				Amount:  p.amount,
				Status:  p.status,
				Line:    p.line,
				Text:    p.text,
			})
		}
		if len(postings) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Date:        t.date,
			Code:        t.code,
			Description: t.description,
			Line:        t.line,
			Postings:    postings,
		})
	}
	return entries, nil
}

// ClearedPendingBalance sums the postings to account whose effective status
// is pending or cleared.
func (s *Scanner) ClearedPendingBalance(_ context.Context, account string) (decimal.Decimal, error) {
	txs, err := s.scan()
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range txs {
		for _, p := range t.postings {
			if p.account == account && p.status != Unset {
				total = total.Add(p.balance)
			}
		}
	}
	return total, nil
}

type fileScan struct {
	name  string
	lines []string

	dateLayout  string
	strPrevDate string
	prevDate    time.Time
	prevDateErr error
}

func (s *Scanner) scan() ([]*scannedTransaction, error) {
	lines, _, err := s.File.ReadLines()
	if err != nil {
		return nil, err
	}
	sc := fileScan{name: s.File.Path, lines: lines, dateLayout: entryDateFormat}

	var txs []*scannedTransaction
	for i, l := range lines {
		if Classify(l) != HeaderLine {
			continue
		}
		t, err := sc.transaction(i + 1)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (sc *fileScan) parseDate(dateString string) (transDate time.Time, err error) {
	// seen before, skip parse
	if sc.strPrevDate == dateString {
		return sc.prevDate, sc.prevDateErr
	}

	transDate, err = time.Parse(sc.dateLayout, dateString)
	if err != nil {
		transDate, sc.dateLayout, err = date.ParseAndGetLayout(dateString)
		if err != nil {
			err = fmt.Errorf("unable to parse date(%s): %w", dateString, err)
		}
	}

	sc.strPrevDate = dateString
	sc.prevDate = transDate
	sc.prevDateErr = err
	return
}

func (sc *fileScan) transaction(header int) (*scannedTransaction, error) {
	body, _ := splitEOL(sc.lines[header-1])
	m := headerParts.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return nil, fmt.Errorf("%s:%d: unable to parse transaction header", sc.name, header)
	}
	transDate, err := sc.parseDate(m[1])
	if err != nil {
		return nil, fmt.Errorf("%s:%d: unable to parse transaction: %w", sc.name, header, err)
	}

	t := &scannedTransaction{
		date: transDate.Format(entryDateFormat),
		line: header,
	}
	description, _ := cutComment(m[3])
	if cm := codeDescription.FindStringSubmatch(description); cm != nil {
		t.code, description = cm[1], cm[2]
	}
	t.description = description

	for _, n := range TransactionPostings(sc.lines, header) {
		p, err := parsePosting(sc.lines[n-1])
		if errors.Is(err, errNoAccount) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: unable to parse posting: %w", sc.name, n, err)
		}
		p.line = n
		p.status = EffectiveStatus(sc.lines, n, header)
		t.postings = append(t.postings, p)
	}
	t.inferElided()
	return t, nil
}

// errNoAccount marks a posting line holding only a marker or a comment.
var errNoAccount = errors.New("posting without account")

func parsePosting(line string) (p scannedPosting, err error) {
	body, _ := splitEOL(line)
	p.text = body

	trimmed := strings.TrimSpace(body)
	if markerStatus(trimmed[0]) != Unset {
		trimmed = strings.TrimSpace(trimmed[1:])
	}
	trimmed, _ = cutComment(trimmed)
	if trimmed == "" {
		return p, errNoAccount
	}

	m := postingParts.FindStringSubmatch(trimmed)
	if m == nil {
		return p, fmt.Errorf("invalid posting: %q", trimmed)
	}
	p.account = m[1]
	p.amount = m[2]
	if p.amount == "" {
		p.elided = true
		return p, nil
	}
	p.balance, p.commodity, err = parseAmount(p.amount)
	return p, err
}

// parseAmount returns the value and commodity of a posting amount. Prices
// and balance assertions following the amount are ignored.
func parseAmount(s string) (decimal.Decimal, string, error) {
	if i := strings.IndexAny(s, "@="); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	if strings.HasPrefix(s, "(") {
		var commodity string
		expr := strings.Map(func(r rune) rune {
			if strings.ContainsRune("0123456789.+-*/() ", r) {
				return r
			}
			if r != ',' && commodity == "" {
				commodity = string(r)
			}
			return -1
		}, s)
		v, err := compute.Evaluate(expr)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("invalid amount expression %q: %w", s, err)
		}
		return decimal.NewFromFloat(v), commodity, nil
	}

	m := amountParts.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, "", fmt.Errorf("invalid amount %q", s)
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(m[4], ",", ""))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if (m[1] == "-") != (m[3] == "-") {
		v = v.Neg()
	}
	commodity := m[2]
	if commodity == "" {
		commodity = m[5]
	}
	return v, commodity, nil
}

// inferElided gives a single posting without amount the negated sum of the
// others, the way ledger does. Transactions mixing commodities, or with more
// than one elided posting, are left as they are.
func (t *scannedTransaction) inferElided() {
	transBal := decimal.Zero
	var numEmpty, emptyIdx int
	var commodity string

	for i, p := range t.postings {
		if p.elided {
			numEmpty++
			emptyIdx = i
			continue
		}
		if commodity != "" && p.commodity != commodity {
			return
		}
		commodity = p.commodity
		transBal = transBal.Add(p.balance)
	}

	if numEmpty != 1 {
		return
	}
	p := &t.postings[emptyIdx]
	p.balance = transBal.Neg()
	p.amount = commodity + p.balance.StringFixed(2)
}

func cutComment(s string) (string, string) {
	if i := strings.Index(s, ";"); i >= 0 {
		return strings.TrimSpace(s[:i]), s[i:]
	}
	return strings.TrimSpace(s), ""
}
