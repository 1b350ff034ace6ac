package reconcile

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStatus  = errors.New("invalid status")
	ErrLineOutOfRange = errors.New("line out of range")
	ErrNotPosting     = errors.New("not a posting line")
	ErrNotHeader      = errors.New("not a transaction header")
	ErrNoTransaction  = errors.New("no transaction header for posting")
	ErrStatusMismatch = errors.New("posting status differs from expected")
)

// Editor changes reconciliation markers in a ledger file. Every call is one
// full cycle: read the file, validate, rewrite the affected lines in memory
// and write the file back once, refusing to overwrite external changes made
// since the read. A failed call leaves the file untouched.
type Editor struct {
	file     *File
	notifier ChangeNotifier
}

// NewEditor returns an Editor for the ledger at path. notifier may be nil.
func NewEditor(path string, notifier ChangeNotifier) *Editor {
	return &Editor{file: NewFile(path), notifier: notifier}
}

// Path returns the path of the edited ledger file.
func (e *Editor) Path() string {
	return e.file.Path
}

// UpdatePostingsStatus sets the status of the postings at the given 1-based
// lines to status. Every posting must currently have the effective status
// expected, otherwise nothing is written.
//
// Within each affected transaction, when all postings end up with the same
// status the marker is put on the header and removed from the postings;
// otherwise the header marker is removed and every posting carries its own.
func (e *Editor) UpdatePostingsStatus(postings []int, expected, status Status) error {
	if !expected.valid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, expected)
	}
	return e.update(postings, func(current Status) bool { return current == expected }, status)
}

// UpdatePostingStatus sets the status of a single posting whatever its
// current status is.
func (e *Editor) UpdatePostingStatus(posting int, status Status) error {
	return e.update([]int{posting}, func(Status) bool { return true }, status)
}

// UpdateTransactionStatus sets the status of every posting of the
// transaction whose header is at line header. The marker ends up on the
// header alone.
func (e *Editor) UpdateTransactionStatus(header int, status Status) error {
	return e.UpdateTransactionsStatus([]int{header}, status)
}

// UpdateTransactionsStatus is UpdateTransactionStatus for several headers
// at once. Every header is checked before any line changes, and the file is
// written once.
func (e *Editor) UpdateTransactionsStatus(headers []int, status Status) error {
	if len(headers) == 0 {
		return nil
	}
	if !status.valid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	lines, readTime, err := e.file.ReadLines()
	if err != nil {
		return err
	}
	for _, h := range headers {
		if h < 1 || h > len(lines) {
			return fmt.Errorf("%s:%d: %w", e.file.Path, h, ErrLineOutOfRange)
		}
		if Classify(lines[h-1]) != HeaderLine {
			return fmt.Errorf("%s:%d: %w", e.file.Path, h, ErrNotHeader)
		}
	}

	for _, h := range headers {
		postings := TransactionPostings(lines, h)
		if len(postings) == 0 {
			lines[h-1] = SetHeaderStatus(lines[h-1], status)
			continue
		}
		targets := make(map[int]bool, len(postings))
		for _, p := range postings {
			targets[p] = true
		}
		applyStatus(lines, h, targets, status)
	}
	return e.commit(lines, readTime)
}

func (e *Editor) update(postings []int, accept func(current Status) bool, status Status) error {
	if len(postings) == 0 {
		return nil
	}
	if !status.valid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}

	lines, readTime, err := e.file.ReadLines()
	if err != nil {
		return err
	}

	headers, groups, err := e.group(lines, postings, accept)
	if err != nil {
		return err
	}
	for _, h := range headers {
		applyStatus(lines, h, groups[h], status)
	}
	return e.commit(lines, readTime)
}

// group validates every target posting and partitions them by transaction
// header. Headers are returned in order of first appearance.
func (e *Editor) group(lines []string, postings []int, accept func(Status) bool) ([]int, map[int]map[int]bool, error) {
	var headers []int
	groups := make(map[int]map[int]bool)
	members := make(map[int]map[int]bool)

	for _, p := range postings {
		if p < 1 || p > len(lines) {
			return nil, nil, fmt.Errorf("%s:%d: %w", e.file.Path, p, ErrLineOutOfRange)
		}
		if !IsPostingLine(lines[p-1]) {
			return nil, nil, fmt.Errorf("%s:%d: %w", e.file.Path, p, ErrNotPosting)
		}
		h, ok := FindTransaction(lines, p)
		if !ok {
			return nil, nil, fmt.Errorf("%s:%d: %w", e.file.Path, p, ErrNoTransaction)
		}
		if members[h] == nil {
			members[h] = make(map[int]bool)
			for _, q := range TransactionPostings(lines, h) {
				members[h][q] = true
			}
		}
		// the backward and forward scans disagree, e.g. across an
		// un-indented line inside the paragraph
		if !members[h][p] {
			return nil, nil, fmt.Errorf("%s:%d: %w", e.file.Path, p, ErrNoTransaction)
		}
		if current := EffectiveStatus(lines, p, h); !accept(current) {
			return nil, nil, fmt.Errorf("%s:%d: %w: posting is %s", e.file.Path, p, ErrStatusMismatch, current.Name())
		}

		if groups[h] == nil {
			groups[h] = make(map[int]bool)
			headers = append(headers, h)
		}
		groups[h][p] = true
	}
	return headers, groups, nil
}

// applyStatus rewrites the header and postings of one transaction so that
// the targets get status and the other postings keep their effective
// status, in normalized form.
func applyStatus(lines []string, header int, targets map[int]bool, status Status) {
	postings := TransactionPostings(lines, header)
	final := make([]Status, len(postings))
	uniform := true
	for i, p := range postings {
		final[i] = EffectiveStatus(lines, p, header)
		if targets[p] {
			final[i] = status
		}
		if final[i] != final[0] {
			uniform = false
		}
	}

	if uniform && len(postings) > 0 {
		lines[header-1] = SetHeaderStatus(lines[header-1], final[0])
		for _, p := range postings {
			lines[p-1] = SetPostingStatus(lines[p-1], Unset)
		}
		return
	}
	lines[header-1] = SetHeaderStatus(lines[header-1], Unset)
	for i, p := range postings {
		lines[p-1] = SetPostingStatus(lines[p-1], final[i])
	}
}

func (e *Editor) commit(lines []string, readTime time.Time) error {
	if err := e.file.WriteLines(lines, readTime); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.MarkInternalChange()
	}
	return nil
}
