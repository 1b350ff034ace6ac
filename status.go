// Package reconcile edits the reconciliation markers of a plain-text ledger
// file in place. Only the marker characters of the lines being changed are
// touched; every other byte of the file is written back as it was read.
package reconcile

import (
	"fmt"
	"strings"
)

// Status is the reconciliation state of a posting or a transaction, written
// in the file as an optional one character marker.
type Status string

const (
	Unset   Status = ""
	Pending Status = "!"
	Cleared Status = "*"
)

// ParseStatus accepts a marker ("", "!", "*") or its name ("none", "unset",
// "pending", "cleared").
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unset", "uncleared":
		return Unset, nil
	case "!", "pending":
		return Pending, nil
	case "*", "cleared":
		return Cleared, nil
	}
	return Unset, fmt.Errorf("unknown status %q", s)
}

// Name returns a human readable name for the status.
func (s Status) Name() string {
	switch s {
	case Pending:
		return "pending"
	case Cleared:
		return "cleared"
	}
	return "uncleared"
}

func (s Status) valid() bool {
	return s == Unset || s == Pending || s == Cleared
}

func markerStatus(b byte) Status {
	switch b {
	case '!':
		return Pending
	case '*':
		return Cleared
	}
	return Unset
}
