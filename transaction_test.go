package reconcile

import (
	"reflect"
	"testing"
)

var boundaryLedger = splitLines(`; opening
2024-01-01 Opening Balance
    Assets:Checking              $1000.00
    ; funded from savings
    Equity:Opening Balances

2024-01-02 ! Grocery Store
    Expenses:Food                 $45.67
    * CC:Visa                    -$45.67
2024-01-03 Coffee
    Expenses:Food                  $3.00
    CC:Visa
account Assets:Checking
    note a directive body

    Orphan:Posting                $1.00
`)

func TestFindTransaction(t *testing.T) {
	tests := []struct {
		name    string
		posting int
		want    int
		wantOk  bool
	}{
		{"first posting", 3, 2, true},
		{"after comment", 5, 2, true},
		{"marked header", 9, 7, true},
		{"header without blank separation", 12, 10, true},
		{"directive body reaches previous header", 14, 10, true},
		{"blank line before header", 16, 0, false},
		{"header line itself walks back to blank", 7, 0, false},
		{"first line", 1, 0, false},
		{"out of range", 17, 0, false},
		{"zero", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindTransaction(boundaryLedger, tt.posting)
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("FindTransaction(%d) = %d, %v, want %d, %v", tt.posting, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestTransactionPostings(t *testing.T) {
	tests := []struct {
		name   string
		header int
		want   []int
	}{
		{"skips indented comment, stops at blank", 2, []int{3, 5}},
		{"stops at next header", 7, []int{8, 9}},
		{"stops at un-indented line", 10, []int{11, 12}},
		{"last line", 17, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransactionPostings(boundaryLedger, tt.header)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TransactionPostings(%d) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	tests := []struct {
		name    string
		posting int
		header  int
		want    Status
	}{
		{"unmarked everywhere", 3, 2, Unset},
		{"inherits header", 8, 7, Pending},
		{"own marker wins", 9, 7, Cleared},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveStatus(boundaryLedger, tt.posting, tt.header); got != tt.want {
				t.Errorf("EffectiveStatus(%d, %d) = %q, want %q", tt.posting, tt.header, got, tt.want)
			}
		})
	}
}
