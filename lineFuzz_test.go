//go:build go1.18

package reconcile

import (
	"strings"
	"testing"
)

func FuzzSetPostingStatus(f *testing.F) {
	for _, s := range []string{
		"    Assets:Checking               $100.00\n",
		"    ! Assets:Checking\r\n",
		"\t* Expenses:Food  $3 ; memo",
		"    !Assets",
	} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, line string) {
		if strings.Contains(strings.TrimSuffix(line, "\n"), "\n") || !IsPostingLine(line) {
			return
		}
		for _, s := range []Status{Pending, Cleared} {
			got := SetPostingStatus(line, s)
			if PostingStatus(got) != s {
				t.Fatalf("SetPostingStatus(%q, %q) = %q has status %q", line, s, got, PostingStatus(got))
			}
			if again := SetPostingStatus(got, s); again != got {
				t.Fatalf("SetPostingStatus(%q, %q) not idempotent: %q then %q", line, s, got, again)
			}
			if !IsPostingLine(got) {
				t.Fatalf("SetPostingStatus(%q, %q) = %q is no longer a posting", line, s, got)
			}
			if PostingStatus(line) == Unset {
				if back := SetPostingStatus(got, Unset); back != line {
					t.Fatalf("round trip of %q through %q gave %q", line, s, back)
				}
			}
		}
	})
}
