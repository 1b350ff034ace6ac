package reconcile

// FindTransaction walks backward from the 1-based posting line and returns
// the line number of the transaction header owning it. A blank line met
// before any header means the posting has no transaction in its paragraph
// and the lookup fails.
func FindTransaction(lines []string, posting int) (int, bool) {
	if posting < 1 || posting > len(lines) {
		return 0, false
	}
	for i := posting - 2; i >= 0; i-- {
		switch Classify(lines[i]) {
		case HeaderLine:
			return i + 1, true
		case BlankLine:
			return 0, false
		}
	}
	return 0, false
}

// TransactionPostings returns, in file order, the 1-based line numbers of the
// postings following the header line. The scan ends at a blank line, the next
// header or any un-indented line. Indented comments are skipped.
func TransactionPostings(lines []string, header int) []int {
	var postings []int
	for i := header; i < len(lines); i++ {
		k := Classify(lines[i])
		if k == CommentLine && (lines[i][0] == ' ' || lines[i][0] == '\t') {
			continue
		}
		if k != PostingLine {
			break
		}
		postings = append(postings, i+1)
	}
	return postings
}

// EffectiveStatus is the status a posting is considered to have: its own
// marker if it carries one, otherwise the marker of its transaction header.
func EffectiveStatus(lines []string, posting, header int) Status {
	if s := PostingStatus(lines[posting-1]); s != Unset {
		return s
	}
	return HeaderStatus(lines[header-1])
}
