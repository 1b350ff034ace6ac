package reconcile

import (
	"regexp"
	"strings"
)

// Kind is the classification of a single physical line of a ledger file.
type Kind int

const (
	BlankLine Kind = iota
	CommentLine
	HeaderLine
	PostingLine
	OtherLine
)

func (k Kind) String() string {
	switch k {
	case BlankLine:
		return "blank"
	case CommentLine:
		return "comment"
	case HeaderLine:
		return "header"
	case PostingLine:
		return "posting"
	}
	return "other"
}

var (
	headerDate  = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}`)
	headerParts = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2})\s*([!*]?)\s*(.*)$`)
)

// Classify returns the kind of line. The checks are ordered: blank, then
// comment, then the header date, and only then indentation, so an indented
// line starting with a date is a header and never a posting.
func Classify(line string) Kind {
	body := strings.TrimSpace(line)
	switch {
	case body == "":
		return BlankLine
	case body[0] == ';':
		return CommentLine
	case headerDate.MatchString(body):
		return HeaderLine
	case line[0] == ' ' || line[0] == '\t':
		return PostingLine
	}
	return OtherLine
}

// IsPostingLine reports whether line is an indented, non comment, non header
// line.
func IsPostingLine(line string) bool {
	return Classify(line) == PostingLine
}

// PostingStatus returns the explicit marker written on a posting line.
func PostingStatus(line string) Status {
	body := strings.TrimLeft(line, " \t")
	if body == "" {
		return Unset
	}
	return markerStatus(body[0])
}

// HeaderStatus returns the explicit marker written on a transaction header,
// Unset if the line is not a header or carries no marker.
func HeaderStatus(line string) Status {
	body, _ := splitEOL(line)
	m := headerParts.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return Unset
	}
	return Status(m[2])
}

// SetPostingStatus rewrites the marker of a posting line. The indentation,
// the rest of the line and its terminator are kept. An existing marker is
// removed along with one following blank before s is inserted. With s Unset
// and no existing marker the line is returned unchanged.
func SetPostingStatus(line string, s Status) string {
	body, eol := splitEOL(line)
	if strings.TrimSpace(body) == "" {
		return line
	}
	rest := strings.TrimLeft(body, " \t")
	indent := body[:len(body)-len(rest)]

	marked := markerStatus(rest[0]) != Unset
	if marked {
		rest = rest[1:]
		if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
			rest = rest[1:]
		}
	} else if s == Unset {
		return line
	}

	if s != Unset {
		rest = string(s) + " " + rest
	}
	return indent + rest + eol
}

// SetHeaderStatus rewrites the marker of a transaction header line as
// "DATE [s ]DESCRIPTION". The separating spaces are kept when the
// description is empty. Lines that do not parse as a header are returned
// unchanged, as are headers already carrying s.
func SetHeaderStatus(line string, s Status) string {
	body, eol := splitEOL(line)
	rest := strings.TrimLeft(body, " \t")
	indent := body[:len(body)-len(rest)]

	m := headerParts.FindStringSubmatch(rest)
	if m == nil || Status(m[2]) == s {
		return line
	}

	if s != Unset {
		return indent + m[1] + " " + string(s) + " " + m[3] + eol
	}
	return indent + m[1] + " " + m[3] + eol
}

// splitEOL separates the line terminator ("\r\n", "\n" or nothing) from the
// rest of the line.
func splitEOL(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
