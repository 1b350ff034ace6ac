// Package sexp decodes the S-expressions printed by "ledger emacs".
//
// Values decode to Go types: quoted strings to string, integer atoms to int,
// the atom nil to nil, other atoms to Symbol and lists to []any.
package sexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

var ErrSyntax = errors.New("sexp: syntax error")

// Symbol is a bare atom such as t or pending.
type Symbol string

// Decoder reads S-expressions from an input stream.
type Decoder struct {
	r      *bufio.Reader
	offset int
	last   int
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r: bufio.NewReader(r),
	}
}

// Decode reads the next expression. It returns io.EOF when the input holds
// nothing but whitespace.
func (d *Decoder) Decode() (any, error) {
	if err := d.skipSpace(); err != nil {
		return nil, err
	}
	c, err := d.read()
	if err != nil {
		return nil, err
	}
	switch c {
	case '(':
		return d.decodeList()
	case ')':
		return nil, d.errorf("unexpected ')'")
	case '"':
		return d.decodeString()
	}
	d.unread()
	return d.decodeAtom()
}

func (d *Decoder) decodeList() (any, error) {
	list := []any{}
	for {
		if err := d.skipSpace(); err != nil {
			return nil, d.eof(err, "unterminated list")
		}
		c, err := d.read()
		if err != nil {
			return nil, d.eof(err, "unterminated list")
		}
		if c == ')' {
			return list, nil
		}
		d.unread()
		v, err := d.Decode()
		if err != nil {
			return nil, d.eof(err, "unterminated list")
		}
		list = append(list, v)
	}
}

// decodeString reads a quoted string whose opening quote was consumed.
// Unknown escapes yield the escaped character.
func (d *Decoder) decodeString() (any, error) {
	var sb strings.Builder
	for {
		c, err := d.read()
		if err != nil {
			return nil, d.eof(err, "unterminated string")
		}
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			c, err = d.read()
			if err != nil {
				return nil, d.eof(err, "unterminated string")
			}
			switch c {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case 'r':
				c = '\r'
			}
		}
		sb.WriteRune(c)
	}
}

func (d *Decoder) decodeAtom() (any, error) {
	var sb strings.Builder
	for {
		c, err := d.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' {
			d.unread()
			break
		}
		sb.WriteRune(c)
	}

	atom := sb.String()
	if atom == "nil" {
		return nil, nil
	}
	if n, err := strconv.Atoi(atom); err == nil {
		return n, nil
	}
	return Symbol(atom), nil
}

func (d *Decoder) skipSpace() error {
	for {
		c, err := d.read()
		if err != nil {
			return err
		}
		if !unicode.IsSpace(c) {
			d.unread()
			return nil
		}
	}
}

func (d *Decoder) read() (rune, error) {
	c, size, err := d.r.ReadRune()
	if err != nil {
		return 0, err
	}
	d.offset += size
	d.last = size
	return c, nil
}

func (d *Decoder) unread() {
	if err := d.r.UnreadRune(); err == nil {
		d.offset -= d.last
	}
}

func (d *Decoder) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, d.offset, fmt.Sprintf(format, args...))
}

// eof turns a premature end of input into a syntax error.
func (d *Decoder) eof(err error, msg string) error {
	if err == io.EOF {
		return d.errorf("%s", msg)
	}
	return err
}

// Parse decodes s, which must hold exactly one expression.
func Parse(s string) (any, error) {
	d := NewDecoder(strings.NewReader(s))
	v, err := d.Decode()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrSyntax)
	}
	if err != nil {
		return nil, err
	}
	if _, err := d.Decode(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, d.errorf("trailing data")
	}
	return v, nil
}

// String prints v back as an S-expression.
func String(v any) string {
	var sb strings.Builder
	write(&sb, v)
	return sb.String()
}

func write(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("nil")
	case string:
		sb.WriteString(strconv.Quote(v))
	case int:
		sb.WriteString(strconv.Itoa(v))
	case Symbol:
		sb.WriteString(string(v))
	case []any:
		sb.WriteByte('(')
		for i, e := range v {
			if i > 0 {
				sb.WriteByte(' ')
			}
			write(sb, e)
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
