// Package balance parses and formats the dollar amounts shown while
// reconciling.
package balance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/alfredxing/calc/compute"
	"github.com/shopspring/decimal"
)

const currency = money.USD

var ErrEmpty = errors.New("empty amount")

// Parse reads an amount typed by the user or printed by ledger: "$1,234.56",
// "1234.56", "-$500.00", "$-500" or "$100". Commas and spaces inside the
// digits are ignored. A parenthesized value is evaluated as an arithmetic
// expression, as in ledger files.
func Parse(s string) (decimal.Decimal, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return decimal.Zero, ErrEmpty
	}

	if strings.HasPrefix(text, "(") {
		expr := strings.NewReplacer("$", "", ",", "").Replace(text)
		v, err := compute.Evaluate(expr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		return decimal.NewFromFloat(v).Round(2), nil
	}

	neg := false
	if strings.HasPrefix(text, "-") {
		neg = true
		text = strings.TrimSpace(text[1:])
	}
	text = strings.TrimPrefix(text, "$")
	text = strings.NewReplacer(",", "", " ", "").Replace(text)
	if strings.HasPrefix(text, "-") && !neg {
		neg = true
		text = text[1:]
	}
	if text == "" || strings.ContainsAny(text, "+-") {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		v = v.Neg()
	}
	return v, nil
}

// Format prints d with a dollar sign, thousands separators and two decimals,
// e.g. "$1,234.56" or "-$500.00".
func Format(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, currency).Display()
}

// FormatAligned is Format with a leading space on non-negative amounts, so
// that the dollar signs of a column line up.
func FormatAligned(d decimal.Decimal) string {
	s := Format(d)
	if !strings.HasPrefix(s, "-") {
		s = " " + s
	}
	return s
}

// Delta returns how far current is from target.
func Delta(target, current decimal.Decimal) decimal.Decimal {
	return target.Sub(current)
}
