package balance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plenert/reconcile/reconcile/balance"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"1234.56", "1234.56"},
		{"-$500.00", "-500"},
		{"$-500", "-500"},
		{"$100", "100"},
		{"  $ 1 234,567.8 ", "1234567.8"},
		{"0", "0"},
		{"($10 * 3 + 0.5)", "30.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := balance.Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "Parse(%q) = %s, want %s", tt.in, got, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := balance.Parse("   ")
	assert.ErrorIs(t, err, balance.ErrEmpty)

	for _, in := range []string{"abc", "$", "--5", "1-2", "$12.3.4"} {
		_, err := balance.Parse(in)
		assert.Error(t, err, in)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		aligned string
	}{
		{"1234.56", "$1,234.56", " $1,234.56"},
		{"-500", "-$500.00", "-$500.00"},
		{"0", "$0.00", " $0.00"},
		{"1234567.891", "$1,234,567.89", " $1,234,567.89"},
		{"0.005", "$0.01", " $0.01"},
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.in)
		assert.Equal(t, tt.want, balance.Format(d), tt.in)
		assert.Equal(t, tt.aligned, balance.FormatAligned(d), tt.in)
	}
}

func TestDelta(t *testing.T) {
	target, err := balance.Parse("$1,234.56")
	require.NoError(t, err)
	current, err := balance.Parse("$500.00")
	require.NoError(t, err)

	assert.Equal(t, "$734.56", balance.Format(balance.Delta(target, current)))
	assert.Equal(t, "-$734.56", balance.Format(balance.Delta(current, target)))
}
