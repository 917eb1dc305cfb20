package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sep  rune
		want float64
	}{
		{"plain", "42.50", '.', 42.50},
		{"us thousands", "1,234.56", '.', 1234.56},
		{"large us", "12,345,678.90", '.', 12345678.90},
		{"parentheses negative", "(100.00)", '.', -100.00},
		{"minus sign", "-55.25", '.', -55.25},
		{"dollar sign", "$19.99", '.', 19.99},
		{"euro symbol", "€12,50", ',', 12.50},
		{"eu thousands with period", "1.234,56", ',', 1234.56},
		{"eu thousands with space", "1 234,56", ',', 1234.56},
		{"whitespace", "  7.00  ", '.', 7.00},
		{"parenthesized with symbol", "($250.00)", '.', -250.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.sep)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "12.34.56", "--5"} {
		_, err := ParseAmount(in, '.')
		assert.Error(t, err, in)
	}
}
