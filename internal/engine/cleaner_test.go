package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleaner_Clean(t *testing.T) {
	cleaner := NewCleaner(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain description", "COSTCO WHOLESALE", "COSTCO WHOLESALE"},
		{"apple pay prefix", "APLPAY STARBUCKS 123", "STARBUCKS 123"},
		{"square prefix", "SQ *BLUE BOTTLE COFFEE", "BLUE BOTTLE COFFEE"},
		{"toast prefix", "TST* FARMHOUSE KITCHEN", "FARMHOUSE KITCHEN"},
		{"paypal prefix", "PP*GRUBHUB", "GRUBHUB"},
		{"google prefix", "GOOGLE *YOUTUBE TV", "YOUTUBE TV"},
		{"doordash processor", "BT*DD*DOORDASH CHIPOTLE", "DOORDASH CHIPOTLE"},
		{"des suffix", "COMCAST DES:CABLE ID:12345", "COMCAST"},
		{"id suffix", "PGANDE ID:987654", "PGANDE"},
		{"confirmation suffix", "CITY UTILITIES Confirmation# 5551212", "CITY UTILITIES"},
		{"trailing state code", "SAFEWAY #1234  WA", "SAFEWAY #1234"},
		{"single space before state kept", "DELTA AIR GA", "DELTA AIR GA"},
		{"whitespace collapse", "  WHOLE   FOODS  ", "WHOLE FOODS"},
		{"prefix and suffix together", "SQ *CAFE DU MONDE DES:PAYMENT", "CAFE DU MONDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleaner.Clean(tt.input))
		})
	}
}

func TestCleaner_UserStripPatterns(t *testing.T) {
	cleaner := NewCleaner([]string{`\s*#\d+`, `POS DEBIT\s*`})

	assert.Equal(t, "TRADER JOES", cleaner.Clean("POS DEBIT TRADER JOES #552"))

	// Invalid user patterns are skipped, built-ins still apply.
	broken := NewCleaner([]string{`[unclosed`})
	assert.Equal(t, "STARBUCKS", broken.Clean("APLPAY STARBUCKS"))
}

func TestCleaner_ExtractMerchantName(t *testing.T) {
	cleaner := NewCleaner(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"two words", "WHOLE FOODS #123", "Whole Foods"},
		{"three word cap", "THE HOME DEPOT STORE 456", "The Home Depot"},
		{"prefix stripped first", "SQ *BLUE BOTTLE COFFEE", "Blue Bottle Coffee"},
		{"digits only", "12345 6789", "Unknown"},
		{"empty", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleaner.ExtractMerchantName(tt.input))
		})
	}
}
