// Package ingest reads transactions from bank export files: generic CSV with
// header auto-detection, and OFX/QFX statements. The classification core
// never parses source files itself; this package is its only supplier.
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var currencySymbolRe = regexp.MustCompile(`[$€£¥]`)

// ParseAmount parses a statement amount string. Handles thousand separators
// in US ("1,234.56") and European ("1.234,56" or "1 234,56") conventions,
// currency symbols, and parentheses negatives ("(100.00)").
func ParseAmount(s string, decimalSeparator rune) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.TrimSpace(currencySymbolRe.ReplaceAllString(s, ""))

	if decimalSeparator == ',' {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		return -v, nil
	}
	return v, nil
}
