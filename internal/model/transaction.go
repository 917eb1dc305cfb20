// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from any source.
// Instances are created once by an importer and are read-only afterwards.
type Transaction struct {
	Date           time.Time // zero value means the source supplied no date
	RawDescription string    // description exactly as exported by the bank
	Merchant       string    // normalized merchant name, set by the engine
	Category       string
	Subcategory    string
	Tags           []string // tags from the matched rule, set by the engine
	Source         string // exporting institution (e.g. "Amex", "OFX")
	Location       string // optional 2-letter state/country code
	Hash           string
	Amount         float64 // signed; positive = expense by convention
	IsTravel       bool    // location-derived; never drives classification
}

// HasDate reports whether the source supplied a transaction date.
func (t *Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// MonthKey returns the YYYY-MM bucket the transaction falls in, or "" if the
// transaction carries no date.
func (t *Transaction) MonthKey() string {
	if !t.HasDate() {
		return ""
	}
	return t.Date.Format("2006-01")
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.RawDescription,
		t.Source)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
