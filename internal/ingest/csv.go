package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tally-sh/tally/internal/model"
)

// Format describes how to read one CSV export: column positions, the date
// layout, and the amount convention.
type Format struct {
	DateColumn        int
	DescriptionColumn int
	AmountColumn      int
	LocationColumn    int // -1 when absent; location falls back to the description
	DateLayout        string
	DecimalSeparator  rune
	// NegateAmounts flips sign for exports that record expenses as negatives.
	NegateAmounts bool
}

// header pattern groups, matched case-insensitive by substring.
var (
	dateHeaders     = []string{"date", "trans date", "transaction date", "posting date", "trans_date"}
	descHeaders     = []string{"description", "merchant", "payee", "memo", "name"}
	amountHeaders   = []string{"amount", "debit", "charge", "transaction amount", "payment"}
	locationHeaders = []string{"location", "city", "state", "city/state", "region"}
)

// DetectFormat inspects a header row and maps the date, description, amount,
// and optional location columns. Fails naming the columns it could not find.
func DetectFormat(header []string) (Format, error) {
	format := Format{
		DateColumn:        -1,
		DescriptionColumn: -1,
		AmountColumn:      -1,
		LocationColumn:    -1,
		DateLayout:        "01/02/2006",
		DecimalSeparator:  '.',
	}

	matches := func(name string, patterns []string) bool {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, p := range patterns {
			if strings.Contains(name, p) {
				return true
			}
		}
		return false
	}

	for i, name := range header {
		switch {
		case format.DateColumn < 0 && matches(name, dateHeaders):
			format.DateColumn = i
		case format.DescriptionColumn < 0 && matches(name, descHeaders):
			format.DescriptionColumn = i
		case format.AmountColumn < 0 && matches(name, amountHeaders):
			format.AmountColumn = i
		case format.LocationColumn < 0 && matches(name, locationHeaders):
			format.LocationColumn = i
		}
	}

	var missing []string
	if format.DateColumn < 0 {
		missing = append(missing, "date")
	}
	if format.DescriptionColumn < 0 {
		missing = append(missing, "description")
	}
	if format.AmountColumn < 0 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return format, fmt.Errorf("could not detect required columns %v in header %v", missing, header)
	}
	return format, nil
}

// CSVImporter reads transactions from CSV exports.
type CSVImporter struct {
	// Source tags imported transactions with their origin, e.g. "amex".
	Source string
	// Format is used as-is when set; otherwise the header row is auto-detected.
	Format *Format
	// DateLayout, DecimalSeparator, and NegateAmounts override the
	// corresponding fields of an auto-detected format. They are ignored when
	// Format is set explicitly.
	DateLayout       string
	DecimalSeparator rune
	NegateAmounts    bool
	// HomeLocations feeds travel detection on imported locations.
	HomeLocations map[string]struct{}
}

// dateLayouts tried in order when the configured layout fails. Exports are
// wildly inconsistent about this.
var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01/02/06",
	"1/2/2006",
	"02 Jan 2006",
}

// ImportFile reads one CSV file.
func (imp *CSVImporter) ImportFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return imp.Import(f)
}

// Import reads transactions from CSV content. Rows that fail to parse are
// logged and skipped; one mangled row must not lose the whole statement.
func (imp *CSVImporter) Import(r io.Reader) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv input")
	}

	format := imp.Format
	start := 0
	if format == nil {
		detected, err := DetectFormat(records[0])
		if err != nil {
			return nil, err
		}
		if imp.DateLayout != "" {
			detected.DateLayout = imp.DateLayout
		}
		if imp.DecimalSeparator != 0 {
			detected.DecimalSeparator = imp.DecimalSeparator
		}
		detected.NegateAmounts = imp.NegateAmounts
		format = &detected
		start = 1
	} else if looksLikeHeader(records[0], *format) {
		start = 1
	}

	var out []model.Transaction
	for i, record := range records[start:] {
		txn, err := imp.convertRow(record, *format)
		if err != nil {
			slog.Warn("skipping unparseable row",
				"source", imp.Source,
				"row", start+i+1,
				"error", err)
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// looksLikeHeader guards explicit-format imports against files that still
// carry a header row: a header's amount cell is not a number.
func looksLikeHeader(record []string, format Format) bool {
	if format.AmountColumn >= len(record) {
		return false
	}
	_, err := ParseAmount(record[format.AmountColumn], format.DecimalSeparator)
	return err != nil
}

func (imp *CSVImporter) convertRow(record []string, format Format) (model.Transaction, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	description := field(format.DescriptionColumn)
	if description == "" {
		return model.Transaction{}, fmt.Errorf("empty description")
	}

	amount, err := ParseAmount(field(format.AmountColumn), format.DecimalSeparator)
	if err != nil {
		return model.Transaction{}, err
	}
	if format.NegateAmounts {
		amount = -amount
	}

	txn := model.Transaction{
		RawDescription: description,
		Amount:         amount,
		Source:         imp.Source,
	}

	if dateStr := field(format.DateColumn); dateStr != "" {
		date, err := parseDate(dateStr, format.DateLayout)
		if err != nil {
			return model.Transaction{}, err
		}
		txn.Date = date
	}

	txn.Location = field(format.LocationColumn)
	if txn.Location == "" {
		txn.Location = ExtractLocation(description)
	}
	txn.IsTravel = IsTravelLocation(txn.Location, imp.HomeLocations)

	txn.Hash = txn.GenerateHash()
	return txn, nil
}

func parseDate(s, layout string) (time.Time, error) {
	if d, err := time.Parse(layout, s); err == nil {
		return d, nil
	}
	for _, l := range dateLayouts {
		if l == layout {
			continue
		}
		if d, err := time.Parse(l, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
