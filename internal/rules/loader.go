// Package rules loads merchant categorization rules from CSV files.
//
// File format: Pattern,Merchant,Category,Subcategory[,Tags] with a header
// row. Lines starting with # are comments. Patterns are regular expressions
// with optional inline modifiers ([amount>200], [month=12]) or match
// expressions; the loader treats pattern text as opaque, syntax sniffing
// happens in the matching engine.
package rules

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tally-sh/tally/internal/common"
	"github.com/tally-sh/tally/internal/model"
)

// SourceUser tags rules loaded from the user's rules file.
const SourceUser = "user"

// Load reads rules from a CSV file, preserving file order. A missing file is
// an error wrapping common.ErrRulesNotFound so callers can treat it as "no
// user rules" without string matching.
func Load(path string) ([]model.MerchantRule, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrRulesNotFound, path)
		}
		return nil, fmt.Errorf("opening rules file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("failed to close rules file", "path", path, "error", cerr)
		}
	}()

	rules, diag := parse(f, SourceUser)
	for _, e := range diag.Errors {
		slog.Warn("rules file problem", "path", path, "detail", e)
	}
	return rules, nil
}

// columns maps header names to field positions.
type columns struct {
	pattern     int
	merchant    int
	category    int
	subcategory int
	tags        int
}

func defaultColumns() columns {
	return columns{pattern: 0, merchant: 1, category: 2, subcategory: 3, tags: -1}
}

// row pairs a data line with its 1-based line number in the file.
type row struct {
	fields []string
	line   int
}

// LoadReader reads rules from an in-memory source, tagging them with the
// given provenance. Problems are collected in the returned diagnostics.
func LoadReader(r io.Reader, source string) ([]model.MerchantRule, *Diagnostics) {
	return parse(r, source)
}

// parse reads every rule it can and collects problems instead of failing on
// the first bad line. Rule files are hand-edited; partial usability matters.
func parse(f io.Reader, source string) ([]model.MerchantRule, *Diagnostics) {
	diag := &Diagnostics{Exists: true}

	rows, lineCount := readRows(f, diag)
	diag.LineCount = lineCount
	if len(rows) == 0 {
		return nil, diag
	}

	cols := defaultColumns()
	start := 0
	if isHeader(rows[0].fields) {
		cols = detectColumns(rows[0].fields)
		diag.HasHeader = true
		start = 1
	} else {
		diag.Errors = append(diag.Errors, fmt.Sprintf(
			"line %d: missing header row (expected Pattern,Merchant,Category,Subcategory), assuming positional columns",
			rows[0].line))
	}

	var out []model.MerchantRule
	for _, r := range rows[start:] {
		rule, problems := buildRule(r, cols, source)
		diag.Errors = append(diag.Errors, problems...)
		if rule != nil {
			out = append(out, *rule)
		}
	}
	diag.RuleCount = len(out)
	return out, diag
}

// readRows strips comments and blank lines, then CSV-parses what remains.
// Line numbers refer to the original file.
func readRows(f io.Reader, diag *Diagnostics) ([]row, int) {
	var rows []row
	line := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		reader := csv.NewReader(strings.NewReader(text))
		reader.FieldsPerRecord = -1
		fields, err := reader.Read()
		if err != nil {
			diag.Errors = append(diag.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rows = append(rows, row{fields: fields, line: line})
	}
	if err := scanner.Err(); err != nil {
		diag.Errors = append(diag.Errors, fmt.Sprintf("reading file: %v", err))
	}
	return rows, line
}

func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	joined := strings.ToLower(strings.Join(fields, ","))
	return strings.Contains(joined, "pattern") && strings.Contains(joined, "merchant")
}

func detectColumns(header []string) columns {
	cols := columns{pattern: -1, merchant: -1, category: -1, subcategory: -1, tags: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "pattern":
			cols.pattern = i
		case "merchant":
			cols.merchant = i
		case "category":
			cols.category = i
		case "subcategory":
			cols.subcategory = i
		case "tags":
			cols.tags = i
		}
	}
	// Fall back to conventional positions for anything the header omitted.
	def := defaultColumns()
	if cols.pattern < 0 {
		cols.pattern = def.pattern
	}
	if cols.merchant < 0 {
		cols.merchant = def.merchant
	}
	if cols.category < 0 {
		cols.category = def.category
	}
	if cols.subcategory < 0 {
		cols.subcategory = def.subcategory
	}
	return cols
}

func buildRule(r row, cols columns, source string) (*model.MerchantRule, []string) {
	field := func(i int) string {
		if i < 0 || i >= len(r.fields) {
			return ""
		}
		return strings.TrimSpace(r.fields[i])
	}

	pattern := field(cols.pattern)
	if pattern == "" {
		return nil, nil // blank pattern lines are skipped silently
	}

	var problems []string
	merchant := field(cols.merchant)
	category := field(cols.category)
	if merchant == "" {
		problems = append(problems, fmt.Sprintf("line %d: missing merchant name for pattern %q", r.line, pattern))
	}
	if category == "" {
		problems = append(problems, fmt.Sprintf("line %d: missing category for pattern %q", r.line, pattern))
	}

	rule := &model.MerchantRule{
		Pattern:     pattern,
		Merchant:    merchant,
		Category:    category,
		Subcategory: field(cols.subcategory),
		Tags:        splitTags(field(cols.tags)),
		Source:      source,
		Line:        r.line,
	}
	return rule, problems
}

// splitTags parses a semicolon-separated tag list.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
