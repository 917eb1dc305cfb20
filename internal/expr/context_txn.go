package expr

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/tally-sh/tally/internal/model"
)

// defaultFuzzyThreshold is the similarity a fuzzy() window must reach when no
// explicit threshold argument is given.
const defaultFuzzyThreshold = 0.80

var normalizeRe = regexp.MustCompile(`[\s\-'.*]+`)

// TxnContext evaluates expressions against a single transaction. Exposed
// names: description, amount (sign preserved), date, month, year, day,
// weekday, source, location, plus user variables.
type TxnContext struct {
	Description string
	Amount      float64
	Date        time.Time
	Source      string
	Location    string
	Variables   map[string]any
	cache       *Cache
}

// NewTxnContext builds a context from a transaction. The cache is shared with
// the owning matcher so regex() patterns compile once per run; pass nil to
// use a private cache.
func NewTxnContext(txn model.Transaction, variables map[string]any, cache *Cache) *TxnContext {
	if cache == nil {
		cache = NewCache()
	}
	return &TxnContext{
		Description: txn.RawDescription,
		Amount:      txn.Amount,
		Date:        txn.Date,
		Source:      txn.Source,
		Location:    txn.Location,
		Variables:   variables,
		cache:       cache,
	}
}

// ResolveName implements Context.
func (c *TxnContext) ResolveName(name string) (any, bool) {
	if v, ok := c.Variables[name]; ok {
		return v, true
	}

	switch name {
	case "description":
		return c.Description, true
	case "amount":
		return c.Amount, true
	case "date":
		return c.Date, true
	case "month":
		if c.Date.IsZero() {
			return 0.0, true
		}
		return float64(c.Date.Month()), true
	case "year":
		if c.Date.IsZero() {
			return 0.0, true
		}
		return float64(c.Date.Year()), true
	case "day":
		if c.Date.IsZero() {
			return 0.0, true
		}
		return float64(c.Date.Day()), true
	case "weekday":
		if c.Date.IsZero() {
			return 0.0, true
		}
		// Monday = 0 through Sunday = 6.
		return float64((int(c.Date.Weekday()) + 6) % 7), true
	case "source":
		return c.Source, true
	case "location":
		return c.Location, true
	}
	return nil, false
}

// ResolveAttr implements Context. Only the field.* namespace is supported.
func (c *TxnContext) ResolveAttr(base, attr string) (any, error) {
	if base != "field" {
		return nil, errf(0, "unsupported attribute access: %s.%s", base, attr)
	}
	switch attr {
	case "description":
		return c.Description, nil
	case "amount":
		return c.Amount, nil
	case "date":
		return c.Date, nil
	case "source":
		return c.Source, nil
	case "location":
		return c.Location, nil
	}
	return nil, errf(0, "unknown field: field.%s (available: description, amount, date, source, location)", attr)
}

// CallFunction implements Context. All text matching is case-insensitive.
func (c *TxnContext) CallFunction(name string, args []any) (any, error) {
	switch name {
	case "contains":
		text, pattern, err := c.textAndPattern(name, args)
		if err != nil {
			return nil, err
		}
		return strings.Contains(strings.ToUpper(text), strings.ToUpper(pattern)), nil

	case "regex":
		text, pattern, err := c.textAndPattern(name, args)
		if err != nil {
			return nil, err
		}
		re, err := c.cache.Regexp(pattern)
		if err != nil {
			return nil, err
		}
		return re.MatchString(text), nil

	case "normalized":
		text, pattern, err := c.textAndPattern(name, args)
		if err != nil {
			return nil, err
		}
		return strings.Contains(normalizeText(text), normalizeText(pattern)), nil

	case "startswith":
		text, pattern, err := c.textAndPattern(name, args)
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(strings.ToUpper(text), strings.ToUpper(pattern)), nil

	case "anyof":
		if len(args) == 0 {
			return nil, errf(0, "anyof() requires at least 1 argument")
		}
		desc := strings.ToUpper(c.Description)
		for _, arg := range args {
			pattern, ok := arg.(string)
			if !ok {
				return nil, errf(0, "anyof() arguments must be strings, got %T", arg)
			}
			if strings.Contains(desc, strings.ToUpper(pattern)) {
				return true, nil
			}
		}
		return false, nil

	case "fuzzy":
		return c.fnFuzzy(args)

	case "abs":
		if len(args) != 1 {
			return nil, errf(0, "abs() requires exactly 1 argument")
		}
		f, ok := asNumber(args[0])
		if !ok {
			return nil, errf(0, "abs() requires a number, got %T", args[0])
		}
		return math.Abs(f), nil

	case "round":
		if len(args) != 1 {
			return nil, errf(0, "round() requires exactly 1 argument")
		}
		f, ok := asNumber(args[0])
		if !ok {
			return nil, errf(0, "round() requires a number, got %T", args[0])
		}
		return math.Round(f), nil

	case "extract":
		return c.fnExtract(args)

	case "split":
		return c.fnSplit(args)

	case "substring":
		return c.fnSubstring(args)

	case "trim":
		switch len(args) {
		case 0:
			return strings.TrimSpace(c.Description), nil
		case 1:
			s, err := stringArg("trim", args[0])
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(s), nil
		}
		return nil, errf(0, "trim() requires 0 or 1 arguments: trim() or trim(text)")

	case "regex_replace":
		if len(args) != 3 {
			return nil, errf(0, "regex_replace() requires 3 arguments: regex_replace(text, pattern, replacement)")
		}
		text, terr := stringArg(name, args[0])
		pattern, perr := stringArg(name, args[1])
		replacement, rerr := stringArg(name, args[2])
		if terr != nil || perr != nil || rerr != nil {
			return nil, errf(0, "regex_replace() arguments must be strings")
		}
		re, err := c.cache.Regexp(pattern)
		if err != nil {
			return nil, err
		}
		return re.ReplaceAllString(text, replacement), nil

	case "uppercase":
		if len(args) != 1 {
			return nil, errf(0, "uppercase() requires 1 argument: uppercase(text)")
		}
		s, err := stringArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil

	case "lowercase":
		if len(args) != 1 {
			return nil, errf(0, "lowercase() requires 1 argument: lowercase(text)")
		}
		s, err := stringArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return strings.ToLower(s), nil

	case "strip_prefix":
		text, affix, err := twoStrings(name, args)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(strings.ToUpper(text), strings.ToUpper(affix)) {
			return text[len(affix):], nil
		}
		return text, nil

	case "strip_suffix":
		text, affix, err := twoStrings(name, args)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToUpper(text), strings.ToUpper(affix)) {
			return text[:len(text)-len(affix)], nil
		}
		return text, nil
	}

	return nil, errf(0, "unknown function: %s", name)
}

// fnExtract returns the first capture group of the pattern, or "" when the
// pattern does not match or has no groups.
func (c *TxnContext) fnExtract(args []any) (any, error) {
	text, pattern, err := c.textAndPattern("extract", args)
	if err != nil {
		return nil, err
	}
	re, err := c.cache.Regexp(pattern)
	if err != nil {
		return nil, err
	}
	m := re.FindStringSubmatch(text)
	if len(m) > 1 {
		return m[1], nil
	}
	return "", nil
}

// fnSplit handles split(delim, index) over the description and
// split(text, delim, index). An out-of-range index yields "".
func (c *TxnContext) fnSplit(args []any) (any, error) {
	text := c.Description
	var rest []any
	switch len(args) {
	case 2:
		rest = args
	case 3:
		t, err := stringArg("split", args[0])
		if err != nil {
			return nil, err
		}
		text, rest = t, args[1:]
	default:
		return nil, errf(0, "split() requires 2 or 3 arguments: split(delim, index) or split(text, delim, index)")
	}

	delim, err := stringArg("split", rest[0])
	if err != nil {
		return nil, err
	}
	index, err := intArg("split", rest[1])
	if err != nil {
		return nil, err
	}

	parts := strings.Split(text, delim)
	if index >= 0 && index < len(parts) {
		return strings.TrimSpace(parts[index]), nil
	}
	return "", nil
}

// fnSubstring handles substring(start, end) over the description and
// substring(text, start, end), with Python slice semantics: negative indexes
// count from the end and out-of-range bounds clamp instead of erroring.
func (c *TxnContext) fnSubstring(args []any) (any, error) {
	text := c.Description
	var rest []any
	switch len(args) {
	case 2:
		rest = args
	case 3:
		t, err := stringArg("substring", args[0])
		if err != nil {
			return nil, err
		}
		text, rest = t, args[1:]
	default:
		return nil, errf(0, "substring() requires 2 or 3 arguments: substring(start, end) or substring(text, start, end)")
	}

	start, err := intArg("substring", rest[0])
	if err != nil {
		return nil, err
	}
	end, err := intArg("substring", rest[1])
	if err != nil {
		return nil, err
	}
	return slice(text, start, end), nil
}

// slice implements Python-style string slicing.
func slice(s string, start, end int) string {
	n := len(s)
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	start = min(max(start, 0), n)
	end = min(max(end, 0), n)
	if start >= end {
		return ""
	}
	return s[start:end]
}

func stringArg(fn string, arg any) (string, error) {
	s, ok := arg.(string)
	if !ok {
		return "", errf(0, "%s() requires a string, got %T", fn, arg)
	}
	return s, nil
}

func intArg(fn string, arg any) (int, error) {
	f, ok := asNumber(arg)
	if !ok || f != math.Trunc(f) {
		return 0, errf(0, "%s() index must be an integer, got %v", fn, arg)
	}
	return int(f), nil
}

// twoStrings unpacks fn(text, affix).
func twoStrings(fn string, args []any) (string, string, error) {
	if len(args) != 2 {
		return "", "", errf(0, "%s() requires 2 arguments: %s(text, %s)", fn, fn, strings.TrimPrefix(fn, "strip_"))
	}
	text, terr := stringArg(fn, args[0])
	affix, aerr := stringArg(fn, args[1])
	if terr != nil || aerr != nil {
		return "", "", errf(0, "%s() arguments must be strings", fn)
	}
	return text, affix, nil
}

// textAndPattern unpacks the one-argument form fn(pattern), searching the
// description, and the two-argument form fn(text, pattern).
func (c *TxnContext) textAndPattern(fn string, args []any) (text, pattern string, err error) {
	switch len(args) {
	case 1:
		pattern, ok := args[0].(string)
		if !ok {
			return "", "", errf(0, "%s() pattern must be a string, got %T", fn, args[0])
		}
		return c.Description, pattern, nil
	case 2:
		text, tok := args[0].(string)
		pattern, pok := args[1].(string)
		if !tok || !pok {
			return "", "", errf(0, "%s() arguments must be strings", fn)
		}
		return text, pattern, nil
	}
	return "", "", errf(0, "%s() requires 1 or 2 arguments: %s(pattern) or %s(text, pattern)", fn, fn, fn)
}

// fnFuzzy handles fuzzy(pattern), fuzzy(pattern, threshold),
// fuzzy(text, pattern), and fuzzy(text, pattern, threshold).
func (c *TxnContext) fnFuzzy(args []any) (any, error) {
	text := c.Description
	var pattern string
	threshold := defaultFuzzyThreshold

	switch len(args) {
	case 1:
		p, ok := args[0].(string)
		if !ok {
			return nil, errf(0, "fuzzy() pattern must be a string, got %T", args[0])
		}
		pattern = p
	case 2:
		p, pok := args[0].(string)
		if !pok {
			return nil, errf(0, "fuzzy() pattern must be a string, got %T", args[0])
		}
		if th, ok := asNumber(args[1]); ok {
			pattern = p
			threshold = th
		} else if s, ok := args[1].(string); ok {
			text, pattern = p, s
		} else {
			return nil, errf(0, "fuzzy() second argument must be a pattern or threshold, got %T", args[1])
		}
	case 3:
		t, tok := args[0].(string)
		p, pok := args[1].(string)
		th, thok := asNumber(args[2])
		if !tok || !pok || !thok {
			return nil, errf(0, "fuzzy() requires fuzzy(text, pattern, threshold)")
		}
		text, pattern, threshold = t, p, th
	default:
		return nil, errf(0, "fuzzy() requires 1-3 arguments: fuzzy(pattern), fuzzy(text, pattern), or fuzzy(text, pattern, threshold)")
	}

	sim := fuzzySimilarity(strings.ToUpper(text), strings.ToUpper(pattern))
	return sim >= threshold, nil
}

// normalizeText strips spaces, hyphens, apostrophes, periods, and asterisks
// and upper-cases, so UBER EATS, Uber-Eats, and uber.eats all compare equal.
func normalizeText(s string) string {
	return normalizeRe.ReplaceAllString(strings.ToUpper(s), "")
}
