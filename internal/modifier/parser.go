// Package modifier parses inline bracket conditions appended to rule patterns.
//
// A rule pattern may end in one or more modifier blocks narrowing when it
// applies:
//
//	COSTCO[amount>200]
//	BESTBUY[date=2025-01-15]
//	MERCHANT[amount:50-200][date:2025-01-01..2025-12-31]
//	NETFLIX[month=12]
//
// Only trailing blocks beginning with the keywords amount, date or month are
// treated as modifiers; any other bracket content (regex character classes
// like [A-Z]) is left untouched.
package modifier

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ParseError reports malformed modifier syntax. It names the offending block
// and the syntax that was expected.
type ParseError struct {
	Block    string
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid modifier %s: expected %s", e.Block, e.Expected)
}

// AmountOp is the comparison applied by an amount condition.
type AmountOp string

// Amount operator constants.
const (
	AmountGT    AmountOp = ">"
	AmountGTE   AmountOp = ">="
	AmountLT    AmountOp = "<"
	AmountLTE   AmountOp = "<="
	AmountEQ    AmountOp = "="
	AmountRange AmountOp = ":"
)

// AmountCondition narrows a rule to transactions in an amount band.
type AmountCondition struct {
	Op    AmountOp
	Value float64 // for single-value operators
	Min   float64 // for range
	Max   float64 // for range
}

// DateOp is the comparison applied by a date condition.
type DateOp string

// Date operator constants.
const (
	DateExact    DateOp = "="
	DateRange    DateOp = ":"
	DateRelative DateOp = "relative"
	DateMonth    DateOp = "month"
)

// DateCondition narrows a rule to transactions in a date window.
type DateCondition struct {
	Op           DateOp
	Value        time.Time // exact match
	Start        time.Time // range start, inclusive
	End          time.Time // range end, inclusive
	Month        int       // 1-12 for month conditions
	RelativeDays int       // lastNdays window, relative to evaluation time
}

// ParsedPattern is a base regex pattern plus the modifier conditions stripped
// from its tail. Built once per rule at load time and reused for every
// transaction.
type ParsedPattern struct {
	Base    string
	Amounts []AmountCondition
	Dates   []DateCondition
}

// HasConditions reports whether any modifier conditions were present.
func (p *ParsedPattern) HasConditions() bool {
	return len(p.Amounts) > 0 || len(p.Dates) > 0
}

var (
	blockRe = regexp.MustCompile(`\[(amount|date|month)([^\]]*)\]`)

	amountGTRe    = regexp.MustCompile(`^\s*>\s*([\d.]+)\s*$`)
	amountGTERe   = regexp.MustCompile(`^\s*>=\s*([\d.]+)\s*$`)
	amountLTRe    = regexp.MustCompile(`^\s*<\s*([\d.]+)\s*$`)
	amountLTERe   = regexp.MustCompile(`^\s*<=\s*([\d.]+)\s*$`)
	amountEQRe    = regexp.MustCompile(`^\s*=\s*([\d.]+)\s*$`)
	amountRangeRe = regexp.MustCompile(`^\s*:\s*([\d.]+)\s*-\s*([\d.]+)\s*$`)

	dateEQRe       = regexp.MustCompile(`^\s*=\s*(\d{4}-\d{2}-\d{2})\s*$`)
	dateRangeRe    = regexp.MustCompile(`^\s*:\s*(\d{4}-\d{2}-\d{2})\s*\.\.\s*(\d{4}-\d{2}-\d{2})\s*$`)
	dateRelativeRe = regexp.MustCompile(`(?i)^\s*:\s*last(\d+)days\s*$`)

	monthEQRe = regexp.MustCompile(`^\s*=\s*(\d{1,2})\s*$`)
)

// Parse extracts trailing modifier blocks from a pattern string. Blocks are
// stripped from the end of the string inward; the scan stops at the first
// bracket block that is not at the current tail, so character classes inside
// the base regex survive.
func Parse(pattern string) (*ParsedPattern, error) {
	parsed := &ParsedPattern{Base: pattern}
	if pattern == "" {
		parsed.Base = ""
		return parsed, nil
	}

	remaining := pattern
	for {
		var tail []int
		for _, loc := range blockRe.FindAllStringSubmatchIndex(remaining, -1) {
			tail = loc
		}
		if tail == nil || tail[1] != len(remaining) {
			break
		}

		keyword := remaining[tail[2]:tail[3]]
		value := remaining[tail[4]:tail[5]]

		switch keyword {
		case "amount":
			cond, err := parseAmount(value)
			if err != nil {
				return nil, err
			}
			// Prepend: the scan walks backwards but conditions keep source order.
			parsed.Amounts = append([]AmountCondition{cond}, parsed.Amounts...)
		case "date":
			cond, err := parseDate(value)
			if err != nil {
				return nil, err
			}
			parsed.Dates = append([]DateCondition{cond}, parsed.Dates...)
		case "month":
			cond, err := parseMonth(value)
			if err != nil {
				return nil, err
			}
			parsed.Dates = append([]DateCondition{cond}, parsed.Dates...)
		}

		remaining = remaining[:tail[0]]
	}

	parsed.Base = remaining
	return parsed, nil
}

func parseAmount(value string) (AmountCondition, error) {
	single := []struct {
		re *regexp.Regexp
		op AmountOp
	}{
		// >= and <= must be tried before > and < so the longer operator wins.
		{amountGTERe, AmountGTE},
		{amountGTRe, AmountGT},
		{amountLTERe, AmountLTE},
		{amountLTRe, AmountLT},
		{amountEQRe, AmountEQ},
	}
	for _, c := range single {
		if m := c.re.FindStringSubmatch(value); m != nil {
			v, err := parseNum(m[1], "amount", value)
			if err != nil {
				return AmountCondition{}, err
			}
			return AmountCondition{Op: c.op, Value: v}, nil
		}
	}
	if m := amountRangeRe.FindStringSubmatch(value); m != nil {
		minV, err := parseNum(m[1], "amount", value)
		if err != nil {
			return AmountCondition{}, err
		}
		maxV, err := parseNum(m[2], "amount", value)
		if err != nil {
			return AmountCondition{}, err
		}
		return AmountCondition{Op: AmountRange, Min: minV, Max: maxV}, nil
	}

	return AmountCondition{}, &ParseError{
		Block:    "[amount" + value + "]",
		Expected: "[amount>N], [amount>=N], [amount<N], [amount<=N], [amount=N], or [amount:MIN-MAX]",
	}
}

func parseDate(value string) (DateCondition, error) {
	if m := dateEQRe.FindStringSubmatch(value); m != nil {
		d, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return DateCondition{}, &ParseError{Block: "[date" + value + "]", Expected: "a valid YYYY-MM-DD date"}
		}
		return DateCondition{Op: DateExact, Value: d}, nil
	}
	if m := dateRangeRe.FindStringSubmatch(value); m != nil {
		start, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return DateCondition{}, &ParseError{Block: "[date" + value + "]", Expected: "a valid YYYY-MM-DD range start"}
		}
		end, err := time.Parse("2006-01-02", m[2])
		if err != nil {
			return DateCondition{}, &ParseError{Block: "[date" + value + "]", Expected: "a valid YYYY-MM-DD range end"}
		}
		return DateCondition{Op: DateRange, Start: start, End: end}, nil
	}
	if m := dateRelativeRe.FindStringSubmatch(value); m != nil {
		days, _ := strconv.Atoi(m[1])
		return DateCondition{Op: DateRelative, RelativeDays: days}, nil
	}

	return DateCondition{}, &ParseError{
		Block:    "[date" + value + "]",
		Expected: "[date=YYYY-MM-DD], [date:YYYY-MM-DD..YYYY-MM-DD], or [date:lastNdays]",
	}
}

func parseMonth(value string) (DateCondition, error) {
	if m := monthEQRe.FindStringSubmatch(value); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month < 1 || month > 12 {
			return DateCondition{}, &ParseError{
				Block:    "[month" + value + "]",
				Expected: "a month between 1 and 12",
			}
		}
		return DateCondition{Op: DateMonth, Month: month}, nil
	}

	return DateCondition{}, &ParseError{
		Block:    "[month" + value + "]",
		Expected: "[month=1] to [month=12]",
	}
}

func parseNum(s, keyword, value string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{
			Block:    "[" + keyword + value + "]",
			Expected: "a numeric value",
		}
	}
	return f, nil
}
