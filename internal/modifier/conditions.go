package modifier

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// amountTolerance is applied to [amount=N] equality checks.
const amountTolerance = 0.01

// Matches reports whether an amount satisfies the condition. Sign is
// preserved: negative values in conditions match credits and refunds.
func (c AmountCondition) Matches(amount float64) bool {
	switch c.Op {
	case AmountGT:
		return amount > c.Value
	case AmountGTE:
		return amount >= c.Value
	case AmountLT:
		return amount < c.Value
	case AmountLTE:
		return amount <= c.Value
	case AmountEQ:
		return math.Abs(amount-c.Value) < amountTolerance
	case AmountRange:
		return c.Min <= amount && amount <= c.Max
	}
	return false
}

// String renders the condition back to bracket syntax.
func (c AmountCondition) String() string {
	if c.Op == AmountRange {
		return fmt.Sprintf("[amount:%s-%s]", formatNum(c.Min), formatNum(c.Max))
	}
	return fmt.Sprintf("[amount%s%s]", c.Op, formatNum(c.Value))
}

// Matches reports whether a transaction date satisfies the condition. The
// relative window is anchored at now, not the transaction date: lastNdays is
// a rolling wall-clock filter.
func (c DateCondition) Matches(txnDate, now time.Time) bool {
	day := truncateDay(txnDate)
	switch c.Op {
	case DateExact:
		return day.Equal(truncateDay(c.Value))
	case DateRange:
		start, end := truncateDay(c.Start), truncateDay(c.End)
		return !day.Before(start) && !day.After(end)
	case DateRelative:
		cutoff := truncateDay(now).AddDate(0, 0, -c.RelativeDays)
		return !day.Before(cutoff)
	case DateMonth:
		return int(txnDate.Month()) == c.Month
	}
	return false
}

// String renders the condition back to bracket syntax.
func (c DateCondition) String() string {
	switch c.Op {
	case DateExact:
		return fmt.Sprintf("[date=%s]", c.Value.Format("2006-01-02"))
	case DateRange:
		return fmt.Sprintf("[date:%s..%s]", c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	case DateRelative:
		return fmt.Sprintf("[date:last%ddays]", c.RelativeDays)
	case DateMonth:
		return fmt.Sprintf("[month=%d]", c.Month)
	}
	return ""
}

// CheckAll reports whether every condition in the parsed pattern is satisfied.
// Conditions are ANDed across both lists. A condition referencing a missing
// input never matches: absent data is conservative, not permissive.
func CheckAll(parsed *ParsedPattern, amount *float64, txnDate *time.Time) bool {
	return CheckAllAt(parsed, amount, txnDate, time.Now())
}

// CheckAllAt is CheckAll with an explicit evaluation clock for the relative
// date window.
func CheckAllAt(parsed *ParsedPattern, amount *float64, txnDate *time.Time, now time.Time) bool {
	for _, cond := range parsed.Amounts {
		if amount == nil {
			return false
		}
		if !cond.Matches(*amount) {
			return false
		}
	}

	for _, cond := range parsed.Dates {
		if txnDate == nil || txnDate.IsZero() {
			return false
		}
		if !cond.Matches(*txnDate, now) {
			return false
		}
	}

	return true
}

// String reassembles the pattern, base first then conditions in source order.
func (p *ParsedPattern) String() string {
	var b strings.Builder
	b.WriteString(p.Base)
	for _, c := range p.Amounts {
		b.WriteString(c.String())
	}
	for _, c := range p.Dates {
		b.WriteString(c.String())
	}
	return b.String()
}

func formatNum(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
