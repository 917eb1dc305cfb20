package expr

import (
	"fmt"
	"math"
	"sort"

	"github.com/tally-sh/tally/internal/model"
)

// AggContext evaluates section filter expressions against one merchant's
// aggregate. Exposed names: payments, months, category, subcategory,
// merchant, tags, cv, total, plus user variables. Statistical functions
// operate on the payments series and auto-map over by() groupings.
type AggContext struct {
	Agg        *model.MerchantAggregate
	Variables  map[string]any
	PeriodData map[string]float64 // analysis period lengths, e.g. "month": 12
}

// NewAggContext builds a context over a merchant aggregate.
func NewAggContext(agg *model.MerchantAggregate, variables map[string]any, periodData map[string]float64) *AggContext {
	return &AggContext{
		Agg:        agg,
		Variables:  variables,
		PeriodData: periodData,
	}
}

// ResolveName implements Context.
func (c *AggContext) ResolveName(name string) (any, bool) {
	if v, ok := c.Variables[name]; ok {
		return v, true
	}

	switch name {
	case "payments":
		return c.Agg.Payments, true
	case "months":
		if c.Agg.MonthsActive() == 0 {
			return 1.0, true
		}
		return float64(c.Agg.MonthsActive()), true
	case "category":
		return c.Agg.Category, true
	case "subcategory":
		return c.Agg.Subcategory, true
	case "merchant":
		return c.Agg.Merchant, true
	case "tags":
		return c.Agg.Tags, true
	case "cv":
		return c.Agg.CV, true
	case "total":
		return c.Agg.Total, true
	}
	return nil, false
}

// ResolveAttr implements Context. Aggregate expressions have no attribute
// namespace.
func (c *AggContext) ResolveAttr(base, attr string) (any, error) {
	return nil, errf(0, "unsupported attribute access: %s.%s", base, attr)
}

// CallFunction implements Context. sum, count, avg, max, min, and stddev
// accept a flat series or the nested groups produced by by(), mapping over
// the latter element-wise.
func (c *AggContext) CallFunction(name string, args []any) (any, error) {
	switch name {
	case "sum":
		return c.mapSeries(name, args, func(vals []float64) float64 {
			total := 0.0
			for _, v := range vals {
				total += v
			}
			return total
		})

	case "count":
		return c.mapSeries(name, args, func(vals []float64) float64 {
			return float64(len(vals))
		})

	case "avg":
		return c.mapSeries(name, args, mean)

	case "max":
		return c.mapSeries(name, args, func(vals []float64) float64 {
			if len(vals) == 0 {
				return 0
			}
			m := vals[0]
			for _, v := range vals[1:] {
				if v > m {
					m = v
				}
			}
			return m
		})

	case "min":
		return c.mapSeries(name, args, func(vals []float64) float64 {
			if len(vals) == 0 {
				return 0
			}
			m := vals[0]
			for _, v := range vals[1:] {
				if v < m {
					m = v
				}
			}
			return m
		})

	case "stddev":
		return c.mapSeries(name, args, sampleStddev)

	case "by":
		if len(args) != 1 {
			return nil, errf(0, "by() requires exactly 1 argument: by(field)")
		}
		field, ok := args[0].(string)
		if !ok {
			return nil, errf(0, "by() field must be a string, got %T", args[0])
		}
		return c.groupBy(field)

	case "period":
		if len(args) != 1 {
			return nil, errf(0, "period() requires exactly 1 argument: period(field)")
		}
		field, ok := args[0].(string)
		if !ok {
			return nil, errf(0, "period() field must be a string, got %T", args[0])
		}
		if v, ok := c.PeriodData[field]; ok {
			return v, nil
		}
		// Sensible defaults when the caller supplied no period data.
		switch field {
		case "month":
			return 12.0, nil
		case "year":
			return 1.0, nil
		}
		return nil, errf(0, "unknown period field: %s (use: month, year, week, day)", field)

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
	}

	return nil, errf(0, "unknown function: %s", name)
}

// mapSeries applies fn to a flat series, or element-wise to nested groups.
func (c *AggContext) mapSeries(fn string, args []any, apply func([]float64) float64) (any, error) {
	if len(args) != 1 {
		return nil, errf(0, "%s() requires exactly 1 argument: %s(series)", fn, fn)
	}

	switch series := args[0].(type) {
	case []float64:
		return apply(series), nil
	case [][]float64:
		out := make([]float64, len(series))
		for i, group := range series {
			out[i] = apply(group)
		}
		return out, nil
	}
	return nil, errf(0, "%s() requires a series, got %T", fn, args[0])
}

// groupBy buckets the aggregate's payments by a calendar field and returns
// the groups sorted by bucket key for stable ordering.
func (c *AggContext) groupBy(field string) ([][]float64, error) {
	groups := make(map[string][]float64)

	for _, txn := range c.Agg.Transactions {
		if !txn.HasDate() {
			continue
		}
		var key string
		switch field {
		case "month":
			key = txn.Date.Format("2006-01")
		case "year":
			key = txn.Date.Format("2006")
		case "day":
			key = txn.Date.Format("2006-01-02")
		case "week":
			year, week := txn.Date.ISOWeek()
			key = fmt.Sprintf("%04d-W%02d", year, week)
		default:
			return nil, errf(0, "unknown grouping field: %s (use: month, year, day, week)", field)
		}
		groups[key] = append(groups[key], txn.Amount)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out, nil
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

// sampleStddev matches the statistics convention: zero for fewer than two
// samples, n-1 denominator otherwise.
func sampleStddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	variance := 0.0
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(vals)-1))
}
