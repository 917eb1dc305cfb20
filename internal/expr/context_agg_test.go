package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-sh/tally/internal/model"
)

func mkAgg() *model.MerchantAggregate {
	txns := []model.Transaction{
		mkTxn("NETFLIX.COM", 15.99, "2025-01-05"),
		mkTxn("NETFLIX.COM", 15.99, "2025-02-05"),
		mkTxn("NETFLIX.COM", 17.99, "2025-03-05"),
		mkTxn("NETFLIX.COM", 17.99, "2025-03-20"),
	}
	return &model.MerchantAggregate{
		Merchant:     "Netflix",
		Category:     "Entertainment",
		Subcategory:  "Streaming",
		Tags:         []string{"subscription", "media"},
		Months:       []string{"2025-01", "2025-02", "2025-03"},
		Payments:     []float64{15.99, 15.99, 17.99, 17.99},
		Transactions: txns,
		Count:        4,
		Total:        67.96,
		CV:           0.12,
	}
}

func evalAgg(t *testing.T, text string, ctx *AggContext) any {
	t.Helper()
	node, err := Parse(text)
	require.NoError(t, err)
	v, err := Evaluate(node, ctx)
	require.NoError(t, err)
	return v
}

func TestAggContext_Names(t *testing.T) {
	ctx := NewAggContext(mkAgg(), nil, nil)

	tests := []struct {
		expr string
		want any
	}{
		{`merchant`, "Netflix"},
		{`category`, "Entertainment"},
		{`subcategory`, "Streaming"},
		{`months`, 3.0},
		{`total`, 67.96},
		{`cv`, 0.12},
		{`category == "entertainment"`, true},
		{`"subscription" in tags`, true},
		{`"grocery" in tags`, false},
		{`"grocery" not in tags`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, evalAgg(t, tt.expr, ctx))
		})
	}
}

func TestAggContext_MonthsNeverZero(t *testing.T) {
	agg := &model.MerchantAggregate{Merchant: "Unknown"}
	ctx := NewAggContext(agg, nil, nil)

	assert.Equal(t, 1.0, evalAgg(t, `months`, ctx))
	// months is a safe divisor even for undated merchants.
	assert.Equal(t, 0.0, evalAgg(t, `total / months`, ctx))
}

func TestAggContext_Statistics(t *testing.T) {
	ctx := NewAggContext(mkAgg(), nil, nil)

	tests := []struct {
		expr string
		want float64
	}{
		{`sum(payments)`, 67.96},
		{`count(payments)`, 4.0},
		{`avg(payments)`, 16.99},
		{`max(payments)`, 17.99},
		{`min(payments)`, 15.99},
		{`sum(payments) / months`, 67.96 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := evalAgg(t, tt.expr, ctx).(float64)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAggContext_Stddev(t *testing.T) {
	ctx := NewAggContext(mkAgg(), nil, nil)

	got, ok := evalAgg(t, `stddev(payments)`, ctx).(float64)
	require.True(t, ok)
	// Sample stddev of {15.99, 15.99, 17.99, 17.99}.
	assert.InDelta(t, 1.1547, got, 1e-3)

	single := &model.MerchantAggregate{Payments: []float64{42}}
	got, ok = evalAgg(t, `stddev(payments)`, NewAggContext(single, nil, nil)).(float64)
	require.True(t, ok)
	assert.Equal(t, 0.0, got)
}

func TestAggContext_GroupBy(t *testing.T) {
	ctx := NewAggContext(mkAgg(), nil, nil)

	// Three month buckets; March holds two payments.
	groups, ok := evalAgg(t, `by("month")`, ctx).([][]float64)
	require.True(t, ok)
	require.Len(t, groups, 3)
	assert.Equal(t, []float64{15.99}, groups[0])
	assert.Equal(t, []float64{15.99}, groups[1])
	assert.Equal(t, []float64{17.99, 17.99}, groups[2])

	// Statistics auto-map over the groups.
	sums, ok := evalAgg(t, `sum(by("month"))`, ctx).([]float64)
	require.True(t, ok)
	assert.InDelta(t, 35.98, sums[2], 1e-9)

	counts, ok := evalAgg(t, `count(by("year"))`, ctx).([]float64)
	require.True(t, ok)
	assert.Equal(t, []float64{4}, counts)

	// Grouped counts feed back into comparisons.
	assert.Equal(t, true, evalAgg(t, `max(count(by("month"))) > 1`, ctx))
}

func TestAggContext_GroupBySkipsUndated(t *testing.T) {
	agg := mkAgg()
	agg.Transactions = append(agg.Transactions, mkTxn("NETFLIX.COM", 9.99, ""))
	ctx := NewAggContext(agg, nil, nil)

	groups, ok := evalAgg(t, `by("day")`, ctx).([][]float64)
	require.True(t, ok)
	assert.Len(t, groups, 4)
}

func TestAggContext_Period(t *testing.T) {
	withData := NewAggContext(mkAgg(), nil, map[string]float64{"month": 6})
	assert.Equal(t, 6.0, evalAgg(t, `period("month")`, withData))

	defaults := NewAggContext(mkAgg(), nil, nil)
	assert.Equal(t, 12.0, evalAgg(t, `period("month")`, defaults))
	assert.Equal(t, 1.0, evalAgg(t, `period("year")`, defaults))

	// Average monthly spend over the full analysis period.
	got, ok := evalAgg(t, `sum(payments) / period("month")`, defaults).(float64)
	require.True(t, ok)
	assert.InDelta(t, 67.96/12.0, got, 1e-9)
}

func TestAggContext_Errors(t *testing.T) {
	ctx := NewAggContext(mkAgg(), nil, nil)

	tests := []struct {
		name string
		expr string
	}{
		{"unknown name", `memo == "x"`},
		{"attribute access", `field.amount > 10`},
		{"unknown grouping field", `by("decade")`},
		{"unknown period field", `period("decade")`},
		{"sum of non-series", `sum(total)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.expr)
			require.NoError(t, err)
			_, err = Evaluate(node, ctx)
			assert.Error(t, err)
		})
	}
}

func TestAggContext_SectionFilters(t *testing.T) {
	netflix := NewAggContext(mkAgg(), nil, nil)
	oneOff := NewAggContext(&model.MerchantAggregate{
		Merchant: "Furniture Depot",
		Category: "Home",
		Months:   []string{"2025-02"},
		Payments: []float64{1850},
		Transactions: []model.Transaction{
			mkTxn("FURNITURE DEPOT", 1850, "2025-02-11"),
		},
		Total: 1850,
	}, nil, nil)

	tests := []struct {
		name   string
		filter string
		wantNF bool
		wantFD bool
	}{
		{"recurring", `months > 1 and count(payments) >= months`, true, false},
		{"large one-time", `months == 1 and total >= 1000`, false, true},
		{"entertainment", `category == "Entertainment"`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.filter)
			require.NoError(t, err)

			got, err := EvaluateBool(node, netflix)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNF, got, "netflix")

			got, err = EvaluateBool(node, oneOff)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFD, got, "one-off")
		})
	}
}
