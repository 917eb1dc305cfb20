package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tally-sh/tally/internal/model"
)

func agg(category string, months []string, total, cv float64) *model.MerchantAggregate {
	return &model.MerchantAggregate{
		Merchant:     "Test Merchant",
		Category:     category,
		Months:       months,
		Total:        total,
		CV:           cv,
		IsConsistent: cv < consistencyThreshold,
	}
}

func monthKeys(n int) []string {
	keys := []string{
		"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06",
		"2025-07", "2025-08", "2025-09", "2025-10", "2025-11", "2025-12",
	}
	return keys[:n]
}

func TestClassify_TravelByCategoryOnly(t *testing.T) {
	// Travel category always wins, whatever the metrics say.
	a := agg("Travel", monthKeys(12), 120, 0.1)
	result := Classify(a, 12)
	assert.Equal(t, model.BehaviorTravel, result.Class)
	assert.Contains(t, result.Reasoning, "Travel")

	// A location-derived travel flag must never trigger the class.
	b := agg("Food", monthKeys(1), 5000, 0)
	b.IsTravel = true
	result = Classify(b, 12)
	assert.NotEqual(t, model.BehaviorTravel, result.Class)

	// And absence of the flag does not block a Travel category.
	c := agg("Travel", monthKeys(1), 50, 0)
	c.IsTravel = false
	assert.Equal(t, model.BehaviorTravel, Classify(c, 12).Class)
}

func TestClassify_Monthly(t *testing.T) {
	tests := []struct {
		name      string
		agg       *model.MerchantAggregate
		numMonths int
		want      model.BehaviorClass
	}{
		{"full year consistent", agg("Bills", monthKeys(12), 1800, 0.05), 12, model.BehaviorMonthly},
		{"nine of twelve consistent", agg("Utilities", monthKeys(9), 1400, 0.2), 12, model.BehaviorMonthly},
		{"every month of short period", agg("Bills", monthKeys(3), 450, 0.1), 3, model.BehaviorMonthly},
		{"frequent but lumpy", agg("Bills", monthKeys(12), 6000, 0.9), 12, model.BehaviorVariable},
		{"too few months", agg("Bills", monthKeys(4), 600, 0.1), 12, model.BehaviorVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.agg, tt.numMonths).Class)
		})
	}
}

func TestClassify_Periodic(t *testing.T) {
	// Tuition: four big payments across the school year.
	tuition := agg("Education", monthKeys(4), 12000, 0.4)
	result := Classify(tuition, 12)
	assert.Equal(t, model.BehaviorPeriodic, result.Class)
	assert.Contains(t, result.Reasoning, "$12000")

	// Irregular smaller bills also count when lumpy enough.
	quarterly := agg("Bills", monthKeys(3), 600, 0.8)
	assert.Equal(t, model.BehaviorPeriodic, Classify(quarterly, 12).Class)

	// A single month is never periodic, whatever the total.
	single := agg("Education", monthKeys(1), 12000, 0)
	assert.NotEqual(t, model.BehaviorPeriodic, Classify(single, 12).Class)
}

func TestClassify_OneOff(t *testing.T) {
	// Single material purchase.
	sofa := agg("Home", monthKeys(1), 1850, 0)
	result := Classify(sofa, 12)
	assert.Equal(t, model.BehaviorOneOff, result.Class)
	assert.Contains(t, result.Reasoning, "$1850")

	// Materiality gate: exactly at the threshold passes, below falls through.
	assert.Equal(t, model.BehaviorOneOff, Classify(agg("Home", monthKeys(1), 1000, 0), 12).Class)
	assert.Equal(t, model.BehaviorVariable, Classify(agg("Home", monthKeys(1), 999, 0), 12).Class)
}

func TestClassify_VariableDefault(t *testing.T) {
	restaurants := agg("Food", monthKeys(5), 800, 0.45)
	result := Classify(restaurants, 12)
	assert.Equal(t, model.BehaviorVariable, result.Class)
	assert.Contains(t, result.Reasoning, "Food")
}

func TestClassify_ReasoningNamesDecidingSignal(t *testing.T) {
	tests := []struct {
		name     string
		agg      *model.MerchantAggregate
		contains string
	}{
		{"travel names category", agg("Travel", monthKeys(2), 900, 0), "category is Travel"},
		{"monthly names cv", agg("Bills", monthKeys(12), 1800, 0.05), "cv 0.05"},
		{"periodic names total", agg("Education", monthKeys(4), 12000, 0.4), "total $12000"},
		{"one-off names total", agg("Home", monthKeys(1), 1850, 0), "total $1850"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.agg, 12)
			assert.Contains(t, result.Reasoning, tt.contains)
		})
	}
}

func TestClassify_MetricsCarried(t *testing.T) {
	a := agg("Bills", monthKeys(9), 1400, 0.2)
	result := Classify(a, 12)

	assert.Equal(t, "Test Merchant", result.Merchant)
	assert.Equal(t, "Bills", result.Category)
	assert.Equal(t, 9, result.MonthsActive)
	assert.InDelta(t, 1400, result.Total, 1e-9)
	assert.InDelta(t, 0.2, result.CV, 1e-9)
}

func TestClassifyAll(t *testing.T) {
	summary := Aggregate([]model.Transaction{
		txn("Netflix", "Entertainment", 15.99, "2025-01-05"),
		txn("Netflix", "Entertainment", 15.99, "2025-02-05"),
		txn("Netflix", "Entertainment", 15.99, "2025-03-05"),
		txn("Sofa Store", "Home", 1850, "2025-02-11"),
	})

	results := ClassifyAll(summary)
	assert.Len(t, results, 2)
	// Three month period, Netflix active in all of them.
	assert.Equal(t, model.BehaviorMonthly, results["Netflix"].Class)
	assert.Equal(t, model.BehaviorOneOff, results["Sofa Store"].Class)
}
