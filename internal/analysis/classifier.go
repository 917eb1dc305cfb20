package analysis

import (
	"fmt"

	"github.com/tally-sh/tally/internal/model"
)

const (
	// oneOffMateriality is the minimum total for a single-shot purchase to be
	// classified one_off rather than variable noise.
	oneOffMateriality = 1000.0

	// irregularCV marks a monthly-totals series as lumpy enough to be a
	// periodic bill rather than steady discretionary spend.
	irregularCV = 0.5
)

// Classify assigns one behavioral class to a merchant aggregate. Classes are
// mutually exclusive and checked in priority order; the first satisfied wins.
// numMonths is the span of the analysis period in months.
func Classify(agg *model.MerchantAggregate, numMonths int) model.ClassificationResult {
	if numMonths < 1 {
		numMonths = 1
	}

	result := model.ClassificationResult{
		Merchant:     agg.Merchant,
		Category:     agg.Category,
		CV:           agg.CV,
		MonthsActive: agg.MonthsActive(),
		Total:        agg.Total,
	}
	monthsActive := agg.MonthsActive()

	// Travel is decided by the authored category alone. The location-derived
	// IsTravel flag is deliberately ignored here: location codes are too noisy
	// to reclassify a merchant's whole history.
	if agg.Category == "Travel" {
		result.Class = model.BehaviorTravel
		result.Reasoning = fmt.Sprintf("category is %s", agg.Category)
		return result
	}

	// Monthly: a recurring bill signature. Active in most of the period with
	// consistent monthly totals.
	monthlyThreshold := max(3, (numMonths*3)/4)
	if numMonths < 4 {
		monthlyThreshold = numMonths
	}
	if monthsActive >= monthlyThreshold && agg.IsConsistent {
		result.Class = model.BehaviorMonthly
		result.Reasoning = fmt.Sprintf(
			"category %s: active %d of %d months with cv %.2f",
			agg.Category, monthsActive, numMonths, agg.CV)
		return result
	}

	// Periodic: recurring but well short of monthly, with a total too large or
	// too lumpy to be discretionary. Tuition and annual renewals land here.
	if monthsActive > 1 && monthsActive <= numMonths/2 {
		if agg.Total >= oneOffMateriality {
			result.Class = model.BehaviorPeriodic
			result.Reasoning = fmt.Sprintf(
				"category %s: active %d of %d months with total $%.0f",
				agg.Category, monthsActive, numMonths, agg.Total)
			return result
		}
		if agg.CV >= irregularCV {
			result.Class = model.BehaviorPeriodic
			result.Reasoning = fmt.Sprintf(
				"category %s: active %d of %d months with cv %.2f",
				agg.Category, monthsActive, numMonths, agg.CV)
			return result
		}
	}

	// One-off: a single active month with a material total.
	if monthsActive <= 1 && agg.Total >= oneOffMateriality {
		result.Class = model.BehaviorOneOff
		result.Reasoning = fmt.Sprintf(
			"category %s: single active month with total $%.0f",
			agg.Category, agg.Total)
		return result
	}

	result.Class = model.BehaviorVariable
	result.Reasoning = fmt.Sprintf(
		"category %s: no recurring or one-off signature (active %d of %d months, cv %.2f, total $%.0f)",
		agg.Category, monthsActive, numMonths, agg.CV, agg.Total)
	return result
}

// ClassifyAll classifies every merchant in a summary, keyed by merchant name.
func ClassifyAll(summary *Summary) map[string]model.ClassificationResult {
	results := make(map[string]model.ClassificationResult, len(summary.Merchants))
	for name, agg := range summary.Merchants {
		results[name] = Classify(agg, summary.NumMonths)
	}
	return results
}
