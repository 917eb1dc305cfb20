// Package analysis builds per-merchant aggregates from classified
// transactions and assigns each merchant a behavioral class.
package analysis

import (
	"math"
	"sort"

	"github.com/tally-sh/tally/internal/model"
)

// consistencyThreshold is the coefficient of variation below which monthly
// totals count as a regular recurring charge.
const consistencyThreshold = 0.3

// Summary is the aggregated view of one classification run.
type Summary struct {
	Merchants map[string]*model.MerchantAggregate
	ByMonth   map[string]float64
	Total     float64
	Count     int
	NumMonths int
}

// Aggregate groups classified transactions by merchant and derives the
// statistics the classifier needs. Transactions without a date contribute to
// counts and totals but not to month-based metrics.
func Aggregate(transactions []model.Transaction) *Summary {
	summary := &Summary{
		Merchants: make(map[string]*model.MerchantAggregate),
		ByMonth:   make(map[string]float64),
	}

	for _, txn := range transactions {
		summary.Total += txn.Amount
		summary.Count++

		agg, ok := summary.Merchants[txn.Merchant]
		if !ok {
			agg = &model.MerchantAggregate{
				Merchant:      txn.Merchant,
				MonthlyTotals: make(map[string]float64),
			}
			summary.Merchants[txn.Merchant] = agg
		}

		agg.Count++
		agg.Total += txn.Amount
		agg.Category = txn.Category
		agg.Subcategory = txn.Subcategory
		agg.Tags = unionTags(agg.Tags, txn.Tags)
		agg.Payments = append(agg.Payments, txn.Amount)
		agg.Transactions = append(agg.Transactions, txn)
		if txn.Amount > agg.MaxPayment {
			agg.MaxPayment = txn.Amount
		}
		if txn.IsTravel {
			agg.IsTravel = true
		}

		if txn.HasDate() {
			month := txn.MonthKey()
			agg.MonthlyTotals[month] += txn.Amount
			summary.ByMonth[month] += txn.Amount
		}
	}

	summary.NumMonths = len(summary.ByMonth)
	if summary.NumMonths == 0 {
		summary.NumMonths = 12
	}

	for _, agg := range summary.Merchants {
		finalize(agg)
	}
	return summary
}

// finalize computes the month-derived statistics once all transactions are in.
func finalize(agg *model.MerchantAggregate) {
	agg.Months = make([]string, 0, len(agg.MonthlyTotals))
	for month := range agg.MonthlyTotals {
		agg.Months = append(agg.Months, month)
	}
	sort.Strings(agg.Months)

	if n := agg.MonthsActive(); n > 0 {
		agg.AvgWhenActive = agg.Total / float64(n)
	}

	// Consistency is judged on monthly totals, not individual payments: a
	// merchant charged twice a month at half the amount is still regular.
	monthly := make([]float64, 0, len(agg.MonthlyTotals))
	for _, v := range agg.MonthlyTotals {
		monthly = append(monthly, v)
	}
	agg.CV = variationCoefficient(monthly)
	agg.IsConsistent = agg.CV < consistencyThreshold
}

// unionTags adds the new tags not already present, preserving first-seen
// order. Tag sets are tiny, so the linear scan is fine.
func unionTags(existing, added []string) []string {
	for _, tag := range added {
		found := false
		for _, have := range existing {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, tag)
		}
	}
	return existing
}

// variationCoefficient returns stddev/mean of the values, zero for fewer than
// two values or a non-positive mean.
func variationCoefficient(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / mean
}
