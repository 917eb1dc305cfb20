package model

// MerchantAggregate is the derived per-merchant view the classifier consumes.
// It is rebuilt from classified transactions on every run and never persisted.
type MerchantAggregate struct {
	Merchant      string
	Category      string
	Subcategory   string
	Tags          []string
	Months        []string // sorted YYYY-MM keys the merchant was active in
	Payments      []float64
	MonthlyTotals map[string]float64
	Transactions  []Transaction
	Count         int
	Total         float64
	MaxPayment    float64
	AvgWhenActive float64
	CV            float64 // coefficient of variation of monthly totals
	IsConsistent  bool    // cv below the consistency threshold
	IsTravel      bool    // any transaction carried a travel location
}

// MonthsActive returns the number of distinct months with activity.
func (a *MerchantAggregate) MonthsActive() int {
	return len(a.Months)
}
