package model

// BehaviorClass buckets a merchant's spending pattern over the analysis period.
type BehaviorClass string

// Behavior class constants, mutually exclusive.
const (
	BehaviorTravel   BehaviorClass = "travel"
	BehaviorMonthly  BehaviorClass = "monthly"
	BehaviorPeriodic BehaviorClass = "periodic"
	BehaviorOneOff   BehaviorClass = "one_off"
	BehaviorVariable BehaviorClass = "variable"
)

// ClassificationResult records the behavioral class assigned to a merchant and
// the signal that drove the decision. Reasoning is required output: the explain
// surface reproduces it verbatim.
type ClassificationResult struct {
	Merchant     string
	Class        BehaviorClass
	Category     string  // category the travel decision was based on
	Reasoning    string  // which metric crossed its threshold
	CV           float64 // normalized metrics at decision time
	MonthsActive int
	Total        float64
}
