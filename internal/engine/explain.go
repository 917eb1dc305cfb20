package engine

import "time"

// RuleTrace records how one rule fared during a scan.
type RuleTrace struct {
	Pattern        string `json:"pattern"`
	Merchant       string `json:"merchant"`
	Source         string `json:"source"`
	Variant        string `json:"variant,omitempty"`
	Error          string `json:"error,omitempty"`
	IsExpr         bool   `json:"is_expr"`
	PatternHit     bool   `json:"pattern_hit"`
	ModifierFailed bool   `json:"modifier_failed"`
	Matched        bool   `json:"matched"`
}

// Trace is the full diagnostic record for one description: every rule
// consulted, in order, plus the final decision.
type Trace struct {
	Description string      `json:"description"`
	Cleaned     string      `json:"cleaned"`
	Steps       []RuleTrace `json:"steps"`
	Merchant    string      `json:"merchant"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	IsUnknown   bool        `json:"is_unknown"`
}

// MatchedStep returns the winning rule's trace entry, or nil when the
// description fell through to the Unknown fallback.
func (t *Trace) MatchedStep() *RuleTrace {
	for i := range t.Steps {
		if t.Steps[i].Matched {
			return &t.Steps[i]
		}
	}
	return nil
}

// Explain runs the same decision procedure as Normalize with full
// instrumentation. For identical inputs the final merchant, category, and
// subcategory always agree with Normalize.
func (m *Matcher) Explain(description string, amount *float64, date *time.Time) *Trace {
	trace := &Trace{}
	result := m.scan(description, amount, date, trace)
	trace.Merchant = result.Merchant
	trace.Category = result.Category
	trace.Subcategory = result.Subcategory
	trace.IsUnknown = result.Info == nil
	return trace
}
