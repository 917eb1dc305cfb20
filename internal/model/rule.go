package model

// MerchantRule is one ordered entry from a rules file. Order encodes
// precedence: the first rule whose full condition set passes wins.
type MerchantRule struct {
	Pattern     string   // raw match text: regex with optional modifiers, or an expression
	Merchant    string   // normalized merchant name to assign
	Category    string
	Subcategory string
	Tags        []string
	Source      string // provenance, e.g. "user"
	Line        int    // 1-based line in the rules file, 0 if unknown
}

// Description variants a rule can match against.
const (
	VariantRaw     = "raw"
	VariantCleaned = "cleaned"
)

// MatchInfo describes which rule matched a transaction and how.
type MatchInfo struct {
	Pattern string   // the rule's raw pattern text
	Source  string   // rule provenance
	Variant string   // "raw" or "cleaned" description variant that hit
	Tags    []string // tags declared on the winning rule
	IsExpr  bool     // true when the rule was an expression, not a regex
}
