// Package engine implements rule matching: it normalizes raw transaction
// descriptions into merchant, category, and subcategory using an ordered rule
// list. First match wins; rule order is the conflict resolution policy.
package engine

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tally-sh/tally/internal/expr"
	"github.com/tally-sh/tally/internal/model"
	"github.com/tally-sh/tally/internal/modifier"
)

// matchSpec is the compiled form of a rule's pattern text, decided once at
// build time: either a regex with optional modifier conditions, or a
// validated expression tree.
type matchSpec struct {
	parsed *modifier.ParsedPattern
	regex  *regexp.Regexp
	tree   expr.Node
}

func (s *matchSpec) isExpr() bool { return s.tree != nil }

type compiledRule struct {
	rule model.MerchantRule
	spec matchSpec
	err  error
}

// Matcher matches transactions against an ordered rule list. Build it once
// per run; it is safe for concurrent use after construction.
type Matcher struct {
	rules   []compiledRule
	cleaner *Cleaner
	cache   *expr.Cache
	vars    map[string]any

	// now supplies the evaluation clock for relative date modifiers.
	now func() time.Time
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithCleaner replaces the default description cleaner.
func WithCleaner(c *Cleaner) Option {
	return func(m *Matcher) { m.cleaner = c }
}

// WithVariables supplies user variables to expression rules.
func WithVariables(vars map[string]any) Option {
	return func(m *Matcher) { m.vars = vars }
}

// WithClock overrides the evaluation clock used by relative date modifiers.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// NewMatcher compiles the rules in order. A rule whose pattern fails to
// compile is kept in place but never matches; the error surfaces through
// Explain so a bad rule is visible without aborting the run.
func NewMatcher(rules []model.MerchantRule, opts ...Option) *Matcher {
	m := &Matcher{
		cleaner: NewCleaner(nil),
		cache:   expr.NewCache(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.rules = make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		compiled := compiledRule{rule: rule}
		compiled.spec, compiled.err = m.compile(rule.Pattern)
		if compiled.err != nil {
			slog.Debug("rule failed to compile, it will never match",
				"pattern", rule.Pattern,
				"source", rule.Source,
				"error", compiled.err)
		}
		m.rules = append(m.rules, compiled)
	}
	return m
}

// compile sniffs the pattern text and builds the matching spec. Modifier
// blocks are stripped before sniffing so their comparison syntax (for example
// [amount>=200]) never masquerades as an expression operator; the stripped
// conditions gate both regex and expression rules at match time.
func (m *Matcher) compile(pattern string) (matchSpec, error) {
	parsed, perr := modifier.Parse(pattern)
	if perr != nil {
		// Malformed modifier syntax: treat the whole text as a plain regex,
		// matching how hand-edited rule files degrade in practice.
		parsed = &modifier.ParsedPattern{Base: pattern}
	}

	if LooksLikeExpression(parsed.Base) {
		tree, err := m.cache.Expression(parsed.Base)
		if err != nil {
			return matchSpec{}, err
		}
		return matchSpec{parsed: parsed, tree: tree}, nil
	}

	re, err := m.cache.Regexp(parsed.Base)
	if err != nil {
		return matchSpec{}, err
	}
	return matchSpec{parsed: parsed, regex: re}, nil
}

var exprFuncCallRe = regexp.MustCompile(
	`^\s*(?i:not\s+)?(?i:contains|regex|normalized|anyof|startswith|fuzzy|abs|round|extract|split|substring|trim|regex_replace|uppercase|lowercase|strip_prefix|strip_suffix)\s*\(`)

var exprOperatorRe = regexp.MustCompile(
	`(==|!=|>=|<=)|(^|\s)(and|or|not|in)(\s|$)`)

// LooksLikeExpression decides regex vs expression once per rule. Regex
// patterns freely use parentheses and brackets, so the sniff keys on known
// function call prefixes and boolean or comparison operators instead. The
// keyword check is case sensitive: merchant regexes are conventionally upper
// case ("BED BATH AND BEYOND"), expressions lower case.
func LooksLikeExpression(pattern string) bool {
	if exprFuncCallRe.MatchString(pattern) {
		return true
	}
	return exprOperatorRe.MatchString(pattern)
}

// Normalize resolves a description to (merchant, category, subcategory,
// match info). Rules are tried in configured order against the raw and then
// cleaned description; a rule with modifier conditions only wins when they
// all pass too. A nil amount or date means that datum is absent and any
// condition requiring it fails. When no rule matches, the merchant name is
// derived from the description and the category is Unknown with nil info.
func (m *Matcher) Normalize(description string, amount *float64, date *time.Time) (string, string, string, *model.MatchInfo) {
	result := m.scan(description, amount, date, nil)
	return result.Merchant, result.Category, result.Subcategory, result.Info
}

// NormalizeTransaction is Normalize over a model.Transaction.
func (m *Matcher) NormalizeTransaction(txn model.Transaction) (string, string, string, *model.MatchInfo) {
	var amount *float64
	var date *time.Time
	a := txn.Amount
	amount = &a
	if txn.HasDate() {
		d := txn.Date
		date = &d
	}
	return m.Normalize(txn.RawDescription, amount, date)
}

// Clean exposes the matcher's description cleaner.
func (m *Matcher) Clean(description string) string {
	return m.cleaner.Clean(description)
}

type scanResult struct {
	Merchant    string
	Category    string
	Subcategory string
	Info        *model.MatchInfo
}

// scan is the single decision procedure behind Normalize and Explain. The
// trace argument, when non-nil, records every rule consulted; it must never
// change which rule wins.
func (m *Matcher) scan(description string, amount *float64, date *time.Time, trace *Trace) scanResult {
	cleaned := m.cleaner.Clean(description)
	rawUpper := strings.ToUpper(description)
	cleanedUpper := strings.ToUpper(cleaned)

	if trace != nil {
		trace.Description = description
		trace.Cleaned = cleaned
	}

	for _, compiled := range m.rules {
		variant, matched := m.ruleMatches(compiled, rawUpper, cleanedUpper, amount, date, trace)
		if !matched {
			continue
		}

		info := &model.MatchInfo{
			Pattern: compiled.rule.Pattern,
			Source:  compiled.rule.Source,
			Variant: variant,
			Tags:    compiled.rule.Tags,
			IsExpr:  compiled.spec.isExpr(),
		}
		return scanResult{
			Merchant:    compiled.rule.Merchant,
			Category:    compiled.rule.Category,
			Subcategory: compiled.rule.Subcategory,
			Info:        info,
		}
	}

	return scanResult{
		Merchant:    m.cleaner.ExtractMerchantName(description),
		Category:    "Unknown",
		Subcategory: "Unknown",
	}
}

// ruleMatches evaluates one rule against both description variants. Errors
// scoped to this rule are swallowed: one bad rule must not abort the scan.
func (m *Matcher) ruleMatches(compiled compiledRule, rawUpper, cleanedUpper string, amount *float64, date *time.Time, trace *Trace) (string, bool) {
	step := RuleTrace{
		Pattern:  compiled.rule.Pattern,
		Merchant: compiled.rule.Merchant,
		Source:   compiled.rule.Source,
		IsExpr:   compiled.spec.isExpr(),
	}
	defer func() {
		if trace != nil {
			trace.Steps = append(trace.Steps, step)
		}
	}()

	if compiled.err != nil {
		step.Error = compiled.err.Error()
		return "", false
	}

	if compiled.spec.isExpr() {
		for _, candidate := range []struct {
			variant string
			text    string
		}{
			{model.VariantRaw, rawUpper},
			{model.VariantCleaned, cleanedUpper},
		} {
			ok, err := m.evalExpr(compiled.spec.tree, candidate.text, amount, date)
			if err != nil {
				step.Error = err.Error()
				return "", false
			}
			if ok {
				step.PatternHit = true
				step.Variant = candidate.variant
				if compiled.spec.parsed.HasConditions() {
					if !modifier.CheckAllAt(compiled.spec.parsed, amount, date, m.now()) {
						step.ModifierFailed = true
						return "", false
					}
				}
				step.Matched = true
				return candidate.variant, true
			}
		}
		return "", false
	}

	variant := ""
	switch {
	case compiled.spec.regex.MatchString(rawUpper):
		variant = model.VariantRaw
	case compiled.spec.regex.MatchString(cleanedUpper):
		variant = model.VariantCleaned
	default:
		return "", false
	}
	step.PatternHit = true
	step.Variant = variant

	if compiled.spec.parsed.HasConditions() {
		if !modifier.CheckAllAt(compiled.spec.parsed, amount, date, m.now()) {
			step.ModifierFailed = true
			return "", false
		}
	}

	step.Matched = true
	return variant, true
}

func (m *Matcher) evalExpr(tree expr.Node, description string, amount *float64, date *time.Time) (bool, error) {
	txn := model.Transaction{RawDescription: description}
	if amount != nil {
		txn.Amount = *amount
	}
	if date != nil {
		txn.Date = *date
	}
	ctx := expr.NewTxnContext(txn, m.vars, m.cache)
	return expr.EvaluateBool(tree, ctx)
}
