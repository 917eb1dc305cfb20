package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-sh/tally/internal/model"
)

func rule(pattern, merchant, category, subcategory string) model.MerchantRule {
	return model.MerchantRule{
		Pattern:     pattern,
		Merchant:    merchant,
		Category:    category,
		Subcategory: subcategory,
		Source:      "user",
	}
}

func amt(v float64) *float64 { return &v }

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO GAS", "Costco Gas", "Transport", "Gas"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
	})

	merchant, category, _, info := m.Normalize("COSTCO GAS STATION", nil, nil)
	assert.Equal(t, "Costco Gas", merchant)
	assert.Equal(t, "Transport", category)
	require.NotNil(t, info)
	assert.Equal(t, "COSTCO GAS", info.Pattern)

	// Reversed order flips the winner for overlapping rules.
	reversed := NewMatcher([]model.MerchantRule{
		rule("COSTCO", "Costco", "Food", "Grocery"),
		rule("COSTCO GAS", "Costco Gas", "Transport", "Gas"),
	})
	merchant, _, _, _ = reversed.Normalize("COSTCO GAS STATION", nil, nil)
	assert.Equal(t, "Costco", merchant)
}

func TestMatcher_NonOverlappingOrderIrrelevant(t *testing.T) {
	a := rule("NETFLIX", "Netflix", "Entertainment", "Streaming")
	b := rule("SPOTIFY", "Spotify", "Entertainment", "Music")

	forward := NewMatcher([]model.MerchantRule{a, b})
	backward := NewMatcher([]model.MerchantRule{b, a})

	for _, desc := range []string{"NETFLIX.COM", "SPOTIFY USA", "SOMETHING ELSE"} {
		m1, c1, s1, _ := forward.Normalize(desc, nil, nil)
		m2, c2, s2, _ := backward.Normalize(desc, nil, nil)
		assert.Equal(t, m1, m2, desc)
		assert.Equal(t, c1, c2, desc)
		assert.Equal(t, s1, s2, desc)
	}
}

func TestMatcher_ModifierGating(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO[amount>200]", "Costco Big Trip", "Shopping", "Bulk"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
	})

	merchant, _, _, info := m.Normalize("COSTCO WHOLESALE", amt(250), nil)
	assert.Equal(t, "Costco Big Trip", merchant)
	require.NotNil(t, info)
	assert.Equal(t, "COSTCO[amount>200]", info.Pattern)

	merchant, _, _, _ = m.Normalize("COSTCO WHOLESALE", amt(50), nil)
	assert.Equal(t, "Costco", merchant)

	// Missing amount never satisfies the modifier.
	merchant, _, _, _ = m.Normalize("COSTCO WHOLESALE", nil, nil)
	assert.Equal(t, "Costco", merchant)
}

func TestMatcher_DateModifier(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("AMAZON[month=12]", "Amazon Holiday", "Shopping", "Gifts"),
		rule("AMAZON", "Amazon", "Shopping", "Online"),
	})

	merchant, _, _, _ := m.Normalize("AMAZON.COM", nil, date("2025-12-20"))
	assert.Equal(t, "Amazon Holiday", merchant)

	merchant, _, _, _ = m.Normalize("AMAZON.COM", nil, date("2025-07-20"))
	assert.Equal(t, "Amazon", merchant)

	merchant, _, _, _ = m.Normalize("AMAZON.COM", nil, nil)
	assert.Equal(t, "Amazon", merchant)
}

func TestMatcher_ExpressionRules(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule(`contains("AMAZON") and month == 12 and amount > 100`, "Amazon Holiday", "Shopping", "Gifts"),
		rule("AMAZON", "Amazon", "Shopping", "Online"),
	})

	tests := []struct {
		name   string
		desc   string
		amount *float64
		date   *time.Time
		want   string
	}{
		{"all conjuncts", "AMAZON MKTPL", amt(150), date("2025-12-05"), "Amazon Holiday"},
		{"wrong month", "AMAZON MKTPL", amt(150), date("2025-11-05"), "Amazon"},
		{"amount too low", "AMAZON MKTPL", amt(50), date("2025-12-05"), "Amazon"},
		{"wrong description", "NETFLIX", amt(150), date("2025-12-05"), "Netflix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merchant, _, _, _ := m.Normalize(tt.desc, tt.amount, tt.date)
			assert.Equal(t, tt.want, merchant)
		})
	}
}

func TestMatcher_ExpressionMatchesCleanedVariant(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule(`startswith("BLUE BOTTLE")`, "Blue Bottle", "Food", "Coffee"),
	})

	// Raw starts with the processor prefix; only the cleaned variant matches.
	merchant, _, _, info := m.Normalize("SQ *BLUE BOTTLE COFFEE", nil, nil)
	assert.Equal(t, "Blue Bottle", merchant)
	require.NotNil(t, info)
	assert.Equal(t, model.VariantCleaned, info.Variant)
	assert.True(t, info.IsExpr)
}

func TestMatcher_RegexVariants(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("^STARBUCKS", "Starbucks", "Food", "Coffee"),
	})

	merchant, _, _, info := m.Normalize("STARBUCKS #9823", nil, nil)
	assert.Equal(t, "Starbucks", merchant)
	require.NotNil(t, info)
	assert.Equal(t, model.VariantRaw, info.Variant)

	merchant, _, _, info = m.Normalize("APLPAY STARBUCKS #9823", nil, nil)
	assert.Equal(t, "Starbucks", merchant)
	require.NotNil(t, info)
	assert.Equal(t, model.VariantCleaned, info.Variant)
}

func TestMatcher_UnknownFallback(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("NETFLIX", "Netflix", "Entertainment", "Streaming"),
	})

	merchant, category, subcategory, info := m.Normalize("LOCAL PLUMBING LLC 555-1234", nil, nil)
	assert.Equal(t, "Local Plumbing Llc", merchant)
	assert.Equal(t, "Unknown", category)
	assert.Equal(t, "Unknown", subcategory)
	assert.Nil(t, info)
}

func TestMatcher_BadRuleSkipped(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("[invalid(regex", "Broken", "X", "Y"),
		rule(`frobnicate(description)`, "Broken Expr", "X", "Y"),
		rule("NETFLIX", "Netflix", "Entertainment", "Streaming"),
	})

	merchant, _, _, _ := m.Normalize("NETFLIX.COM", nil, nil)
	assert.Equal(t, "Netflix", merchant)
}

func TestMatcher_UppercaseRegexNotSniffedAsExpression(t *testing.T) {
	// Boolean keywords in upper case are ordinary regex text.
	m := NewMatcher([]model.MerchantRule{
		rule("BED BATH AND BEYOND", "Bed Bath & Beyond", "Home", "Goods"),
		rule("IN N OUT", "In-N-Out", "Food", "Restaurant"),
	})

	merchant, _, _, info := m.Normalize("BED BATH AND BEYOND #42", nil, nil)
	assert.Equal(t, "Bed Bath & Beyond", merchant)
	require.NotNil(t, info)
	assert.False(t, info.IsExpr)
}

func TestMatcher_ModifierSyntaxNotSniffedAsExpression(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO[amount>=200]", "Costco Big Trip", "Shopping", "Bulk"),
	})

	merchant, _, _, info := m.Normalize("COSTCO WHOLESALE", amt(200), nil)
	assert.Equal(t, "Costco Big Trip", merchant)
	require.NotNil(t, info)
	assert.False(t, info.IsExpr)
}

func TestMatcher_ExpressionWithModifier(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule(`contains("COSTCO")[month=12]`, "Costco December", "Shopping", "Holiday"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
	})

	merchant, _, _, info := m.Normalize("COSTCO WHOLESALE", nil, date("2025-12-20"))
	assert.Equal(t, "Costco December", merchant)
	require.NotNil(t, info)
	assert.True(t, info.IsExpr)

	// Outside December the modifier blocks the expression rule.
	merchant, _, _, _ = m.Normalize("COSTCO WHOLESALE", nil, date("2025-06-20"))
	assert.Equal(t, "Costco", merchant)

	// A missing date can never satisfy the condition.
	merchant, _, _, _ = m.Normalize("COSTCO WHOLESALE", nil, nil)
	assert.Equal(t, "Costco", merchant)
}

func TestMatcher_MatchInfoCarriesRuleTags(t *testing.T) {
	tagged := rule("COSTCO", "Costco", "Food", "Grocery")
	tagged.Tags = []string{"bulk", "warehouse"}
	m := NewMatcher([]model.MerchantRule{tagged})

	_, _, _, info := m.Normalize("COSTCO WHOLESALE", nil, nil)
	require.NotNil(t, info)
	assert.Equal(t, []string{"bulk", "warehouse"}, info.Tags)

	// The fallback has no rule, so no tags.
	_, _, _, info = m.Normalize("UNSEEN VENDOR", nil, nil)
	assert.Nil(t, info)
}

func TestMatcher_NormalizeTransaction(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO[amount>200]", "Costco Big Trip", "Shopping", "Bulk"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
	})

	txn := model.Transaction{RawDescription: "COSTCO WHOLESALE", Amount: 250}
	merchant, _, _, _ := m.NormalizeTransaction(txn)
	assert.Equal(t, "Costco Big Trip", merchant)
}

func TestMatcher_UserVariables(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule(`contains("COSTCO") and amount > big_purchase`, "Costco Big Trip", "Shopping", "Bulk"),
	}, WithVariables(map[string]any{"big_purchase": 300.0}))

	merchant, _, _, _ := m.Normalize("COSTCO WHOLESALE", amt(500), nil)
	assert.Equal(t, "Costco Big Trip", merchant)

	merchant, _, _, _ = m.Normalize("COSTCO WHOLESALE", amt(100), nil)
	assert.Equal(t, "Costco Wholesale", merchant)
}

func TestExplain_AgreesWithNormalize(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO GAS", "Costco Gas", "Transport", "Gas"),
		rule("COSTCO[amount>200]", "Costco Big Trip", "Shopping", "Bulk"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
		rule(`contains("AMAZON") and month == 12`, "Amazon Holiday", "Shopping", "Gifts"),
	})

	cases := []struct {
		desc   string
		amount *float64
		date   *time.Time
	}{
		{"COSTCO GAS STATION", nil, nil},
		{"COSTCO WHOLESALE", amt(250), nil},
		{"COSTCO WHOLESALE", amt(50), nil},
		{"AMAZON MKTPL", amt(20), date("2025-12-01")},
		{"UNMATCHED VENDOR", nil, nil},
	}

	for _, tc := range cases {
		merchant, category, subcategory, info := m.Normalize(tc.desc, tc.amount, tc.date)
		trace := m.Explain(tc.desc, tc.amount, tc.date)

		assert.Equal(t, merchant, trace.Merchant, tc.desc)
		assert.Equal(t, category, trace.Category, tc.desc)
		assert.Equal(t, subcategory, trace.Subcategory, tc.desc)
		assert.Equal(t, info == nil, trace.IsUnknown, tc.desc)
	}
}

func TestExplain_Trace(t *testing.T) {
	m := NewMatcher([]model.MerchantRule{
		rule("COSTCO GAS", "Costco Gas", "Transport", "Gas"),
		rule("COSTCO[amount>200]", "Costco Big Trip", "Shopping", "Bulk"),
		rule("COSTCO", "Costco", "Food", "Grocery"),
	})

	trace := m.Explain("COSTCO WHOLESALE", amt(50), nil)

	require.Len(t, trace.Steps, 3)
	assert.False(t, trace.Steps[0].PatternHit)
	assert.True(t, trace.Steps[1].PatternHit)
	assert.True(t, trace.Steps[1].ModifierFailed)
	assert.False(t, trace.Steps[1].Matched)
	assert.True(t, trace.Steps[2].Matched)

	matched := trace.MatchedStep()
	require.NotNil(t, matched)
	assert.Equal(t, "COSTCO", matched.Pattern)
	assert.False(t, trace.IsUnknown)

	unknown := m.Explain("MYSTERY VENDOR", nil, nil)
	assert.True(t, unknown.IsUnknown)
	assert.Nil(t, unknown.MatchedStep())
}
