package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	exprs := []string{
		`contains("NETFLIX")`,
		`contains("AMAZON") and month == 12 and amount > 100`,
		`regex("UBER\s(?!EATS)")`,
		`not contains("REFUND")`,
		`amount > 100 or amount < -100`,
		`"recurring" in tags`,
		`"ACH" not in description`,
		`stddev(payments) / avg(payments) < 0.3`,
		`sum(by("month")) `,
		`anyof("UBER", "LYFT", "TAXI")`,
		`fuzzy("STARBUCKS", 0.75)`,
		`abs(amount) >= 19.99`,
		`100 if months > 6 else 50`,
		`(amount + 10) * 2 > 50`,
		`10 < amount <= 100`,
		`true`,
		`False`,
		`field.location == "WA"`,
		`date >= "2025-01-01"`,
	}

	for _, text := range exprs {
		t.Run(text, func(t *testing.T) {
			node, err := Parse(text)
			require.NoError(t, err)
			require.NotNil(t, node)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unterminated string", `contains("NETFLIX`},
		{"dangling operator", `amount >`},
		{"unbalanced parens", `contains("A"`},
		{"empty input", ``},
		{"assignment is not an expression", `amount = 100`},
		{"trailing garbage", `amount > 100 )`},
		{"bad number", `amount > 1.2.3`},
		{"lone not before comparison target", `amount not 100`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)

			var exprErr *Error
			assert.ErrorAs(t, err, &exprErr, "syntax errors must be *Error")
			var unsafeErr *UnsafeNodeError
			assert.False(t, errors.As(err, &unsafeErr), "syntax error misreported as unsafe")
		})
	}
}

func TestParse_Shape(t *testing.T) {
	t.Run("boolean chain flattens", func(t *testing.T) {
		node, err := Parse(`a and b and c`)
		require.NoError(t, err)
		b, ok := node.(*Bool)
		require.True(t, ok)
		assert.Equal(t, OpAnd, b.Op)
		assert.Len(t, b.Values, 3)
	})

	t.Run("precedence and before or", func(t *testing.T) {
		node, err := Parse(`a or b and c`)
		require.NoError(t, err)
		b, ok := node.(*Bool)
		require.True(t, ok)
		assert.Equal(t, OpOr, b.Op)
		require.Len(t, b.Values, 2)
		inner, ok := b.Values[1].(*Bool)
		require.True(t, ok)
		assert.Equal(t, OpAnd, inner.Op)
	})

	t.Run("chained comparison", func(t *testing.T) {
		node, err := Parse(`10 < amount <= 100`)
		require.NoError(t, err)
		c, ok := node.(*Compare)
		require.True(t, ok)
		assert.Equal(t, []CmpOp{OpLt, OpLtE}, c.Ops)
	})

	t.Run("not in is a single operator", func(t *testing.T) {
		node, err := Parse(`"X" not in tags`)
		require.NoError(t, err)
		c, ok := node.(*Compare)
		require.True(t, ok)
		assert.Equal(t, []CmpOp{OpNotIn}, c.Ops)
	})

	t.Run("conditional", func(t *testing.T) {
		node, err := Parse(`1 if amount > 0 else 2`)
		require.NoError(t, err)
		_, ok := node.(*Conditional)
		require.True(t, ok)
	})

	t.Run("regex escapes survive the lexer", func(t *testing.T) {
		node, err := Parse(`regex("UBER\s*EATS")`)
		require.NoError(t, err)
		call, ok := node.(*Call)
		require.True(t, ok)
		lit, ok := call.Args[0].(*Literal)
		require.True(t, ok)
		assert.Equal(t, `UBER\s*EATS`, lit.Value)
	})
}
