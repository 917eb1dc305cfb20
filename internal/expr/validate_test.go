package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assignNode stands in for a node kind the parser never produces, e.g. a tree
// assembled by a hostile or buggy builder.
type assignNode struct {
	target Node
	value  Node
}

func (*assignNode) Kind() NodeKind     { return NodeKind("assign") }
func (n *assignNode) Children() []Node { return []Node{n.target, n.value} }

func TestValidate_RejectsUnknownKinds(t *testing.T) {
	tests := []struct {
		name string
		node Node
	}{
		{
			name: "disallowed root",
			node: &assignNode{target: &Name{Ident: "amount"}, value: &Literal{Value: 100.0}},
		},
		{
			name: "disallowed node buried in a well-formed tree",
			node: &Bool{Op: OpAnd, Values: []Node{
				&Literal{Value: true},
				&assignNode{target: &Name{Ident: "x"}, value: &Literal{Value: 1.0}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			require.Error(t, err)

			var unsafeErr *UnsafeNodeError
			require.ErrorAs(t, err, &unsafeErr)
			assert.Equal(t, NodeKind("assign"), unsafeErr.Kind)
		})
	}
}

func TestValidateAgainst_NarrowedWhitelist(t *testing.T) {
	// A whitelist without calls rejects function invocations that the default
	// whitelist would accept.
	noCalls := map[NodeKind]struct{}{
		KindLiteral: {}, KindName: {}, KindCompare: {},
	}

	node, err := Parse(`contains("NETFLIX")`)
	require.NoError(t, err)

	err = ValidateAgainst(node, noCalls)
	var unsafeErr *UnsafeNodeError
	require.ErrorAs(t, err, &unsafeErr)
	assert.Equal(t, KindCall, unsafeErr.Kind)
}

func TestValidate_AcceptsEverythingTheParserProduces(t *testing.T) {
	exprs := []string{
		`contains("A") and not startswith("B") or anyof("C", "D")`,
		`-amount * 2 + 1 >= 10`,
		`1 if "x" in tags else 0`,
		`field.location == "HI"`,
	}

	for _, text := range exprs {
		t.Run(text, func(t *testing.T) {
			node, err := Parse(text)
			require.NoError(t, err)
			assert.NoError(t, Validate(node))
		})
	}
}

func TestValidate_NilTree(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)

	var unsafeErr *UnsafeNodeError
	assert.False(t, errors.As(err, &unsafeErr))
}
