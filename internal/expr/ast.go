package expr

// NodeKind identifies a syntax tree node for whitelist validation.
type NodeKind string

// Node kinds the parser can produce.
const (
	KindLiteral     NodeKind = "literal"
	KindName        NodeKind = "name"
	KindUnary       NodeKind = "unary"
	KindBinary      NodeKind = "binary"
	KindBool        NodeKind = "bool"
	KindCompare     NodeKind = "compare"
	KindCall        NodeKind = "call"
	KindConditional NodeKind = "conditional"
	KindAttribute   NodeKind = "attribute"
)

// Node is a single expression tree node.
type Node interface {
	Kind() NodeKind
	Children() []Node
}

// Literal is a string, number, or boolean constant.
type Literal struct {
	Value any
}

func (*Literal) Kind() NodeKind   { return KindLiteral }
func (*Literal) Children() []Node { return nil }

// Name is a bare identifier resolved from the evaluation context.
type Name struct {
	Ident string
}

func (*Name) Kind() NodeKind   { return KindName }
func (*Name) Children() []Node { return nil }

// UnaryOp is a unary operator.
type UnaryOp string

// Unary operators.
const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "-"
)

// Unary applies a unary operator to its operand.
type Unary struct {
	Operand Node
	Op      UnaryOp
}

func (*Unary) Kind() NodeKind     { return KindUnary }
func (u *Unary) Children() []Node { return []Node{u.Operand} }

// BinaryOp is an arithmetic operator.
type BinaryOp string

// Binary operators.
const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
)

// Binary applies an arithmetic operator to two operands.
type Binary struct {
	Left  Node
	Right Node
	Op    BinaryOp
}

func (*Binary) Kind() NodeKind     { return KindBinary }
func (b *Binary) Children() []Node { return []Node{b.Left, b.Right} }

// BoolOp is a short-circuiting boolean operator.
type BoolOp string

// Boolean operators.
const (
	OpAnd BoolOp = "and"
	OpOr  BoolOp = "or"
)

// Bool chains two or more operands under and/or.
type Bool struct {
	Values []Node
	Op     BoolOp
}

func (*Bool) Kind() NodeKind     { return KindBool }
func (b *Bool) Children() []Node { return b.Values }

// CmpOp is a comparison or membership operator.
type CmpOp string

// Comparison operators.
const (
	OpEq    CmpOp = "=="
	OpNotEq CmpOp = "!="
	OpLt    CmpOp = "<"
	OpLtE   CmpOp = "<="
	OpGt    CmpOp = ">"
	OpGtE   CmpOp = ">="
	OpIn    CmpOp = "in"
	OpNotIn CmpOp = "not in"
)

// Compare is a chained comparison: a < b <= c evaluates pairwise.
type Compare struct {
	Left        Node
	Comparators []Node
	Ops         []CmpOp
}

func (*Compare) Kind() NodeKind { return KindCompare }
func (c *Compare) Children() []Node {
	children := make([]Node, 0, len(c.Comparators)+1)
	children = append(children, c.Left)
	children = append(children, c.Comparators...)
	return children
}

// Call invokes a context function by name.
type Call struct {
	Func string
	Args []Node
}

func (*Call) Kind() NodeKind     { return KindCall }
func (c *Call) Children() []Node { return c.Args }

// Conditional is the ternary form: Body if Test else Else.
type Conditional struct {
	Test Node
	Body Node
	Else Node
}

func (*Conditional) Kind() NodeKind { return KindConditional }
func (c *Conditional) Children() []Node {
	return []Node{c.Test, c.Body, c.Else}
}

// Attribute is dotted access such as field.memo.
type Attribute struct {
	Value Node
	Attr  string
}

func (*Attribute) Kind() NodeKind     { return KindAttribute }
func (a *Attribute) Children() []Node { return []Node{a.Value} }
