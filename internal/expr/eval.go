package expr

import (
	"strings"
	"time"
)

// Context supplies names and functions to the evaluator. The two concrete
// implementations are TxnContext (per-transaction matching) and AggContext
// (per-merchant section filters); their field sets differ.
type Context interface {
	// ResolveName returns the value bound to a lowercased bare name.
	ResolveName(name string) (any, bool)
	// ResolveAttr resolves dotted access such as field.memo.
	ResolveAttr(base, attr string) (any, error)
	// CallFunction invokes a named function with evaluated arguments.
	CallFunction(name string, args []any) (any, error)
}

// Evaluate walks a validated tree against a context. Callers must only pass
// trees produced by Parse or a Cache; evaluation of an unvalidated tree is a
// programming error.
func Evaluate(node Node, ctx Context) (any, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil

	case *Name:
		name := strings.ToLower(n.Ident)
		if v, ok := ctx.ResolveName(name); ok {
			return v, nil
		}
		return nil, errf(0, "unknown variable: %s", n.Ident)

	case *Attribute:
		base, ok := n.Value.(*Name)
		if !ok {
			return nil, errf(0, "unsupported attribute access")
		}
		return ctx.ResolveAttr(strings.ToLower(base.Ident), strings.ToLower(n.Attr))

	case *Unary:
		operand, err := Evaluate(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpNot:
			return !Truthy(operand), nil
		case OpNeg:
			f, ok := asNumber(operand)
			if !ok {
				return nil, errf(0, "cannot negate %T", operand)
			}
			return -f, nil
		}
		return nil, errf(0, "unknown unary operator: %s", n.Op)

	case *Bool:
		switch n.Op {
		case OpAnd:
			for _, v := range n.Values {
				val, err := Evaluate(v, ctx)
				if err != nil {
					return nil, err
				}
				if !Truthy(val) {
					return false, nil
				}
			}
			return true, nil
		case OpOr:
			for _, v := range n.Values {
				val, err := Evaluate(v, ctx)
				if err != nil {
					return nil, err
				}
				if Truthy(val) {
					return true, nil
				}
			}
			return false, nil
		}
		return nil, errf(0, "unknown boolean operator: %s", n.Op)

	case *Binary:
		left, err := Evaluate(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return applyBinary(n.Op, left, right)

	case *Compare:
		left, err := Evaluate(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		for i, op := range n.Ops {
			right, err := Evaluate(n.Comparators[i], ctx)
			if err != nil {
				return nil, err
			}
			ok, err := applyCompare(op, left, right)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil

	case *Call:
		args := make([]any, len(n.Args))
		for i, arg := range n.Args {
			v, err := Evaluate(arg, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return ctx.CallFunction(strings.ToLower(n.Func), args)

	case *Conditional:
		test, err := Evaluate(n.Test, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return Evaluate(n.Body, ctx)
		}
		return Evaluate(n.Else, ctx)
	}

	return nil, errf(0, "cannot evaluate node kind: %s", node.Kind())
}

// EvaluateBool evaluates a tree and coerces the result to a boolean.
func EvaluateBool(node Node, ctx Context) (bool, error) {
	v, err := Evaluate(node, ctx)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy coerces an evaluation result to a boolean.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case time.Time:
		return !val.IsZero()
	case []float64:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case [][]float64:
		return len(val) > 0
	}
	return true
}

func applyBinary(op BinaryOp, left, right any) (any, error) {
	l, lok := asNumber(left)
	r, rok := asNumber(right)
	if !lok || !rok {
		return nil, errf(0, "arithmetic requires numbers, got %T and %T", left, right)
	}

	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		// Division by zero yields zero rather than failing the rule; cv-style
		// ratios over empty series hit this constantly.
		if r == 0 {
			return 0.0, nil
		}
		return l / r, nil
	case OpMod:
		if r == 0 {
			return 0.0, nil
		}
		return float64(int64(l) % int64(r)), nil
	}
	return nil, errf(0, "unknown binary operator: %s", op)
}

func applyCompare(op CmpOp, left, right any) (bool, error) {
	var err error
	left, right, err = coerceDates(left, right)
	if err != nil {
		return false, err
	}

	switch op {
	case OpEq:
		return equal(left, right), nil
	case OpNotEq:
		return !equal(left, right), nil
	case OpLt, OpLtE, OpGt, OpGtE:
		return ordered(op, left, right)
	case OpIn:
		return contains(right, left)
	case OpNotIn:
		ok, err := contains(right, left)
		return !ok, err
	}
	return false, errf(0, "unknown comparison operator: %s", op)
}

// coerceDates converts a string operand to a date when compared with a date.
func coerceDates(left, right any) (any, any, error) {
	if ld, ok := left.(time.Time); ok {
		if rs, ok := right.(string); ok {
			rd, err := parseDateLiteral(rs)
			if err != nil {
				return nil, nil, err
			}
			return ld, rd, nil
		}
	}
	if rd, ok := right.(time.Time); ok {
		if ls, ok := left.(string); ok {
			ld, err := parseDateLiteral(ls)
			if err != nil {
				return nil, nil, err
			}
			return ld, rd, nil
		}
	}
	return left, right, nil
}

func parseDateLiteral(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errf(0, "invalid date format: %s (use YYYY-MM-DD)", s)
	}
	return d, nil
}

func equal(left, right any) bool {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return strings.EqualFold(ls, rs)
		}
	}
	if ld, ok := left.(time.Time); ok {
		if rd, ok := right.(time.Time); ok {
			return ld.Equal(rd)
		}
	}
	if lf, lok := asNumber(left); lok {
		if rf, rok := asNumber(right); rok {
			return lf == rf
		}
	}
	return left == right
}

func ordered(op CmpOp, left, right any) (bool, error) {
	if ld, ok := left.(time.Time); ok {
		if rd, ok := right.(time.Time); ok {
			return orderedResult(op, compareDates(ld, rd)), nil
		}
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return orderedResult(op, strings.Compare(ls, rs)), nil
		}
	}
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if lok && rok {
		switch {
		case lf < rf:
			return orderedResult(op, -1), nil
		case lf > rf:
			return orderedResult(op, 1), nil
		default:
			return orderedResult(op, 0), nil
		}
	}
	return false, errf(0, "cannot order %T and %T", left, right)
}

func orderedResult(op CmpOp, cmp int) bool {
	switch op {
	case OpLt:
		return cmp < 0
	case OpLtE:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGtE:
		return cmp >= 0
	}
	return false
}

func compareDates(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// contains implements the in operator: case-insensitive substring search on
// strings, case-insensitive membership on tag sets, value membership on
// numeric series.
func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		if n, ok := needle.(string); ok {
			return strings.Contains(strings.ToUpper(h), strings.ToUpper(n)), nil
		}
		return false, errf(0, "cannot search for %T in a string", needle)
	case []string:
		n, ok := needle.(string)
		if !ok {
			return false, errf(0, "cannot search for %T in a tag set", needle)
		}
		for _, s := range h {
			if strings.EqualFold(s, n) {
				return true, nil
			}
		}
		return false, nil
	case []float64:
		n, ok := asNumber(needle)
		if !ok {
			return false, errf(0, "cannot search for %T in a series", needle)
		}
		for _, f := range h {
			if f == n {
				return true, nil
			}
		}
		return false, nil
	}
	return false, errf(0, "in requires a string, tag set, or series on the right, got %T", haystack)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
