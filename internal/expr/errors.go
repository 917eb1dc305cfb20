// Package expr implements the restricted expression language used by merchant
// rules and section filters.
//
// Expressions are parsed by a hand-written tokenizer and parser into a small
// syntax tree, then validated against an explicit whitelist of node kinds
// before any evaluation happens. Parsing and validation are both mandatory:
// a tree that has not passed validation must never be evaluated. Evaluation
// is pure given its context and performs no I/O.
package expr

import "fmt"

// Error reports a syntax, literal, or evaluation problem in an expression.
type Error struct {
	Msg string
	Pos int // 1-based rune offset into the expression, 0 if not positional
}

func (e *Error) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
	}
	return e.Msg
}

func errf(pos int, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// UnsafeNodeError signals that an expression tree contains a node kind outside
// the whitelist. It is a security boundary, not a typo: callers must never
// conflate it with an ordinary syntax error.
type UnsafeNodeError struct {
	Kind NodeKind
}

func (e *UnsafeNodeError) Error() string {
	return fmt.Sprintf("disallowed node kind: %s", e.Kind)
}
