package expr

// DefaultWhitelist is the set of node kinds an expression may contain. The
// parser cannot produce anything else, but validation is still a mandatory,
// separate pass: trees may arrive from other builders, and folding the check
// into evaluation would leave an unvalidated path reachable.
var DefaultWhitelist = map[NodeKind]struct{}{
	KindLiteral:     {},
	KindName:        {},
	KindUnary:       {},
	KindBinary:      {},
	KindBool:        {},
	KindCompare:     {},
	KindCall:        {},
	KindConditional: {},
	KindAttribute:   {},
}

// Validate walks a tree and rejects any node kind outside the default
// whitelist with an UnsafeNodeError.
func Validate(node Node) error {
	return ValidateAgainst(node, DefaultWhitelist)
}

// ValidateAgainst validates a tree against an explicit whitelist.
func ValidateAgainst(node Node, allowed map[NodeKind]struct{}) error {
	if node == nil {
		return &Error{Msg: "empty expression tree"}
	}
	if _, ok := allowed[node.Kind()]; !ok {
		return &UnsafeNodeError{Kind: node.Kind()}
	}
	for _, child := range node.Children() {
		if err := ValidateAgainst(child, allowed); err != nil {
			return err
		}
	}
	return nil
}
