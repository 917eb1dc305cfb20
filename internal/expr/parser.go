package expr

import "strconv"

// Parse builds and validates the syntax tree for an expression. The returned
// tree has passed whitelist validation and is safe to evaluate. Callers that
// parse the same expression repeatedly should go through a Cache instead.
func Parse(input string) (Node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	node, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokEOF {
		return nil, errf(p.peek().pos, "unexpected trailing input %q", p.peek().text)
	}

	if err := Validate(node); err != nil {
		return nil, err
	}
	return node, nil
}

// parser is a recursive-descent parser over the token stream. Precedence,
// lowest to highest: conditional, or, and, not, comparison, additive,
// multiplicative, unary minus, primary.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(typ tokenType, text string) bool {
	t := p.peek()
	if t.typ == typ && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(typ tokenType, text string) error {
	if !p.accept(typ, text) {
		return errf(p.peek().pos, "expected %q, found %q", text, p.peek().text)
	}
	return nil
}

// parseConditional handles the ternary form: body if test else orelse.
func (p *parser) parseConditional() (Node, error) {
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if !p.accept(tokKeyword, "if") {
		return body, nil
	}

	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokKeyword, "else"); err != nil {
		return nil, err
	}
	orelse, err := p.parseConditional()
	if err != nil {
		return nil, err
	}

	return &Conditional{Test: test, Body: body, Else: orelse}, nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokKeyword || p.peek().text != "or" {
		return left, nil
	}

	values := []Node{left}
	for p.accept(tokKeyword, "or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, right)
	}
	return &Bool{Op: OpOr, Values: values}, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokKeyword || p.peek().text != "and" {
		return left, nil
	}

	values := []Node{left}
	for p.accept(tokKeyword, "and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		values = append(values, right)
	}
	return &Bool{Op: OpAnd, Values: values}, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.accept(tokKeyword, "not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	var ops []CmpOp
	var comparators []Node
	for {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}

	if len(ops) == 0 {
		return left, nil
	}
	return &Compare{Left: left, Ops: ops, Comparators: comparators}, nil
}

// comparisonOp consumes a comparison operator if one is next, handling the
// two-token "not in" form.
func (p *parser) comparisonOp() (CmpOp, bool) {
	t := p.peek()
	if t.typ == tokOp {
		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=":
			p.pos++
			return CmpOp(t.text), true
		}
		return "", false
	}
	if t.typ == tokKeyword && t.text == "in" {
		p.pos++
		return OpIn, true
	}
	if t.typ == tokKeyword && t.text == "not" {
		// Lookahead for "not in"; a bare "not" here is a syntax error caught
		// downstream, so only consume when "in" follows.
		if p.tokens[p.pos+1].typ == tokKeyword && p.tokens[p.pos+1].text == "in" {
			p.pos += 2
			return OpNotIn, true
		}
	}
	return "", false
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.typ != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: BinaryOp(t.text), Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.typ != tokOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: BinaryOp(t.text), Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	if t.typ == tokOp && t.text == "-" {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNeg, Operand: operand}, nil
	}
	if t.typ == tokOp && t.text == "+" {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()

	switch t.typ {
	case tokNumber:
		f, _ := strconv.ParseFloat(t.text, 64)
		return &Literal{Value: f}, nil

	case tokString:
		return &Literal{Value: t.text}, nil

	case tokKeyword:
		switch t.text {
		case "true":
			return &Literal{Value: true}, nil
		case "false":
			return &Literal{Value: false}, nil
		}
		return nil, errf(t.pos, "unexpected keyword %q", t.text)

	case tokIdent:
		if p.peek().typ == tokLParen {
			return p.parseCall(t)
		}
		if p.peek().typ == tokDot {
			p.pos++
			attr := p.next()
			if attr.typ != tokIdent {
				return nil, errf(attr.pos, "expected attribute name after %q.", t.text)
			}
			return &Attribute{Value: &Name{Ident: t.text}, Attr: attr.text}, nil
		}
		return &Name{Ident: t.text}, nil

	case tokLParen:
		inner, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokEOF:
		return nil, errf(t.pos, "unexpected end of expression")
	}

	return nil, errf(t.pos, "unexpected token %q", t.text)
}

func (p *parser) parseCall(name token) (Node, error) {
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}

	var args []Node
	if p.peek().typ != tokRParen {
		for {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.accept(tokComma, ",") {
				break
			}
		}
	}

	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &Call{Func: name.text, Args: args}, nil
}
