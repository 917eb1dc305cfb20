package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokIdent
	tokKeyword // and or not in if else true false
	tokOp      // == != < <= > >= + - * / %
	tokLParen
	tokRParen
	tokComma
	tokDot
)

type token struct {
	text string
	typ  tokenType
	pos  int // 1-based rune offset
}

var keywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {},
	"if": {}, "else": {}, "true": {}, "false": {},
}

// tokenize splits an expression into tokens. String literals accept single or
// double quotes; a backslash escapes the closing quote and is otherwise kept
// verbatim so regex escapes like \s survive.
func tokenize(input string) ([]token, error) {
	runes := []rune(input)
	tokens := make([]token, 0, len(runes)/2)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var b strings.Builder
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					next := runes[i+1]
					if next == quote || next == '\\' {
						b.WriteRune(next)
					} else {
						b.WriteRune(c)
						b.WriteRune(next)
					}
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, errf(start+1, "unterminated string literal")
			}
			tokens = append(tokens, token{typ: tokString, text: b.String(), pos: start + 1})

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, errf(start+1, "invalid number literal %q", text)
			}
			tokens = append(tokens, token{typ: tokNumber, text: text, pos: start + 1})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			text := string(runes[start:i])
			lower := strings.ToLower(text)
			if _, ok := keywords[lower]; ok {
				tokens = append(tokens, token{typ: tokKeyword, text: lower, pos: start + 1})
			} else {
				tokens = append(tokens, token{typ: tokIdent, text: text, pos: start + 1})
			}

		case r == '(':
			tokens = append(tokens, token{typ: tokLParen, text: "(", pos: i + 1})
			i++
		case r == ')':
			tokens = append(tokens, token{typ: tokRParen, text: ")", pos: i + 1})
			i++
		case r == ',':
			tokens = append(tokens, token{typ: tokComma, text: ",", pos: i + 1})
			i++
		case r == '.':
			tokens = append(tokens, token{typ: tokDot, text: ".", pos: i + 1})
			i++

		case strings.ContainsRune("=!<>+-*/%", r):
			start := i
			two := ""
			if i+1 < len(runes) {
				two = string(runes[i : i+2])
			}
			switch two {
			case "==", "!=", "<=", ">=":
				tokens = append(tokens, token{typ: tokOp, text: two, pos: start + 1})
				i += 2
			default:
				op := string(r)
				if op == "=" || op == "!" {
					return nil, errf(start+1, "unexpected %q (did you mean %q?)", op, op+"=")
				}
				tokens = append(tokens, token{typ: tokOp, text: op, pos: start + 1})
				i++
			}

		default:
			return nil, errf(i+1, "unexpected character %q", string(r))
		}
	}

	tokens = append(tokens, token{typ: tokEOF, pos: len(runes) + 1})
	return tokens, nil
}
