package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokVariable
	tokOperator
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of formula"
	case tokVariable:
		return "${" + t.text + "}"
	default:
		return strconv.Quote(t.text)
	}
}

// SyntaxError reports the byte offset of the offending input.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("formula syntax error at %d: %s", e.Pos, e.Msg)
}

var twoCharOperators = []string{"<=", ">=", "==", "!=", "&&", "||"}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++

		case ch == '$':
			if !strings.HasPrefix(src[i:], "${") {
				return nil, &SyntaxError{Pos: i, Msg: "expected '{' after '$'"}
			}
			end := strings.IndexByte(src[i+2:], '}')
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unterminated criterion reference"}
			}
			tokens = append(tokens, token{kind: tokVariable, text: src[i+2 : i+2+end], pos: i})
			i += end + 3

		case isDigit(ch) || (ch == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			num, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("invalid number %q", src[start:i])}
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], num: num, pos: start})

		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++

		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		case unicode.IsLetter(rune(ch)):
			start := i
			for i < len(src) && unicode.IsLetter(rune(src[i])) {
				i++
			}
			word := strings.ToLower(src[start:i])
			switch word {
			case "and":
				tokens = append(tokens, token{kind: tokOperator, text: "&&", pos: start})
			case "or":
				tokens = append(tokens, token{kind: tokOperator, text: "||", pos: start})
			default:
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected word %q", src[start:i])}
			}

		default:
			op := ""
			for _, candidate := range twoCharOperators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" && strings.ContainsRune("<>+-*/", rune(ch)) {
				op = string(ch)
			}
			if op == "" {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", ch)}
			}
			tokens = append(tokens, token{kind: tokOperator, text: op, pos: i})
			i += len(op)
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
