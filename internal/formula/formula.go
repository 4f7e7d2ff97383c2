// Package formula evaluates feedback conditions such as
//
//	${Pragmatist} >= 2 AND (${Activist} < 1 OR ${Theorist} == 0)
//
// Only numbers, ${criterion} references, arithmetic, comparisons, AND/OR and
// parentheses are understood; any other input is a syntax error.
package formula

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDivisionByZero = errors.New("division by zero")

// Resolver supplies the value of a ${name} reference.
type Resolver interface {
	Lookup(name string) (float64, bool)
}

// Variables is a case-insensitive Resolver.
type Variables map[string]float64

// Add defines name unless a variable with the same case-folded name already exists.
func (v Variables) Add(name string, value float64) {
	key := strings.ToLower(name)
	if _, exists := v[key]; !exists {
		v[key] = value
	}
}

func (v Variables) Lookup(name string) (float64, bool) {
	value, ok := v[strings.ToLower(name)]
	return value, ok
}

// Expression is a parsed formula, safe for concurrent evaluation.
type Expression struct {
	source string
	root   node
}

func Parse(src string) (*Expression, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %s", tok)}
	}

	return &Expression{source: src, root: root}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Value evaluates the expression numerically. Unknown references are 0 and
// boolean results are 1 or 0.
func (e *Expression) Value(vars Resolver) (float64, error) {
	return e.root.eval(vars)
}

// Eval reports whether the expression holds, i.e. evaluates to a non-zero value.
func (e *Expression) Eval(vars Resolver) (bool, error) {
	value, err := e.Value(vars)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// References lists the criterion names used by the expression, in order of appearance.
func (e *Expression) References() []string {
	var names []string
	collectReferences(e.root, &names)
	return names
}

// Evaluate parses and evaluates src. A blank formula is always true.
func Evaluate(src string, vars Resolver) (bool, error) {
	if strings.TrimSpace(src) == "" {
		return true, nil
	}
	expr, err := Parse(src)
	if err != nil {
		return false, err
	}
	return expr.Eval(vars)
}

// Validate checks that src is a well-formed formula. A blank formula is valid.
func Validate(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	_, err := Parse(src)
	return err
}

type node interface {
	eval(vars Resolver) (float64, error)
}

type numberNode float64

func (n numberNode) eval(Resolver) (float64, error) {
	return float64(n), nil
}

type variableNode string

func (n variableNode) eval(vars Resolver) (float64, error) {
	if vars == nil {
		return 0, nil
	}
	value, _ := vars.Lookup(string(n))
	return value, nil
}

type negateNode struct {
	operand node
}

func (n *negateNode) eval(vars Resolver) (float64, error) {
	value, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -value, nil
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(vars Resolver) (float64, error) {
	left, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}

	switch n.op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	case "<":
		return truth(left < right), nil
	case "<=":
		return truth(left <= right), nil
	case ">":
		return truth(left > right), nil
	case ">=":
		return truth(left >= right), nil
	case "==":
		return truth(left == right), nil
	case "!=":
		return truth(left != right), nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type logicalNode struct {
	op          string
	left, right node
}

func (n *logicalNode) eval(vars Resolver) (float64, error) {
	left, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	if n.op == "&&" && left == 0 {
		return 0, nil
	}
	if n.op == "||" && left != 0 {
		return 1, nil
	}

	right, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	return truth(right != 0), nil
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func collectReferences(n node, names *[]string) {
	switch v := n.(type) {
	case variableNode:
		*names = append(*names, string(v))
	case *negateNode:
		collectReferences(v.operand, names)
	case *binaryNode:
		collectReferences(v.left, names)
		collectReferences(v.right, names)
	case *logicalNode:
		collectReferences(v.left, names)
		collectReferences(v.right, names)
	}
}
