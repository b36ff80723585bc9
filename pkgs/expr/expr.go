// Package expr evaluates the bracketed arithmetic expressions of iSet and fSet.
//
// Operator precedence is fixed and deliberately unusual. After brackets are
// resolved innermost first, one pass per operator runs in this order, each pass
// collapsing every occurrence from left to right:
//
//	not, and, or, xor, [fSet only: sin cos tan sinh cosh tanh exp log ln], mod, %, ^, /, *, +, -
//
// So "6 - 3 + 1" is 6 - 4, and "2 ^ 3 mod 3" is 2 ^ 0. Scripts written for the
// legacy installer depend on this order; do not "fix" it.
package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

type number interface {
	~int64 | ~float64
}

// item is either an operator (or bracket) or an already evaluated operand
type item[T number] struct {
	op      string
	value   T
	literal bool
}

type unaryFunc[T number] func(T) (T, error)
type binaryFunc[T number] func(a, b T) (T, error)

// evaluator holds the operator table of one numeric flavour
type evaluator[T number] struct {
	parse  func(string) (T, error)
	unary  map[string]unaryFunc[T]
	binary map[string]binaryFunc[T]
	order  []string
}

func (e *evaluator[T]) isOperator(s string) bool {
	if s == "(" || s == ")" {
		return true
	}
	if _, ok := e.unary[s]; ok {
		return true
	}
	_, ok := e.binary[s]
	return ok
}

func (e *evaluator[T]) eval(tokens []string) (T, error) {
	var zero T
	if len(tokens) == 0 {
		return zero, errors.NewExpressionError("empty expression", tokens)
	}

	items := make([]item[T], 0, len(tokens))
	for _, tok := range tokens {
		if e.isOperator(tok) {
			items = append(items, item[T]{op: tok})
			continue
		}
		v, err := e.parse(tok)
		if err != nil {
			return zero, errors.NewExpressionError("'"+tok+"' is not a number", tokens)
		}
		items = append(items, item[T]{value: v, literal: true})
	}

	v, err := e.reduce(items)
	if err != nil {
		if se, ok := err.(*errors.ScriptError); ok && se.Type == errors.ErrMalformedExpression {
			se.WithContext("expression", strings.Join(tokens, " "))
		}
		return zero, err
	}
	return v, nil
}

// reduce resolves brackets, then applies every operator pass in order
func (e *evaluator[T]) reduce(items []item[T]) (T, error) {
	var zero T

	for {
		open := -1
		for i, it := range items {
			if !it.literal && it.op == "(" {
				open = i
				break
			}
		}
		if open < 0 {
			break
		}

		closing, depth := -1, 0
		for i := open; i < len(items); i++ {
			if items[i].literal {
				continue
			}
			switch items[i].op {
			case "(":
				depth++
			case ")":
				depth--
			}
			if depth == 0 {
				closing = i
				break
			}
		}
		if closing < 0 {
			return zero, errors.NewExpressionError("unbalanced brackets: missing ')'", nil)
		}

		inner := append([]item[T](nil), items[open+1:closing]...)
		v, err := e.reduce(inner)
		if err != nil {
			return zero, err
		}
		items = splice(items, open, closing+1, item[T]{value: v, literal: true})
	}

	for _, it := range items {
		if !it.literal && it.op == ")" {
			return zero, errors.NewExpressionError("unbalanced brackets: unexpected ')'", nil)
		}
	}

	for _, op := range e.order {
		var err error
		if fn, ok := e.unary[op]; ok {
			items, err = e.applyUnary(items, op, fn)
		} else {
			items, err = e.applyBinary(items, op, e.binary[op])
		}
		if err != nil {
			return zero, err
		}
	}

	if len(items) != 1 || !items[0].literal {
		return zero, errors.NewExpressionError("expression does not reduce to a single value", nil)
	}
	return items[0].value, nil
}

// applyUnary collapses every "op x". It walks right to left so that chained
// prefixes such as "not not 5" resolve; any input a left-to-right walk accepts
// gives the same result.
func (e *evaluator[T]) applyUnary(items []item[T], op string, fn unaryFunc[T]) ([]item[T], error) {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].literal || items[i].op != op {
			continue
		}
		if i+1 >= len(items) || !items[i+1].literal {
			return nil, errors.NewExpressionError("'"+op+"' needs a value on its right", nil)
		}
		v, err := fn(items[i+1].value)
		if err != nil {
			return nil, err
		}
		items = splice(items, i, i+2, item[T]{value: v, literal: true})
	}
	return items, nil
}

func (e *evaluator[T]) applyBinary(items []item[T], op string, fn binaryFunc[T]) ([]item[T], error) {
	for i := 0; i < len(items); i++ {
		if items[i].literal || items[i].op != op {
			continue
		}
		if i == 0 || i+1 >= len(items) || !items[i-1].literal || !items[i+1].literal {
			return nil, errors.NewExpressionError("'"+op+"' needs a value on both sides", nil)
		}
		v, err := fn(items[i-1].value, items[i+1].value)
		if err != nil {
			return nil, err
		}
		items = splice(items, i-1, i+2, item[T]{value: v, literal: true})
		i--
	}
	return items, nil
}

// splice replaces items[from:to] with a single item
func splice[T number](items []item[T], from, to int, with item[T]) []item[T] {
	out := make([]item[T], 0, len(items)-(to-from)+1)
	out = append(out, items[:from]...)
	out = append(out, with)
	out = append(out, items[to:]...)
	return out
}

var intEvaluator = &evaluator[int64]{
	parse: func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
	unary: map[string]unaryFunc[int64]{
		"not": func(a int64) (int64, error) { return ^a, nil },
	},
	binary: map[string]binaryFunc[int64]{
		"and": func(a, b int64) (int64, error) { return a & b, nil },
		"or":  func(a, b int64) (int64, error) { return a | b, nil },
		"xor": func(a, b int64) (int64, error) { return a ^ b, nil },
		"mod": intMod,
		"%":   intMod,
		"^":   func(a, b int64) (int64, error) { return int64(math.Pow(float64(a), float64(b))), nil },
		"/": func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errors.NewExpressionError("division by zero", nil)
			}
			return a / b, nil
		},
		"*": func(a, b int64) (int64, error) { return a * b, nil },
		"+": func(a, b int64) (int64, error) { return a + b, nil },
		"-": func(a, b int64) (int64, error) { return a - b, nil },
	},
	order: []string{"not", "and", "or", "xor", "mod", "%", "^", "/", "*", "+", "-"},
}

func intMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errors.NewExpressionError("modulo by zero", nil)
	}
	return a % b, nil
}

func floatFunc(fn func(float64) float64) unaryFunc[float64] {
	return func(a float64) (float64, error) { return fn(a), nil }
}

func bitwise(fn func(a, b int64) int64) binaryFunc[float64] {
	return func(a, b float64) (float64, error) { return float64(fn(int64(a), int64(b))), nil }
}

var floatEvaluator = &evaluator[float64]{
	parse: func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	unary: map[string]unaryFunc[float64]{
		"not":  func(a float64) (float64, error) { return float64(^int64(a)), nil },
		"sin":  floatFunc(math.Sin),
		"cos":  floatFunc(math.Cos),
		"tan":  floatFunc(math.Tan),
		"sinh": floatFunc(math.Sinh),
		"cosh": floatFunc(math.Cosh),
		"tanh": floatFunc(math.Tanh),
		"exp":  floatFunc(math.Exp),
		"log":  floatFunc(math.Log10),
		"ln":   floatFunc(math.Log),
	},
	binary: map[string]binaryFunc[float64]{
		"and": bitwise(func(a, b int64) int64 { return a & b }),
		"or":  bitwise(func(a, b int64) int64 { return a | b }),
		"xor": bitwise(func(a, b int64) int64 { return a ^ b }),
		"mod": func(a, b float64) (float64, error) { return math.Mod(a, b), nil },
		"%":   func(a, b float64) (float64, error) { return math.Mod(a, b), nil },
		"^":   func(a, b float64) (float64, error) { return math.Pow(a, b), nil },
		"/":   func(a, b float64) (float64, error) { return a / b, nil },
		"*":   func(a, b float64) (float64, error) { return a * b, nil },
		"+":   func(a, b float64) (float64, error) { return a + b, nil },
		"-":   func(a, b float64) (float64, error) { return a - b, nil },
	},
	order: []string{
		"not", "and", "or", "xor",
		"sin", "cos", "tan", "sinh", "cosh", "tanh", "exp", "log", "ln",
		"mod", "%", "^", "/", "*", "+", "-",
	},
}

// EvalInt evaluates an iSet expression. Division truncates toward zero and
// "^" truncates the floating point power to an integer.
func EvalInt(tokens []string) (int64, error) {
	return intEvaluator.eval(tokens)
}

// EvalFloat evaluates an fSet expression with IEEE double semantics
func EvalFloat(tokens []string) (float64, error) {
	return floatEvaluator.eval(tokens)
}

// FormatInt renders an iSet result for the variable store
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// FormatFloat renders an fSet result for the variable store. Plain decimal
// notation is used for everyday magnitudes, exponent notation otherwise.
func FormatFloat(v float64) string {
	abs := math.Abs(v)
	if abs == 0 || (abs >= 1e-5 && abs < 1e15) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'G', -1, 64)
}
