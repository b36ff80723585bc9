package expr

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

func fields(s string) []string {
	return strings.Fields(s)
}

func TestEvalInt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		// The scenario's published token list reduces to -3 under the pass order;
		// this bracketed form is the one that yields its expected 4.
		{"brackets then addition", "-1 + ( 5 mod 3 ) + ( 6 - 3 )", 4},
		{"power and complement", "5 * ( 12 ^ 3 ) - not 20", 8661},
		{"plus binds before minus", "6 - 3 + 1", 2},
		{"mod binds before power", "2 ^ 3 mod 3", 1},
		{"minus is left to right", "10 - 2 - 3", 5},
		{"multiply before add", "2 + 3 * 4", 14},
		{"divide before multiply", "8 / 2 * 2", 8},
		{"and before add", "1 + 2 and 3", 3},
		{"complement", "not 0", -1},
		{"double complement", "not not 5", 5},
		{"truncating division", "7 / 2", 3},
		{"truncating negative division", "-7 / 2", -3},
		{"percent is mod", "7 % 4", 3},
		{"power", "2 ^ 10", 1024},
		{"nested brackets", "( ( 1 + 2 ) * ( 3 + 4 ) )", 21},
		{"xor", "5 xor 3", 6},
		{"or", "12 or 3", 15},
		{"single literal", "42", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalInt(fields(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"exponent literal", "1E+10 / 10", 1e9},
		{"trig and power", "3.4 + ( sin 1E+3 ) * ( 2 ^ 100 )", 1.0481943458718355e30},
		{"natural log", "ln 1", 0},
		{"base ten log", "log 1000", 3},
		{"exp", "exp 0", 1},
		{"float mod", "7.5 mod 2", 1.5},
		{"bitwise on truncated values", "2.9 and 3", 2},
		{"functions before arithmetic", "1 + cos 0 * 2", 3},
		{"plus binds before minus", "1.5 - 0.5 + 0.5", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalFloat(fields(tt.input))
			require.NoError(t, err)
			if tt.want == 0 {
				assert.InDelta(t, tt.want, got, 1e-12)
				return
			}
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvalFloatDivisionByZero(t *testing.T) {
	got, err := EvalFloat(fields("1 / 0"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		float       bool
		errContains string
	}{
		{"empty", "", false, "empty expression"},
		{"missing close", "( 1 + 2", false, "missing ')'"},
		{"stray close", "1 + 2 )", false, "unexpected ')'"},
		{"division by zero", "1 / 0", false, "division by zero"},
		{"modulo by zero", "1 mod 0", false, "modulo by zero"},
		{"percent by zero", "4 % 0", false, "modulo by zero"},
		{"not a number", "1 + x", false, "'x' is not a number"},
		{"float literal in int", "1.5 + 1", false, "'1.5' is not a number"},
		{"function in int", "sin 1", false, "'sin' is not a number"},
		{"dangling operator", "1 +", false, "needs a value on both sides"},
		{"dangling unary", "not", false, "needs a value on its right"},
		{"two literals", "1 2", false, "does not reduce to a single value"},
		{"empty brackets", "( )", false, "does not reduce to a single value"},
		{"float missing close", "( sin 1", true, "missing ')'"},
		{"float dangling function", "2 * cos", true, "needs a value on its right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.float {
				_, err = EvalFloat(fields(tt.input))
			} else {
				_, err = EvalInt(fields(tt.input))
			}
			require.Error(t, err)
			assert.True(t, errors.IsErrorType(err, errors.ErrMalformedExpression), "got %v", err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestEvalDoesNotMutateInput(t *testing.T) {
	in := fields("( 1 + 2 ) * 3")
	before := append([]string(nil), in...)

	_, err := EvalInt(in)
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestExpressionContextOnError(t *testing.T) {
	_, err := EvalInt(fields("( 1 + 2"))
	require.Error(t, err)

	se, ok := err.(*errors.ScriptError)
	require.True(t, ok)
	v, ok := se.GetContext("expression")
	require.True(t, ok)
	assert.Equal(t, "( 1 + 2", v)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "-21", FormatInt(-21))

	tests := []struct {
		in   float64
		want string
	}{
		{1e9, "1000000000"},
		{1.5, "1.5"},
		{-2.5, "-2.5"},
		{0, "0"},
		{1e30, "1E+30"},
		{1.0481943458718355e30, "1.0481943458718355E+30"},
		{1e-7, "1E-07"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in))
	}
}
