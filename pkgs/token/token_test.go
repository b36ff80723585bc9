package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryInstructionHasARule(t *testing.T) {
	for _, typ := range All() {
		if typ == Comment {
			continue
		}
		_, ok := Rules[typ]
		assert.True(t, ok, "missing rule for %s", typ)
	}
	assert.Len(t, Rules, len(All())-1)
}

func TestLookupRoundTrip(t *testing.T) {
	for _, name := range Names() {
		typ, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, typ.String())
	}

	_, ok := Lookup("if")
	assert.False(t, ok, "lookup is case-sensitive")
	_, ok = Lookup(";")
	assert.False(t, ok, "comments are not instructions")

	typ, ok := Lookup("iSet")
	require.True(t, ok)
	assert.Equal(t, ISet, typ)
}

func TestRuleCheck(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		count   int
		wantErr string
	}{
		{"no args allowed", Rule{0, 0}, 0, ""},
		{"no args given extra", Rule{0, 0}, 1, "expected no arguments, got 1"},
		{"exact", Rule{2, 2}, 2, ""},
		{"exact short", Rule{2, 2}, 1, "expected 2 arguments, got 1"},
		{"exact one missing", Rule{1, 1}, 0, "expected 1 argument, got none"},
		{"range low", Rule{1, 3}, 1, ""},
		{"range high", Rule{1, 3}, 3, ""},
		{"range over", Rule{1, 3}, 4, "expected 1 to 3 arguments, got 4"},
		{"unbounded", Rule{2, Unbounded}, 40, ""},
		{"unbounded short", Rule{2, Unbounded}, 1, "expected at least 2 arguments, got 1"},
		{"optional all", Rule{0, Unbounded}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Check(tt.count)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestContradictoryRulePanics(t *testing.T) {
	assert.Panics(t, func() {
		_ = Rule{Unbounded, Unbounded}.Check(0)
	})
}

func TestClosesAndFlowClassification(t *testing.T) {
	assert.True(t, EndIf.Closes(If))
	assert.True(t, EndIf.Closes(IfNot))
	assert.True(t, EndIf.Closes(Else))
	assert.False(t, EndIf.Closes(For))
	assert.True(t, EndFor.Closes(For))
	assert.True(t, EndSelect.Closes(SelectManyWithPreview))
	assert.True(t, EndSelect.Closes(SelectVar))
	assert.True(t, Break.Closes(Case))
	assert.True(t, Break.Closes(Default))
	assert.False(t, Break.Closes(Select))

	for _, typ := range []Type{If, IfNot, Else, For, Select, SelectString, Case, Default} {
		assert.True(t, typ.IsFlowStart(), typ.String())
	}
	for _, typ := range []Type{EndIf, EndFor, EndSelect, Break} {
		assert.True(t, typ.IsFlowEnd(), typ.String())
		assert.False(t, typ.IsFlowStart(), typ.String())
	}
	assert.False(t, Message.IsFlowStart())
	assert.False(t, Goto.IsFlowEnd())
}

func TestConditionAndForLookup(t *testing.T) {
	c, ok := LookupCondition("fGreaterThan")
	require.True(t, ok)
	assert.Equal(t, FGreaterThan, c)
	assert.Equal(t, Rule{2, 2}, c.Arity())

	_, ok = LookupCondition("Sometimes")
	assert.False(t, ok)

	k, ok := LookupForKind("PluginFolder")
	require.True(t, ok)
	assert.Equal(t, ForPluginFolder, k)

	_, ok = LookupForKind("Count")
	assert.False(t, ok, "Count is not an enumeration")
}
