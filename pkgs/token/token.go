// Package token defines the typed tokens of OBMM Script.
//
// Every script line becomes exactly one Token. The concrete variants form a closed
// set; consumers switch on the concrete type and treat an unknown variant as a bug.
// Tokens are immutable once built: the engine keeps all per-run state (activity,
// loop counters, resolved labels) in its own frames so one token list can be
// executed any number of times.
package token

// Token is one validated script instruction
type Token interface {
	Type() Type
	Args() []string // original arguments, quotes removed
	Line() int      // 1-based script line
	sealed()
}

// Base carries the fields every token has
type Base struct {
	Kind      Type
	Arguments []string
	Source    int
}

func (b *Base) Type() Type { return b.Kind }
func (b *Base) Args() []string { return b.Arguments }
func (b *Base) Line() int { return b.Source }
func (b *Base) String() string { return b.Kind.String() }
func (b *Base) sealed() {}

// Note is a ';' comment. Comments are dropped before execution.
type Note struct {
	Base
	Text string
}

// Conditional is If or IfNot
type Conditional struct {
	Base
	Not       bool
	Condition ConditionKind
	Operands  []string // arguments after the condition name
}

// ElseBranch is Else
type ElseBranch struct {
	Base
}

// EndFlow is EndIf, EndFor, EndSelect or Break
type EndFlow struct {
	Base
}

// Loop is For
type Loop struct {
	Base
	Enum     ForKind
	Variable string

	// Count loops
	Start string
	End   string
	Step  string // "1" when omitted

	// Enumerating loops
	Path    string
	Recurse bool
	Pattern string // "*" when omitted
}

// LoopControl is Continue or Exit
type LoopControl struct {
	Base
}

// IsExit reports whether the loop should terminate rather than restart
func (l *LoopControl) IsExit() bool { return l.Kind == Exit }

// Selection is one of the eight Select flavours
type Selection struct {
	Base
	Many         bool
	Title        string
	Items        []string
	Previews     []string // index-aligned with Items, nil when the flavour has none
	Descriptions []string // index-aligned with Items, nil when the flavour has none
}

// SelectValue is SelectVar (Value names a variable) or SelectString (Value is literal)
type SelectValue struct {
	Base
	Value string
}

// CaseMatch is Case
type CaseMatch struct {
	Base
	Value string
}

// DefaultCase is Default
type DefaultCase struct {
	Base
}

// Jump is Goto
type Jump struct {
	Base
	Label string
}

// Marker is Label
type Marker struct {
	Base
	Name string
}

// Assignment is SetVar
type Assignment struct {
	Base
	Variable string
	Value    string
}

// Arithmetic is iSet or fSet
type Arithmetic struct {
	Base
	Float      bool
	Variable   string
	Expression []string
}

// Halt is Return
type Halt struct {
	Base
}

// Abort is FatalError
type Abort struct {
	Base
	Message string
}

// Instruction is any one-shot instruction forwarded to the collaborator
type Instruction struct {
	Base
}
