package token

import "fmt"

// ConditionKind is the test an If/IfNot performs
type ConditionKind int

const (
	DialogYesNo ConditionKind = iota
	DataFileExists
	VersionGreaterThan
	VersionLessThan
	ScriptExtenderPresent
	ScriptExtenderNewerThan
	GraphicsExtenderPresent
	GraphicsExtenderNewerThan
	OblivionNewerThan
	Equal
	GreaterEqual
	GreaterThan
	FGreaterEqual
	FGreaterThan
)

var conditionNames = [...]string{
	DialogYesNo:               "DialogYesNo",
	DataFileExists:            "DataFileExists",
	VersionGreaterThan:        "VersionGreaterThan",
	VersionLessThan:           "VersionLessThan",
	ScriptExtenderPresent:     "ScriptExtenderPresent",
	ScriptExtenderNewerThan:   "ScriptExtenderNewerThan",
	GraphicsExtenderPresent:   "GraphicsExtenderPresent",
	GraphicsExtenderNewerThan: "GraphicsExtenderNewerThan",
	OblivionNewerThan:         "OblivionNewerThan",
	Equal:                     "Equal",
	GreaterEqual:              "GreaterEqual",
	GreaterThan:               "GreaterThan",
	FGreaterEqual:             "fGreaterEqual",
	FGreaterThan:              "fGreaterThan",
}

// conditionArity is the operand count (min, max) of each condition
var conditionArity = [...]Rule{
	DialogYesNo:               {1, 2},
	DataFileExists:            {1, 1},
	VersionGreaterThan:        {1, 1},
	VersionLessThan:           {1, 1},
	ScriptExtenderPresent:     {0, 0},
	ScriptExtenderNewerThan:   {1, 1},
	GraphicsExtenderPresent:   {0, 0},
	GraphicsExtenderNewerThan: {1, 1},
	OblivionNewerThan:         {1, 1},
	Equal:                     {2, 2},
	GreaterEqual:              {2, 2},
	GreaterThan:               {2, 2},
	FGreaterEqual:             {2, 2},
	FGreaterThan:              {2, 2},
}

func (c ConditionKind) String() string {
	if c >= 0 && int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return fmt.Sprintf("ConditionKind(%d)", int(c))
}

// Arity returns the operand rule of the condition
func (c ConditionKind) Arity() Rule {
	return conditionArity[c]
}

// LookupCondition resolves a condition name
func LookupCondition(name string) (ConditionKind, bool) {
	for i, n := range conditionNames {
		if n == name {
			return ConditionKind(i), true
		}
	}
	return 0, false
}

// ConditionNames returns all condition names, for suggestions
func ConditionNames() []string {
	return append([]string(nil), conditionNames[:]...)
}

// ForKind is what a For loop iterates over
type ForKind int

const (
	ForCount ForKind = iota
	ForDataFolder
	ForPluginFolder
	ForDataFile
	ForPlugin
)

var forNames = [...]string{
	ForCount:        "Count",
	ForDataFolder:   "DataFolder",
	ForPluginFolder: "PluginFolder",
	ForDataFile:     "DataFile",
	ForPlugin:       "Plugin",
}

func (f ForKind) String() string {
	if f >= 0 && int(f) < len(forNames) {
		return forNames[f]
	}
	return fmt.Sprintf("ForKind(%d)", int(f))
}

// LookupForKind resolves the enumeration name that follows "For Each"
func LookupForKind(name string) (ForKind, bool) {
	for i := ForDataFolder; i <= ForPlugin; i++ {
		if forNames[i] == name {
			return i, true
		}
	}
	return 0, false
}
