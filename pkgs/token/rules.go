package token

import (
	"fmt"

	"github.com/aledsdavies/obmm/core/invariant"
)

// Unbounded marks a rule without an upper argument limit
const Unbounded = -1

// Rule is the accepted argument count of an instruction
type Rule struct {
	Min int
	Max int // Unbounded for no limit
}

// Rules holds the argument rule of every instruction. Arguments are counted
// after the instruction name.
var Rules = map[Type]Rule{
	If:       {1, Unbounded},
	IfNot:    {1, Unbounded},
	Else:     {0, 0},
	EndIf:    {0, 0},
	For:      {4, 6},
	Continue: {0, 0},
	Exit:     {0, 0},
	EndFor:   {0, 0},

	Select:                                {2, Unbounded},
	SelectMany:                            {2, Unbounded},
	SelectWithPreview:                     {3, Unbounded},
	SelectManyWithPreview:                 {3, Unbounded},
	SelectWithDescriptions:                {3, Unbounded},
	SelectManyWithDescriptions:            {3, Unbounded},
	SelectWithDescriptionsAndPreviews:     {4, Unbounded},
	SelectManyWithDescriptionsAndPreviews: {4, Unbounded},
	SelectVar:                             {1, 1},
	SelectString:                          {1, 1},
	Case:                                  {1, Unbounded},
	Default:                               {0, 0},
	Break:                                 {0, 0},
	EndSelect:                             {0, 0},

	Goto:       {1, 1},
	Label:      {1, 1},
	Return:     {0, 0},
	FatalError: {0, Unbounded},

	SetVar:                      {2, 2},
	ISet:                        {2, Unbounded},
	FSet:                        {2, Unbounded},
	GetFolderName:               {2, 2},
	GetDirectoryName:            {2, 2},
	GetFileName:                 {2, 2},
	GetFileNameWithoutExtension: {2, 2},
	CombinePaths:                {3, 3},
	Substring:                   {3, 4},
	RemoveString:                {3, 4},
	StringLength:                {2, 2},
	InputString:                 {1, 3},
	ReadINI:                     {3, 3},
	ReadRendererInfo:            {2, 2},

	Message:      {1, 2},
	DisplayImage: {1, 2},
	DisplayText:  {1, 2},

	LoadEarly:          {1, 1},
	LoadBefore:         {2, 2},
	LoadAfter:          {2, 2},
	ConflictsWith:      {1, 7},
	DependsOn:          {1, 6},
	ConflictsWithRegex: {1, 7},
	DependsOnRegex:     {1, 6},

	DontInstallAnyPlugins:   {0, 0},
	DontInstallAnyDataFiles: {0, 0},
	InstallAllPlugins:       {0, 0},
	InstallAllDataFiles:     {0, 0},
	InstallPlugin:           {1, 1},
	DontInstallPlugin:       {1, 1},
	InstallDataFile:         {1, 1},
	DontInstallDataFile:     {1, 1},
	InstallDataFolder:       {1, 2},
	DontInstallDataFolder:   {1, 2},
	RegisterBSA:             {1, 1},
	UnregisterBSA:           {1, 1},

	CopyPlugin:     {2, 2},
	CopyDataFile:   {2, 2},
	CopyDataFolder: {2, 3},
	PatchPlugin:    {2, 3},
	PatchDataFile:  {2, 3},

	EditINI:                {3, 3},
	EditShader:             {3, 3},
	SetGMST:                {3, 3},
	SetGlobal:              {3, 3},
	SetPluginByte:          {3, 3},
	SetPluginShort:         {3, 3},
	SetPluginInt:           {3, 3},
	SetPluginLong:          {3, 3},
	SetPluginFloat:         {3, 3},
	EditXMLLine:            {3, 3},
	EditXMLReplace:         {3, 3},
	UncheckESP:             {1, 1},
	SetDeactivationWarning: {2, 2},

	AllowRunOnLines: {0, 1},
	ExecLines:       {1, 1},
}

// Check applies the rule to an argument count and describes any violation.
// A rule that allows nothing at all (both bounds Unbounded) is a bug in the
// rule table, not in the script, and panics.
func (r Rule) Check(count int) error {
	invariant.Precondition(!(r.Min == Unbounded && r.Max == Unbounded),
		"argument rule {%d, %d} is contradictory", r.Min, r.Max)
	invariant.Precondition(count >= 0, "argument count must not be negative")

	if count == 0 {
		if r.Min == 0 {
			return nil
		}
		return fmt.Errorf("expected %s, got none", r.describe())
	}

	if r.Min == r.Max {
		if count != r.Min {
			return fmt.Errorf("expected %s, got %d", r.describe(), count)
		}
		return nil
	}

	if count < r.Min || (r.Max != Unbounded && count > r.Max) {
		return fmt.Errorf("expected %s, got %d", r.describe(), count)
	}
	return nil
}

func (r Rule) describe() string {
	switch {
	case r.Min == r.Max && r.Min == 0:
		return "no arguments"
	case r.Min == r.Max && r.Min == 1:
		return "1 argument"
	case r.Min == r.Max:
		return fmt.Sprintf("%d arguments", r.Min)
	case r.Max == Unbounded:
		return fmt.Sprintf("at least %d arguments", r.Min)
	default:
		return fmt.Sprintf("%d to %d arguments", r.Min, r.Max)
	}
}

// RuleFor returns the rule of t. Every instruction has one; a missing entry is a bug.
func RuleFor(t Type) Rule {
	r, ok := Rules[t]
	invariant.Invariant(ok, "no argument rule for %s", t)
	return r
}
