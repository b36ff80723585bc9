package token

import "fmt"

// Type identifies an OBMM Script instruction
type Type int

const (
	Comment Type = iota

	// Conditionals
	If
	IfNot
	Else
	EndIf

	// Loops
	For
	Continue
	Exit
	EndFor

	// Selections
	Select
	SelectMany
	SelectWithPreview
	SelectManyWithPreview
	SelectWithDescriptions
	SelectManyWithDescriptions
	SelectWithDescriptionsAndPreviews
	SelectManyWithDescriptionsAndPreviews
	SelectVar
	SelectString
	Case
	Default
	Break
	EndSelect

	// Jumps and termination
	Goto
	Label
	Return
	FatalError

	// Variables
	SetVar
	ISet
	FSet
	GetFolderName
	GetDirectoryName
	GetFileName
	GetFileNameWithoutExtension
	CombinePaths
	Substring
	RemoveString
	StringLength
	InputString
	ReadINI
	ReadRendererInfo

	// Presentation
	Message
	DisplayImage
	DisplayText

	// Load order and mod relations
	LoadEarly
	LoadBefore
	LoadAfter
	ConflictsWith
	DependsOn
	ConflictsWithRegex
	DependsOnRegex

	// Install sets
	DontInstallAnyPlugins
	DontInstallAnyDataFiles
	InstallAllPlugins
	InstallAllDataFiles
	InstallPlugin
	DontInstallPlugin
	InstallDataFile
	DontInstallDataFile
	InstallDataFolder
	DontInstallDataFolder
	RegisterBSA
	UnregisterBSA

	// Copies and patches
	CopyPlugin
	CopyDataFile
	CopyDataFolder
	PatchPlugin
	PatchDataFile

	// Edits
	EditINI
	EditShader
	SetGMST
	SetGlobal
	SetPluginByte
	SetPluginShort
	SetPluginInt
	SetPluginLong
	SetPluginFloat
	EditXMLLine
	EditXMLReplace
	UncheckESP
	SetDeactivationWarning

	// Interpreter switches
	AllowRunOnLines
	ExecLines

	typeCount // sentinel, keep last
)

// Pre-computed instruction names as written in scripts
var typeNames = [...]string{
	Comment: ";",

	If:    "If",
	IfNot: "IfNot",
	Else:  "Else",
	EndIf: "EndIf",

	For:      "For",
	Continue: "Continue",
	Exit:     "Exit",
	EndFor:   "EndFor",

	Select:                                "Select",
	SelectMany:                            "SelectMany",
	SelectWithPreview:                     "SelectWithPreview",
	SelectManyWithPreview:                 "SelectManyWithPreview",
	SelectWithDescriptions:                "SelectWithDescriptions",
	SelectManyWithDescriptions:            "SelectManyWithDescriptions",
	SelectWithDescriptionsAndPreviews:     "SelectWithDescriptionsAndPreviews",
	SelectManyWithDescriptionsAndPreviews: "SelectManyWithDescriptionsAndPreviews",
	SelectVar:                             "SelectVar",
	SelectString:                          "SelectString",
	Case:                                  "Case",
	Default:                               "Default",
	Break:                                 "Break",
	EndSelect:                             "EndSelect",

	Goto:       "Goto",
	Label:      "Label",
	Return:     "Return",
	FatalError: "FatalError",

	SetVar:                      "SetVar",
	ISet:                        "iSet",
	FSet:                        "fSet",
	GetFolderName:               "GetFolderName",
	GetDirectoryName:            "GetDirectoryName",
	GetFileName:                 "GetFileName",
	GetFileNameWithoutExtension: "GetFileNameWithoutExtension",
	CombinePaths:                "CombinePaths",
	Substring:                   "Substring",
	RemoveString:                "RemoveString",
	StringLength:                "StringLength",
	InputString:                 "InputString",
	ReadINI:                     "ReadINI",
	ReadRendererInfo:            "ReadRendererInfo",

	Message:      "Message",
	DisplayImage: "DisplayImage",
	DisplayText:  "DisplayText",

	LoadEarly:          "LoadEarly",
	LoadBefore:         "LoadBefore",
	LoadAfter:          "LoadAfter",
	ConflictsWith:      "ConflictsWith",
	DependsOn:          "DependsOn",
	ConflictsWithRegex: "ConflictsWithRegex",
	DependsOnRegex:     "DependsOnRegex",

	DontInstallAnyPlugins:   "DontInstallAnyPlugins",
	DontInstallAnyDataFiles: "DontInstallAnyDataFiles",
	InstallAllPlugins:       "InstallAllPlugins",
	InstallAllDataFiles:     "InstallAllDataFiles",
	InstallPlugin:           "InstallPlugin",
	DontInstallPlugin:       "DontInstallPlugin",
	InstallDataFile:         "InstallDataFile",
	DontInstallDataFile:     "DontInstallDataFile",
	InstallDataFolder:       "InstallDataFolder",
	DontInstallDataFolder:   "DontInstallDataFolder",
	RegisterBSA:             "RegisterBSA",
	UnregisterBSA:           "UnregisterBSA",

	CopyPlugin:     "CopyPlugin",
	CopyDataFile:   "CopyDataFile",
	CopyDataFolder: "CopyDataFolder",
	PatchPlugin:    "PatchPlugin",
	PatchDataFile:  "PatchDataFile",

	EditINI:                "EditINI",
	EditShader:             "EditShader",
	SetGMST:                "SetGMST",
	SetGlobal:              "SetGlobal",
	SetPluginByte:          "SetPluginByte",
	SetPluginShort:         "SetPluginShort",
	SetPluginInt:           "SetPluginInt",
	SetPluginLong:          "SetPluginLong",
	SetPluginFloat:         "SetPluginFloat",
	EditXMLLine:            "EditXMLLine",
	EditXMLReplace:         "EditXMLReplace",
	UncheckESP:             "UncheckESP",
	SetDeactivationWarning: "SetDeactivationWarning",

	AllowRunOnLines: "AllowRunOnLines",
	ExecLines:       "ExecLines",
}

var byName map[string]Type

func init() {
	byName = make(map[string]Type, len(typeNames))
	for t := Type(0); t < typeCount; t++ {
		if t == Comment {
			continue
		}
		byName[typeNames[t]] = t
	}
}

func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Lookup resolves an instruction name. Names are case-sensitive.
func Lookup(name string) (Type, bool) {
	t, ok := byName[name]
	return t, ok
}

// Names returns every instruction name, for suggestions
func Names() []string {
	names := make([]string, 0, len(byName))
	for t := Type(1); t < typeCount; t++ {
		names = append(names, typeNames[t])
	}
	return names
}

// All returns every Type, Comment included
func All() []Type {
	all := make([]Type, 0, typeCount)
	for t := Type(0); t < typeCount; t++ {
		all = append(all, t)
	}
	return all
}

// IsSelect reports whether t is one of the eight Select flavours
func (t Type) IsSelect() bool {
	return t >= Select && t <= SelectManyWithDescriptionsAndPreviews
}

// IsSelective reports whether t owns Case/Default children
func (t Type) IsSelective() bool {
	return t.IsSelect() || t == SelectVar || t == SelectString
}

// IsFlowStart reports whether t opens a control-flow frame
func (t Type) IsFlowStart() bool {
	switch t {
	case If, IfNot, Else, For, Case, Default:
		return true
	default:
		return t.IsSelective()
	}
}

// IsFlowEnd reports whether t closes a control-flow frame
func (t Type) IsFlowEnd() bool {
	switch t {
	case EndIf, EndFor, EndSelect, Break:
		return true
	default:
		return false
	}
}

// Closes reports whether the end token t may close a frame opened by start
func (t Type) Closes(start Type) bool {
	switch t {
	case EndIf:
		return start == If || start == IfNot || start == Else
	case EndFor:
		return start == For
	case EndSelect:
		return start.IsSelective()
	case Break:
		return start == Case || start == Default
	default:
		return false
	}
}
