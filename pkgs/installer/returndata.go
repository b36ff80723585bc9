package installer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// CopyFile is a CopyPlugin, CopyDataFile or expanded CopyDataFolder request
type CopyFile struct {
	From string `cbor:"1,keyasint"`
	To   string `cbor:"2,keyasint"`
}

// PatchFile is a PatchPlugin or PatchDataFile request. Create installs the file
// even when nothing exists to patch.
type PatchFile struct {
	From   string `cbor:"1,keyasint"`
	To     string `cbor:"2,keyasint"`
	Plugin bool   `cbor:"3,keyasint"`
	Create bool   `cbor:"4,keyasint"`
}

// INIEdit is an EditINI request against the game's ini file
type INIEdit struct {
	Section string `cbor:"1,keyasint"`
	Key     string `cbor:"2,keyasint"`
	Value   string `cbor:"3,keyasint"`
}

// ShaderEdit is an EditShader request
type ShaderEdit struct {
	Package uint8  `cbor:"1,keyasint"`
	Shader  string `cbor:"2,keyasint"`
	Binary  string `cbor:"3,keyasint"`
}

// RecordEdit is a SetGMST or SetGlobal request
type RecordEdit struct {
	GMST     bool   `cbor:"1,keyasint"`
	Plugin   string `cbor:"2,keyasint"`
	EditorID string `cbor:"3,keyasint"`
	Value    string `cbor:"4,keyasint"`
}

// PluginEdit is a raw SetPlugin* write. Data holds the little-endian value.
type PluginEdit struct {
	Plugin string `cbor:"1,keyasint"`
	Offset int64  `cbor:"2,keyasint"`
	Data   []byte `cbor:"3,keyasint"`
}

// XMLEdit is an EditXMLLine (Line > 0) or EditXMLReplace (Find set) request
type XMLEdit struct {
	File  string `cbor:"1,keyasint"`
	Line  int    `cbor:"2,keyasint,omitempty"`
	Find  string `cbor:"3,keyasint,omitempty"`
	Value string `cbor:"4,keyasint"`
}

// LoadOrder is a LoadBefore or LoadAfter hint: Plugin loads relative to Target
type LoadOrder struct {
	Plugin string `cbor:"1,keyasint"`
	Target string `cbor:"2,keyasint"`
	After  bool   `cbor:"3,keyasint"`
}

// DeactivationWarning is the argument of SetDeactivationWarning
type DeactivationWarning string

const (
	DeactivationAllow       DeactivationWarning = "Allow"
	DeactivationWarnAgainst DeactivationWarning = "WarnAgainst"
	DeactivationDisallow    DeactivationWarning = "Disallow"
)

// ParseDeactivationWarning accepts the three script spellings
func ParseDeactivationWarning(s string) (DeactivationWarning, bool) {
	switch DeactivationWarning(s) {
	case DeactivationAllow, DeactivationWarnAgainst, DeactivationDisallow:
		return DeactivationWarning(s), true
	}
	return "", false
}

// Deactivation pairs a plugin with its deactivation warning
type Deactivation struct {
	Plugin  string              `cbor:"1,keyasint"`
	Warning DeactivationWarning `cbor:"2,keyasint"`
}

// ConflictLevel grades a ConflictsWith declaration
type ConflictLevel string

const (
	ConflictMinor    ConflictLevel = "Minor"
	ConflictMajor    ConflictLevel = "Major"
	ConflictUnusable ConflictLevel = "Unusable"
)

// Relation is a ConflictsWith or DependsOn declaration. Versions are
// "major.minor" and empty when the declaration has no version range.
type Relation struct {
	Mod        string        `cbor:"1,keyasint"`
	MinVersion string        `cbor:"2,keyasint,omitempty"`
	MaxVersion string        `cbor:"3,keyasint,omitempty"`
	Comment    string        `cbor:"4,keyasint,omitempty"`
	Level      ConflictLevel `cbor:"5,keyasint,omitempty"`
	Regex      bool          `cbor:"6,keyasint"`
}

// ReturnData accumulates everything a script asked the installer to do.
//
// Plugin and data file names are compared case-insensitively; the install and
// ignore lists never hold the same name twice, and a name is never in both.
type ReturnData struct {
	CancelInstall bool `cbor:"1,keyasint"`

	InstallAllPlugins bool     `cbor:"2,keyasint"`
	InstallAllData    bool     `cbor:"3,keyasint"`
	InstallPlugins    []string `cbor:"4,keyasint"`
	IgnorePlugins     []string `cbor:"5,keyasint"`
	InstallData       []string `cbor:"6,keyasint"`
	IgnoreData        []string `cbor:"7,keyasint"`

	CopyPlugins   []CopyFile  `cbor:"8,keyasint"`
	CopyDataFiles []CopyFile  `cbor:"9,keyasint"`
	PatchFiles    []PatchFile `cbor:"10,keyasint"`
	RegisterBSAs  []string    `cbor:"11,keyasint"`

	INIEdits    []INIEdit    `cbor:"12,keyasint"`
	ShaderEdits []ShaderEdit `cbor:"13,keyasint"`
	RecordEdits []RecordEdit `cbor:"14,keyasint"`
	PluginEdits []PluginEdit `cbor:"15,keyasint"`
	XMLEdits    []XMLEdit    `cbor:"16,keyasint"`

	LoadOrder        []LoadOrder    `cbor:"17,keyasint"`
	EarlyPlugins     []string       `cbor:"18,keyasint"`
	UncheckedPlugins []string       `cbor:"19,keyasint"`
	Deactivations    []Deactivation `cbor:"20,keyasint"`
	Conflicts        []Relation     `cbor:"21,keyasint"`
	Dependencies     []Relation     `cbor:"22,keyasint"`
}

// NewReturnData returns the state every script starts from: install everything
func NewReturnData() *ReturnData {
	return &ReturnData{
		InstallAllPlugins: true,
		InstallAllData:    true,
	}
}

// PluginsToInstall resolves the install decision against the plugins present in
// the archive, in archive order.
func (r *ReturnData) PluginsToInstall(available []string) []string {
	return resolve(available, r.InstallAllPlugins, r.InstallPlugins, r.IgnorePlugins)
}

// DataFilesToInstall resolves the install decision against the data files present
// in the archive, in archive order.
func (r *ReturnData) DataFilesToInstall(available []string) []string {
	return resolve(available, r.InstallAllData, r.InstallData, r.IgnoreData)
}

func resolve(available []string, all bool, install, ignore []string) []string {
	out := []string{}
	for _, f := range available {
		if containsFold(ignore, f) {
			continue
		}
		if all || containsFold(install, f) {
			out = append(out, f)
		}
	}
	return out
}

// MarshalBinary produces the canonical CBOR encoding of the return data.
// Equal return data always encodes to the same bytes.
func (r *ReturnData) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// alias avoids MarshalBinary recursion
	type returnDataAlias ReturnData
	data, err := encMode.Marshal((*returnDataAlias)(r))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary
func (r *ReturnData) UnmarshalBinary(data []byte) error {
	type returnDataAlias ReturnData
	if err := cbor.Unmarshal(data, (*returnDataAlias)(r)); err != nil {
		return fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return nil
}

// Digest fingerprints the return data as "blake2b:<hex>"
func (r *ReturnData) Digest() (string, error) {
	data, err := r.MarshalBinary()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum), nil
}

// Summary lists the non-empty parts of the return data, one "name: count" per
// entry, sorted by name.
func (r *ReturnData) Summary() []string {
	counts := map[string]int{
		"install plugins":   len(r.InstallPlugins),
		"ignore plugins":    len(r.IgnorePlugins),
		"install data":      len(r.InstallData),
		"ignore data":       len(r.IgnoreData),
		"copy plugins":      len(r.CopyPlugins),
		"copy data files":   len(r.CopyDataFiles),
		"patches":           len(r.PatchFiles),
		"bsas":              len(r.RegisterBSAs),
		"ini edits":         len(r.INIEdits),
		"shader edits":      len(r.ShaderEdits),
		"record edits":      len(r.RecordEdits),
		"plugin edits":      len(r.PluginEdits),
		"xml edits":         len(r.XMLEdits),
		"load order":        len(r.LoadOrder),
		"early plugins":     len(r.EarlyPlugins),
		"unchecked plugins": len(r.UncheckedPlugins),
		"deactivations":     len(r.Deactivations),
		"conflicts":         len(r.Conflicts),
		"dependencies":      len(r.Dependencies),
	}

	var out []string
	for name, n := range counts {
		if n > 0 {
			out = append(out, fmt.Sprintf("%s: %d", name, n))
		}
	}
	sort.Strings(out)
	return out
}

func containsFold(list []string, s string) bool {
	return indexFold(list, s) >= 0
}

func indexFold(list []string, s string) int {
	for i, v := range list {
		if strings.EqualFold(v, s) {
			return i
		}
	}
	return -1
}

// addFold appends s unless an equal name is already present
func addFold(list []string, s string) []string {
	if containsFold(list, s) {
		return list
	}
	return append(list, s)
}

// removeFold drops every name equal to s
func removeFold(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if !strings.EqualFold(v, s) {
			out = append(out, v)
		}
	}
	return out
}
