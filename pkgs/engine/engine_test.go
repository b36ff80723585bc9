package engine

import (
	"context"
	stderrors "errors"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/installer"
	"github.com/aledsdavies/obmm/pkgs/parser"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// scriptHost answers dialogs from queues and lists fixed files
type scriptHost struct {
	plugins   []string
	dataFiles []string
	yesNo     []bool
	selects   [][]string
	inputs    []string

	requests []installer.SelectRequest
	messages []string
}

var _ installer.Host = (*scriptHost)(nil)

func (h *scriptHost) Message(text, title string) error {
	h.messages = append(h.messages, text)
	return nil
}

func (h *scriptHost) DialogYesNo(text, title string) (bool, error) {
	if len(h.yesNo) == 0 {
		return false, nil
	}
	v := h.yesNo[0]
	h.yesNo = h.yesNo[1:]
	return v, nil
}

func (h *scriptHost) Select(req installer.SelectRequest) ([]string, error) {
	h.requests = append(h.requests, req)
	if len(h.selects) == 0 {
		return nil, nil
	}
	v := h.selects[0]
	h.selects = h.selects[1:]
	return v, nil
}

func (h *scriptHost) InputString(title, initial string) (string, error) {
	if len(h.inputs) == 0 {
		return initial, nil
	}
	v := h.inputs[0]
	h.inputs = h.inputs[1:]
	return v, nil
}

func (h *scriptHost) DisplayImage(p, title string) error { return nil }
func (h *scriptHost) DisplayText(p, title string) error  { return nil }

func (h *scriptHost) DataFileExists(p string) (bool, error) {
	for _, f := range h.dataFiles {
		if strings.EqualFold(f, p) {
			return true, nil
		}
	}
	return false, nil
}

func (h *scriptHost) PluginExists(name string) (bool, error) {
	for _, p := range h.plugins {
		if strings.EqualFold(p, name) {
			return true, nil
		}
	}
	return false, nil
}

func (h *scriptHost) OBMMVersion() (string, error)             { return "1.1.12.0", nil }
func (h *scriptHost) ScriptExtenderVersion() (string, error)   { return "0.0.20.6", nil }
func (h *scriptHost) GraphicsExtenderVersion() (string, error) { return "", nil }
func (h *scriptHost) OblivionVersion() (string, error)         { return "1.2.0.416", nil }

func (h *scriptHost) ListDataFolders(p, pattern string, recurse bool) ([]string, error) {
	return nil, nil
}

func (h *scriptHost) ListPluginFolders(p, pattern string, recurse bool) ([]string, error) {
	return nil, nil
}

func (h *scriptHost) ListDataFiles(p, pattern string, recurse bool) ([]string, error) {
	var out []string
	for _, f := range h.dataFiles {
		if !strings.EqualFold(installer.DirectoryName(f), p) {
			continue
		}
		if ok, _ := path.Match(pattern, installer.FileName(f)); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (h *scriptHost) ListPlugins(p, pattern string, recurse bool) ([]string, error) {
	var out []string
	for _, name := range h.plugins {
		if ok, _ := path.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func (h *scriptHost) ReadINI(section, key string) (string, error) {
	return section + "." + key, nil
}

func (h *scriptHost) ReadRendererInfo(key string) (string, error) {
	return "renderer." + key, nil
}

func runScript(t *testing.T, script string, host *scriptHost, config Config) (*Result, error) {
	t.Helper()
	tokens, err := parser.Tokenize(script)
	require.NoError(t, err, "script must tokenize")
	if host == nil {
		host = &scriptHost{}
	}
	return Execute(context.Background(), tokens, installer.NewFunctions(host, nil), config)
}

func mustRun(t *testing.T, script string, host *scriptHost, config Config) *Result {
	t.Helper()
	res, err := runScript(t, script, host, config)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func scriptErr(t *testing.T, err error) *errors.ScriptError {
	t.Helper()
	require.Error(t, err)
	var se *errors.ScriptError
	require.True(t, stderrors.As(err, &se), "want *errors.ScriptError, got %T: %v", err, err)
	return se
}

// TestEngine_ForCount tests iteration counts of counted loops
func TestEngine_ForCount(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"default step", "For Count i 1 4", "123"},
		{"explicit step", "For Count i 0 10 3", "0369"},
		{"negative step", "For Count i 5 0 -2", "531"},
		{"empty range", "For Count i 3 3", ""},
		{"backwards range with positive step", "For Count i 5 1", ""},
		{"bounds from variables", "For Count i %lo% %hi%", "78"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := "SetVar lo 7\nSetVar hi 9\nSetVar s \"\"\n" + tt.header + "\nSetVar s %s%%i%\nEndFor"
			res := mustRun(t, script, nil, Config{Telemetry: TelemetryBasic})
			assert.Equal(t, tt.want, res.Variables["s"])
			assert.Equal(t, Completed, res.Outcome)
			assert.Equal(t, res.Telemetry.Pushes, res.Telemetry.Pops, "stack must balance")
		})
	}
}

// TestEngine_ForCountZeroStep tests that a zero step is rejected
func TestEngine_ForCountZeroStep(t *testing.T) {
	_, err := runScript(t, "For Count i 0 5 0\nEndFor", nil, Config{})
	se := scriptErr(t, err)
	assert.Equal(t, errors.ErrInvalidArgument, se.Type)
	assert.Equal(t, 1, se.Line)
}

// TestEngine_ForEach tests enumeration loops over host listings
func TestEngine_ForEach(t *testing.T) {
	host := &scriptHost{
		plugins:   []string{"a.esp", "b.esp", "c.esm"},
		dataFiles: []string{`textures\x.dds`, `textures\y.dds`, `meshes\z.nif`},
	}
	script := `SetVar p ""
For Each Plugin name "" *.esp
SetVar p "%p%%name%,"
EndFor
SetVar d ""
For Each DataFile f textures *.dds
SetVar d "%d%%f%,"
EndFor
For Each DataFolder f meshes
SetVar never 1
EndFor`

	res := mustRun(t, script, host, Config{Telemetry: TelemetryBasic})
	assert.Equal(t, "a.esp,b.esp,", res.Variables["p"])
	assert.Equal(t, `textures\x.dds,textures\y.dds,`, res.Variables["d"])
	assert.NotContains(t, res.Variables, "never")
	assert.Equal(t, res.Telemetry.Pushes, res.Telemetry.Pops)
}

// TestEngine_LoopControl tests Continue and Exit
func TestEngine_LoopControl(t *testing.T) {
	body := func(control string) string {
		return "SetVar s \"\"\nFor Count i 0 5\nIf Equal %i% 2\n" + control + "\nEndIf\nSetVar s %s%%i%\nEndFor"
	}

	res := mustRun(t, body("Continue"), nil, Config{})
	assert.Equal(t, "0134", res.Variables["s"])

	res = mustRun(t, body("Exit"), nil, Config{})
	assert.Equal(t, "01", res.Variables["s"])
	assert.Equal(t, "2", res.Variables["i"])
}

// TestEngine_LoopControlOutsideLoop tests Continue with no open loop
func TestEngine_LoopControlOutsideLoop(t *testing.T) {
	_, err := runScript(t, "SetVar a 1\nContinue", nil, Config{})
	se := scriptErr(t, err)
	assert.Equal(t, errors.ErrFrameMismatch, se.Type)
	assert.Equal(t, 2, se.Line)
}

// TestEngine_Conditionals tests If, IfNot and Else
func TestEngine_Conditionals(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   map[string]string
		absent []string
	}{
		{
			name:   "if true",
			script: "If Equal a a\nSetVar r yes\nElse\nSetVar r no\nEndIf",
			want:   map[string]string{"r": "yes"},
		},
		{
			name:   "if false takes else",
			script: "If Equal a b\nSetVar r yes\nElse\nSetVar r no\nEndIf",
			want:   map[string]string{"r": "no"},
		},
		{
			name:   "ifnot",
			script: "IfNot Equal a b\nSetVar r yes\nEndIf",
			want:   map[string]string{"r": "yes"},
		},
		{
			name:   "nested blocks inside a skipped branch",
			script: "If Equal a b\nIf Equal a a\nSetVar r inner\nElse\nSetVar r else\nEndIf\nEndIf\nSetVar done 1",
			want:   map[string]string{"done": "1"},
			absent: []string{"r"},
		},
		{
			name:   "else of a nested if",
			script: "If Equal a a\nIf Equal a b\nSetVar r inner\nElse\nSetVar r else\nEndIf\nEndIf",
			want:   map[string]string{"r": "else"},
		},
		{
			name:   "loop inside a skipped branch",
			script: "If Equal a b\nFor Count i 0 3\nSetVar r loop\nEndFor\nEndIf",
			absent: []string{"r", "i"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.script, nil, Config{Telemetry: TelemetryBasic})
			for k, v := range tt.want {
				assert.Equal(t, v, res.Variables[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, res.Variables, k)
			}
			assert.Equal(t, res.Telemetry.Pushes, res.Telemetry.Pops)
		})
	}
}

// TestEngine_ConditionKinds tests every condition against a fixed host
func TestEngine_ConditionKinds(t *testing.T) {
	tests := []struct {
		condition string
		want      bool
	}{
		{"VersionGreaterThan 1.1", true},
		{"VersionLessThan 1.1.12.0", false},
		{"VersionLessThan 2", true},
		{"ScriptExtenderPresent", true},
		{"ScriptExtenderNewerThan 0.0.20.6", true},
		{"ScriptExtenderNewerThan 0.0.21", false},
		{"GraphicsExtenderPresent", false},
		{"GraphicsExtenderNewerThan 0.1", false},
		{"OblivionNewerThan 1.2.0.416", true},
		{`DataFileExists textures\a.dds`, true},
		{`DataFileExists textures\b.dds`, false},
		{"Equal \"a b\" \"a b\"", true},
		{"GreaterThan 10 9", true},
		{"GreaterEqual 9 10", false},
		{"fGreaterEqual 2.5 2.50", true},
		{"fGreaterThan 0.1 0.2", false},
		{"DialogYesNo \"Install extras?\"", true},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			host := &scriptHost{dataFiles: []string{`textures\a.dds`}, yesNo: []bool{true}}
			res := mustRun(t, "If "+tt.condition+"\nSetVar r 1\nEndIf", host, Config{})
			_, ran := res.Variables["r"]
			assert.Equal(t, tt.want, ran)
		})
	}
}

// TestEngine_ConditionErrors tests operands that cannot be compared
func TestEngine_ConditionErrors(t *testing.T) {
	for _, cond := range []string{"GreaterThan x 1", "fGreaterThan 1 y", "VersionGreaterThan abc"} {
		t.Run(cond, func(t *testing.T) {
			_, err := runScript(t, "SetVar a 1\nIf "+cond+"\nEndIf", nil, Config{})
			se := scriptErr(t, err)
			assert.Equal(t, errors.ErrInvalidArgument, se.Type)
			assert.Equal(t, 2, se.Line)
		})
	}
}

const selectScript = `SetVar r ""
%s "Pick" A B C
Case A
SetVar r "%%r%%A"
Break
Case B
SetVar r "%%r%%B"
Break
Case B
SetVar r "%%r%%B"
Break
Default
SetVar r "%%r%%default"
Break
EndSelect`

// TestEngine_Select tests single and multi select matching
func TestEngine_Select(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		chosen []string
		want   string
	}{
		{"single stops at the first match", "Select", []string{"B"}, "B"},
		{"preselect marker is stripped", "Select", []string{"|A"}, "A"},
		{"multi matches every case", "SelectMany", []string{"A", "B"}, "ABB"},
		{"default when nothing matches", "Select", []string{"C"}, "default"},
		{"multi default when nothing matches", "SelectMany", []string{"C"}, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &scriptHost{selects: [][]string{tt.chosen}}
			script := strings.ReplaceAll(strings.Replace(selectScript, "%s", tt.kind, 1), "%%", "%")
			res := mustRun(t, script, host, Config{Telemetry: TelemetryBasic})
			assert.Equal(t, tt.want, res.Variables["r"])
			assert.Equal(t, res.Telemetry.Pushes, res.Telemetry.Pops)

			require.Len(t, host.requests, 1)
			assert.Equal(t, tt.kind == "SelectMany", host.requests[0].Many)
			assert.Equal(t, []string{"A", "B", "C"}, host.requests[0].Items)
		})
	}
}

// TestEngine_SelectPreviews tests that previews and descriptions reach the host substituted
func TestEngine_SelectPreviews(t *testing.T) {
	host := &scriptHost{selects: [][]string{{"A"}}}
	script := `SetVar dir shots
SelectWithDescriptionsAndPreviews "Pick %dir%" A %dir%\a.png "first" B %dir%\b.png "second"
Case A
Break
EndSelect`
	mustRun(t, script, host, Config{})

	require.Len(t, host.requests, 1)
	want := installer.SelectRequest{
		Title:        "Pick shots",
		Items:        []string{"A", "B"},
		Previews:     []string{`shots\a.png`, `shots\b.png`},
		Descriptions: []string{"first", "second"},
	}
	if diff := cmp.Diff(want, host.requests[0]); diff != "" {
		t.Errorf("select request mismatch (-want +got):\n%s", diff)
	}
}

// TestEngine_SelectValue tests SelectVar and SelectString
func TestEngine_SelectValue(t *testing.T) {
	script := `SetVar choice B
SelectVar choice
Case A
SetVar var A
Break
Case B
SetVar var B
Break
EndSelect
SelectString "%choice%x"
Case Bx
SetVar str Bx
Break
Default
SetVar str default
Break
EndSelect`

	res := mustRun(t, script, nil, Config{})
	assert.Equal(t, "B", res.Variables["var"])
	assert.Equal(t, "Bx", res.Variables["str"])
}

// TestEngine_EmptySelectCancels tests that an empty selection cancels the run
func TestEngine_EmptySelectCancels(t *testing.T) {
	res := mustRun(t, "Select \"Pick\" A B\nCase A\nBreak\nEndSelect\nSetVar after 1", &scriptHost{}, Config{})
	assert.Equal(t, Cancelled, res.Outcome)
	assert.True(t, res.Data.CancelInstall)
	assert.NotContains(t, res.Variables, "after")
}

// TestEngine_Goto tests backward jumps to recorded labels
func TestEngine_Goto(t *testing.T) {
	script := `SetVar n 0
Label top
iSet n %n% + 1
IfNot GreaterEqual %n% 3
Goto top
EndIf`

	res := mustRun(t, script, nil, Config{Warnings: true, Telemetry: TelemetryBasic})
	assert.Equal(t, "3", res.Variables["n"])
	assert.Equal(t, 2, res.Telemetry.Jumps)

	// Goto does not unwind the blocks it leaves
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "2 block(s) still open")
}

// TestEngine_GotoSkipped tests that a Goto inside a skipped block is ignored
func TestEngine_GotoSkipped(t *testing.T) {
	res := mustRun(t, "If Equal a b\nGoto nowhere\nEndIf\nSetVar done 1", nil, Config{})
	assert.Equal(t, "1", res.Variables["done"])
}

// TestEngine_GotoUnresolved tests a jump to a label not seen yet
func TestEngine_GotoUnresolved(t *testing.T) {
	_, err := runScript(t, "SetVar a 1\nGoto later\nLabel later", nil, Config{})
	se := scriptErr(t, err)
	assert.Equal(t, errors.ErrUnresolvedLabel, se.Type)
	assert.Equal(t, 2, se.Line)
}

// TestEngine_Termination tests Return, FatalError and context cancellation
func TestEngine_Termination(t *testing.T) {
	t.Run("return", func(t *testing.T) {
		res := mustRun(t, "SetVar a 1\nReturn\nSetVar a 2", nil, Config{})
		assert.Equal(t, Returned, res.Outcome)
		assert.Equal(t, "1", res.Variables["a"])
		assert.False(t, res.Data.CancelInstall)
	})

	t.Run("fatal error", func(t *testing.T) {
		res := mustRun(t, "SetVar what plugin\nFatalError Missing %what%\nSetVar after 1", nil, Config{})
		assert.Equal(t, Aborted, res.Outcome)
		assert.Equal(t, "Missing plugin", res.AbortMessage)
		assert.True(t, res.Data.CancelInstall)
		assert.NotContains(t, res.Variables, "after")
	})

	t.Run("context cancelled", func(t *testing.T) {
		tokens, err := parser.Tokenize("SetVar a 1\nSetVar b 2")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := Execute(ctx, tokens, installer.NewFunctions(&scriptHost{}, nil), Config{})
		require.NoError(t, err)
		assert.Equal(t, Cancelled, res.Outcome)
		assert.True(t, res.Data.CancelInstall)
		assert.Contains(t, res.Variables, "a")
		assert.NotContains(t, res.Variables, "b")
	})
}

// TestEngine_StructuralErrors tests scripts whose blocks do not pair up
func TestEngine_StructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantType string
		wantLine int
		openLine int
	}{
		{"end without block", "SetVar a 1\nEndIf", errors.ErrStackUnderflow, 2, 0},
		{"else without if", "Else", errors.ErrStackUnderflow, 1, 0},
		{"wrong end", "If Equal a a\nEndFor", errors.ErrFrameMismatch, 2, 1},
		{"case outside select", "If Equal a a\nCase x", errors.ErrFrameMismatch, 2, 1},
		{"break closing a loop", "For Count i 0 1\nBreak", errors.ErrFrameMismatch, 2, 1},
		{"undefined variable", "SetVar a %missing%", errors.ErrUndefinedVariable, 1, 0},
		{"malformed expression", "iSet a ( 1 + 2", errors.ErrMalformedExpression, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runScript(t, tt.script, nil, Config{})
			se := scriptErr(t, err)
			assert.Equal(t, tt.wantType, se.Type)
			assert.Equal(t, tt.wantLine, se.Line)
			if tt.openLine != 0 {
				got, ok := se.GetContext("open_line")
				require.True(t, ok)
				assert.Equal(t, tt.openLine, got)
			}
		})
	}
}

// TestEngine_Arithmetic tests iSet and fSet
func TestEngine_Arithmetic(t *testing.T) {
	res := mustRun(t, "SetVar x 4\niSet a 2 + 3 * %x%\nfSet b 1 / %x%\nfSet c 1E+10 / 10", nil, Config{})
	assert.Equal(t, "14", res.Variables["a"])
	assert.Equal(t, "0.25", res.Variables["b"])
	assert.Equal(t, "1000000000", res.Variables["c"])
}

// TestEngine_Substitution tests that substituted text is not scanned again
func TestEngine_Substitution(t *testing.T) {
	res := mustRun(t, "SetVar pct %\nSetVar a \"%pct%x%pct%\"\nSetVar c \"[%a%]\"\nSetVar d %NewLine%", nil, Config{})
	assert.Equal(t, "%x%", res.Variables["a"])
	assert.Equal(t, "[%x%]", res.Variables["c"])
	assert.Equal(t, "\n", res.Variables["d"])
}

// TestEngine_StringInstructions tests the output-variable instructions
func TestEngine_StringInstructions(t *testing.T) {
	host := &scriptHost{inputs: []string{"typed"}}
	script := `SetVar dir armor
CombinePaths p "textures\%dir%" a.dds
GetFileName f %p%
GetDirectoryName d %p%
GetFileNameWithoutExtension n %p%
StringLength len %f%
Substring sub %f% 0 1
RemoveString rem %f% 1
InputString in "Name?" default
ReadINI ini General sLanguage
ReadRendererInfo gpu Name`

	res := mustRun(t, script, host, Config{})
	want := map[string]string{
		"p":   `textures\armor\a.dds`,
		"f":   "a.dds",
		"d":   `textures\armor`,
		"n":   "a",
		"len": "5",
		"sub": "a",
		"rem": "a",
		"in":  "typed",
		"ini": "General.sLanguage",
		"gpu": "renderer.Name",
	}
	for k, v := range want {
		assert.Equal(t, v, res.Variables[k], k)
	}
}

// TestEngine_Instructions tests instructions that record into the return data
func TestEngine_Instructions(t *testing.T) {
	host := &scriptHost{
		plugins:   []string{"mod.esp", "extra.esp"},
		dataFiles: []string{`textures\a.dds`},
	}
	script := `SetVar p mod.esp
DontInstallPlugin extra.esp
InstallPlugin %p%
SetPluginInt %p% 16 258
ConflictsWith other.esp 1 0 2 5 "too old" Minor
DependsOnRegex "base.*\.esm"
LoadAfter %p% extra.esp
CopyDataFile textures\a.dds textures\b.dds
EditINI General bFlag 1
SetDeactivationWarning %p% WarnAgainst
Message "done"`

	res := mustRun(t, script, host, Config{})
	data := res.Data

	assert.Equal(t, []string{"mod.esp"}, data.InstallPlugins)
	assert.Equal(t, []string{"extra.esp"}, data.IgnorePlugins)
	require.Len(t, data.PluginEdits, 1)
	assert.Equal(t, []byte{2, 1, 0, 0}, data.PluginEdits[0].Data)
	assert.Equal(t, int64(16), data.PluginEdits[0].Offset)

	wantConflicts := []installer.Relation{{
		Mod: "other.esp", MinVersion: "1.0", MaxVersion: "2.5", Comment: "too old", Level: installer.ConflictMinor,
	}}
	if diff := cmp.Diff(wantConflicts, data.Conflicts); diff != "" {
		t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, data.Dependencies, 1)
	assert.True(t, data.Dependencies[0].Regex)

	assert.Len(t, data.LoadOrder, 1)
	assert.Len(t, data.CopyDataFiles, 1)
	assert.Len(t, data.INIEdits, 1)
	require.Len(t, data.Deactivations, 1)
	assert.Equal(t, installer.DeactivationWarnAgainst, data.Deactivations[0].Warning)
	assert.Equal(t, []string{"done"}, host.messages)
}

// TestEngine_InstructionArgumentErrors tests argument conversion failures
func TestEngine_InstructionArgumentErrors(t *testing.T) {
	host := &scriptHost{plugins: []string{"mod.esp"}}
	for _, line := range []string{
		"ConflictsWith other.esp 1 0 2",
		"DependsOn other.esp a b",
		"InstallDataFolder textures maybe",
		"SetPluginByte mod.esp 0 256",
		"SetPluginShort mod.esp x 1",
		"EditShader 300 s.sdp b.vso",
		"EditXMLLine a.xml one value",
		"SetDeactivationWarning mod.esp Sometimes",
		"Substring out abc x",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := runScript(t, line, host, Config{})
			se := scriptErr(t, err)
			assert.Equal(t, errors.ErrInvalidArgument, se.Type)
			assert.Equal(t, 1, se.Line)
		})
	}
}

// TestEngine_InstallSetScenario tests that a later DontInstallAny wins
func TestEngine_InstallSetScenario(t *testing.T) {
	res := mustRun(t, "InstallAllDataFiles\nDontInstallAnyDataFiles", nil, Config{})
	assert.Empty(t, res.Data.DataFilesToInstall([]string{`textures\a.dds`, `meshes\b.nif`}))
	assert.Equal(t, Completed, res.Outcome)
}

// TestEngine_Warnings tests warnings gathered during a run
func TestEngine_Warnings(t *testing.T) {
	script := "ExecLines \"SetVar a 1\"\nAllowRunOnLines\nIf Equal a a\nSetVar x 1"

	res := mustRun(t, script, nil, Config{Warnings: true})
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, 1, res.Warnings[0].Line)
	assert.Contains(t, res.Warnings[0].Message, "ExecLines")
	assert.Equal(t, 3, res.Warnings[1].Line)

	res = mustRun(t, script, nil, Config{})
	assert.Empty(t, res.Warnings)
}

// TestEngine_Observability tests telemetry and debug events
func TestEngine_Observability(t *testing.T) {
	script := "; header\nFor Count i 0 2\nIf Equal %i% 0\nSetVar z 1\nEndIf\nEndFor"

	res := mustRun(t, script, nil, Config{Telemetry: TelemetryTiming, Debug: DebugPaths})
	require.NotNil(t, res.Telemetry)
	assert.Equal(t, 5, res.Telemetry.TokenCount, "comments are not executed")
	assert.Equal(t, res.Telemetry.Pushes, res.Telemetry.Pops)
	assert.Equal(t, 2, res.Telemetry.MaxDepth)
	assert.Equal(t, 1, res.Telemetry.Jumps)
	assert.NotEmpty(t, res.Telemetry.Timings)
	assert.NotEmpty(t, res.RunID)

	var events []string
	for _, e := range res.DebugEvents {
		events = append(events, e.Event)
	}
	assert.Contains(t, events, "enter_execute")
	assert.Contains(t, events, "loop")
	assert.Contains(t, events, "exit_execute")

	res = mustRun(t, script, nil, Config{})
	assert.Nil(t, res.Telemetry)
	assert.Empty(t, res.DebugEvents)
}

// TestEngine_ConcurrentRuns tests that one token list serves independent runs
func TestEngine_ConcurrentRuns(t *testing.T) {
	tokens, err := parser.Tokenize(`SetVar s ""
For Count i 0 4
SetVar s %s%%i%
EndFor
Select "Pick" A B
Case A
SetVar pick A
Break
Case B
SetVar pick B
Break
EndSelect`)
	require.NoError(t, err)

	const runs = 8
	results := make([]*Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choice := "A"
			if i%2 == 1 {
				choice = "B"
			}
			host := &scriptHost{selects: [][]string{{choice}}}
			res, err := Execute(context.Background(), tokens, installer.NewFunctions(host, nil), Config{})
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res, "run %d failed", i)
		assert.Equal(t, "0123", res.Variables["s"])
		want := "A"
		if i%2 == 1 {
			want = "B"
		}
		assert.Equal(t, want, res.Variables["pick"])
	}
}

// TestEngine_Deterministic tests that repeated runs give identical data
func TestEngine_Deterministic(t *testing.T) {
	script := "InstallAllPlugins\nDontInstallPlugin mod.esp\nEditINI General bFlag 1"
	var digests []string
	for i := 0; i < 2; i++ {
		res := mustRun(t, script, &scriptHost{plugins: []string{"mod.esp"}}, Config{})
		d, err := res.Data.Digest()
		require.NoError(t, err)
		digests = append(digests, d)
	}
	assert.Equal(t, digests[0], digests[1])
}

// TestEngine_EveryTypeExecutes tests that each token type has exactly one execution path
func TestEngine_EveryTypeExecutes(t *testing.T) {
	for _, typ := range token.All() {
		_, table := instructions[typ]
		flow := flowTypes[typ] || typ.IsSelective()
		assert.True(t, table != flow, "%s: table=%v flow=%v", typ, table, flow)
	}
}
