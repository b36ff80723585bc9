package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/obmm/pkgs/installer"
)

// workspace holds a config without history, a data directory and scripts
type workspace struct {
	dir     string
	config  string
	dataDir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	w := &workspace{
		dir:     dir,
		config:  filepath.Join(dir, "obmm.yaml"),
		dataDir: filepath.Join(dir, "data"),
	}
	require.NoError(t, os.WriteFile(w.config, []byte("history: \"\"\nwarnings: true\n"), 0o644))
	for _, f := range []string{"mod.esp", "textures/a.dds"} {
		p := filepath.Join(w.dataDir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
	return w
}

func (w *workspace) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (w *workspace) exec(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	full := append([]string{"--config", w.config, "--no-color"}, args...)
	code = execute(full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunJSON(t *testing.T) {
	w := newWorkspace(t)
	script := w.file(t, "script.txt", `If DialogYesNo "Install textures?"
InstallDataFile textures\a.dds
Else
DontInstallAnyDataFiles
EndIf
Select "Plugin" Main None
Case Main
InstallPlugin mod.esp
Break
EndSelect`)
	answers := w.file(t, "answers.yaml", "yes_no: [true]\nselect: [[Main]]\n")

	code, stdout, stderr := w.exec("run", script, "--data-dir", w.dataDir, "--answers", answers, "--format", "json")
	require.Equal(t, exitSuccess, code, stderr)

	var rep struct {
		RunID   string                `json:"run_id"`
		Outcome string                `json:"outcome"`
		Digest  string                `json:"digest"`
		Data    *installer.ReturnData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, "completed", rep.Outcome)
	assert.NotEmpty(t, rep.RunID)
	assert.True(t, strings.HasPrefix(rep.Digest, "blake2b:"))
	assert.Equal(t, []string{"mod.esp"}, rep.Data.InstallPlugins)
	assert.Equal(t, []string{`textures\a.dds`}, rep.Data.InstallData)
}

func TestRunText(t *testing.T) {
	w := newWorkspace(t)
	script := w.file(t, "script.txt", "InstallPlugin missing.esp\nEditINI General bFlag 1")

	code, stdout, stderr := w.exec("run", script, "--data-dir", w.dataDir)
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stdout, "completed")
	assert.Contains(t, stdout, "missing.esp", "missing plugin is reported as a warning")
	assert.Contains(t, stdout, "digest blake2b:")
}

func TestRunCBOR(t *testing.T) {
	w := newWorkspace(t)
	script := w.file(t, "script.txt", "InstallPlugin mod.esp")

	code, stdout, stderr := w.exec("run", script, "--data-dir", w.dataDir, "--format", "cbor")
	require.Equal(t, exitSuccess, code, stderr)

	var data installer.ReturnData
	require.NoError(t, data.UnmarshalBinary([]byte(stdout)))
	assert.Equal(t, []string{"mod.esp"}, data.InstallPlugins)
}

func TestRunExitCodes(t *testing.T) {
	w := newWorkspace(t)
	tests := []struct {
		name    string
		script  string
		args    []string
		want    int
		message string
	}{
		{"fatal error", "FatalError Missing requirement", nil, exitExecutionError, "Missing requirement"},
		{"cancelled select", "Select \"Pick\" A B\nCase A\nBreak\nEndSelect", []string{"--answers", "cancel.yaml"}, exitExecutionError, "cancelled"},
		{"unknown instruction", "InstalPlugin mod.esp", nil, exitParseError, "UNKNOWN_TOKEN"},
		{"structural error", "EndIf", nil, exitExecutionError, "STACK_UNDERFLOW"},
		{"bad format", "Return", []string{"--format", "xml"}, exitInvalidArguments, "unsupported format"},
		{"dialect byte", "\x01print('hi')", nil, exitParseError, "UNSUPPORTED_DIALECT"},
	}
	w.file(t, "cancel.yaml", "select: [[]]\n")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := w.file(t, "script.txt", tt.script)
			args := []string{"run", script, "--data-dir", w.dataDir}
			for _, a := range tt.args {
				if strings.HasSuffix(a, ".yaml") {
					a = filepath.Join(w.dir, a)
				}
				args = append(args, a)
			}

			code, _, stderr := w.exec(args...)
			assert.Equal(t, tt.want, code, stderr)
			assert.Contains(t, stderr, tt.message)
		})
	}
}

func TestRunMissingScript(t *testing.T) {
	w := newWorkspace(t)
	code, _, stderr := w.exec("run", filepath.Join(w.dir, "absent.txt"))
	assert.Equal(t, exitIOError, code)
	assert.Contains(t, stderr, "cannot read script")
}

func TestCheck(t *testing.T) {
	w := newWorkspace(t)

	code, stdout, _ := w.exec("check", w.file(t, "good.txt", "; fine\nIf Equal a a\nEndIf"))
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "ok, 3 tokens")

	code, _, stderr := w.exec("check", w.file(t, "bad.txt", "If Equal a\nEndIf"))
	assert.Equal(t, exitParseError, code)
	assert.Contains(t, stderr, "line 1")
}

func TestTokenize(t *testing.T) {
	w := newWorkspace(t)
	code, stdout, stderr := w.exec("tokenize", w.file(t, "s.txt", "SetVar a \"x y\"\nReturn"))
	require.Equal(t, exitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SetVar")
	assert.Contains(t, lines[0], `"x y"`)
	assert.Contains(t, lines[1], "Return")
}

func TestEval(t *testing.T) {
	w := newWorkspace(t)

	code, stdout, _ := w.exec("eval", "int", "5", "*", "(", "12", "^", "3", ")", "-", "not", "20")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "8661\n", stdout)

	code, stdout, _ = w.exec("eval", "float", "1E+10", "/", "10")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "1000000000\n", stdout)

	code, _, stderr := w.exec("eval", "int", "(", "1")
	assert.Equal(t, exitExecutionError, code)
	assert.Contains(t, stderr, "MALFORMED_EXPRESSION")

	code, _, _ = w.exec("eval", "hex", "1")
	assert.Equal(t, exitInvalidArguments, code)
}

func TestHistory(t *testing.T) {
	w := newWorkspace(t)
	db := filepath.Join(w.dir, "state", "history.db")
	script := w.file(t, "script.txt", "InstallPlugin mod.esp")

	code, stdout, stderr := w.exec("--history", db, "run", script, "--data-dir", w.dataDir, "--format", "json")
	require.Equal(t, exitSuccess, code, stderr)
	var rep struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))

	code, stdout, stderr = w.exec("--history", db, "history", "list")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stdout, rep.RunID)
	assert.Contains(t, stdout, "completed")

	code, stdout, stderr = w.exec("--history", db, "history", "show", rep.RunID)
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stdout, "blake2b:")

	code, _, _ = w.exec("--history", db, "history", "show", "nope")
	assert.Equal(t, exitInvalidArguments, code)

	code, _, stderr = w.exec("history", "list")
	assert.Equal(t, exitInvalidArguments, code)
	assert.Contains(t, stderr, "no history database")
}
