package installer

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/aledsdavies/obmm/core/invariant"
	"github.com/aledsdavies/obmm/pkgs/errors"
)

// Functions is the Collaborator used for real installs. Dialogs and queries go
// to the Host; everything else is recorded in ReturnData.
//
// Requests naming a plugin or data file the archive does not contain are
// skipped with a warning, the way the legacy installer treated them.
type Functions struct {
	host     Host
	data     *ReturnData
	logger   *slog.Logger
	warnings []string
}

var _ Collaborator = (*Functions)(nil)

// NewFunctions returns a collaborator over host with fresh return data.
// A nil logger discards.
func NewFunctions(host Host, logger *slog.Logger) *Functions {
	invariant.NotNil(host, "host")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Functions{
		host:   host,
		data:   NewReturnData(),
		logger: logger,
	}
}

// ReturnData returns the accumulated result
func (f *Functions) ReturnData() *ReturnData {
	return f.data
}

// Warnings returns the requests that were skipped, in order
func (f *Functions) Warnings() []string {
	return f.warnings
}

func (f *Functions) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	f.logger.Warn(msg)
	f.warnings = append(f.warnings, msg)
}

// hostErr wraps a failed host call, turning a user cancellation into CancelInstall
func (f *Functions) hostErr(op string, err error) (cancelled bool, wrapped error) {
	if err == nil {
		return false, nil
	}
	if stderrors.Is(err, ErrCancelled) {
		f.logger.Debug("cancelled", "operation", op)
		f.data.CancelInstall = true
		return true, nil
	}
	return false, errors.NewCollaboratorError(op, err)
}

// Dialogs

func (f *Functions) Message(text, title string) error {
	_, err := f.hostErr("Message", f.host.Message(text, title))
	return err
}

func (f *Functions) DialogYesNo(text, title string) (bool, error) {
	yes, err := f.host.DialogYesNo(text, title)
	if cancelled, err := f.hostErr("DialogYesNo", err); cancelled || err != nil {
		return false, err
	}
	return yes, nil
}

// Select forwards the prompt. An empty answer cancels the install.
func (f *Functions) Select(req SelectRequest) ([]string, error) {
	chosen, err := f.host.Select(req)
	if cancelled, err := f.hostErr("Select", err); cancelled || err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		f.logger.Debug("empty selection cancels install", "title", req.Title)
		f.data.CancelInstall = true
	}
	return chosen, nil
}

func (f *Functions) InputString(title, initial string) (string, error) {
	s, err := f.host.InputString(title, initial)
	if cancelled, err := f.hostErr("InputString", err); cancelled || err != nil {
		return "", err
	}
	return s, nil
}

func (f *Functions) DisplayImage(p, title string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	_, err = f.hostErr("DisplayImage", f.host.DisplayImage(clean, title))
	return err
}

func (f *Functions) DisplayText(p, title string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	_, err = f.hostErr("DisplayText", f.host.DisplayText(clean, title))
	return err
}

// Queries

func (f *Functions) DataFileExists(p string) (bool, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return false, err
	}
	ok, err := f.host.DataFileExists(clean)
	if err != nil {
		return false, errors.NewCollaboratorError("DataFileExists", err)
	}
	return ok, nil
}

func (f *Functions) OBMMVersion() (string, error) {
	return f.version("OBMMVersion", f.host.OBMMVersion)
}

func (f *Functions) ScriptExtenderVersion() (string, error) {
	return f.version("ScriptExtenderVersion", f.host.ScriptExtenderVersion)
}

func (f *Functions) GraphicsExtenderVersion() (string, error) {
	return f.version("GraphicsExtenderVersion", f.host.GraphicsExtenderVersion)
}

func (f *Functions) OblivionVersion() (string, error) {
	return f.version("OblivionVersion", f.host.OblivionVersion)
}

func (f *Functions) version(op string, get func() (string, error)) (string, error) {
	v, err := get()
	if err != nil {
		return "", errors.NewCollaboratorError(op, err)
	}
	return v, nil
}

func (f *Functions) ListDataFolders(p, pattern string, recurse bool) ([]string, error) {
	return f.list("ListDataFolders", f.host.ListDataFolders, p, pattern, recurse)
}

func (f *Functions) ListPluginFolders(p, pattern string, recurse bool) ([]string, error) {
	return f.list("ListPluginFolders", f.host.ListPluginFolders, p, pattern, recurse)
}

func (f *Functions) ListDataFiles(p, pattern string, recurse bool) ([]string, error) {
	return f.list("ListDataFiles", f.host.ListDataFiles, p, pattern, recurse)
}

func (f *Functions) ListPlugins(p, pattern string, recurse bool) ([]string, error) {
	return f.list("ListPlugins", f.host.ListPlugins, p, pattern, recurse)
}

type lister func(p, pattern string, recurse bool) ([]string, error)

func (f *Functions) list(op string, fn lister, p, pattern string, recurse bool) ([]string, error) {
	// "" lists the root of the archive
	clean := ""
	if strings.TrimSpace(p) != "" {
		var err error
		if clean, err = CleanPath(p); err != nil {
			return nil, err
		}
	}
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.Newf(errors.ErrInvalidArgument, "bad pattern '%s'", pattern).
			WithContext("pattern", pattern)
	}

	out, err := fn(clean, pattern, recurse)
	if err != nil {
		return nil, errors.NewCollaboratorError(op, err)
	}
	return out, nil
}

func (f *Functions) ReadINI(section, key string) (string, error) {
	v, err := f.host.ReadINI(section, key)
	if err != nil {
		return "", errors.NewCollaboratorError("ReadINI", err)
	}
	return v, nil
}

func (f *Functions) ReadRendererInfo(key string) (string, error) {
	v, err := f.host.ReadRendererInfo(key)
	if err != nil {
		return "", errors.NewCollaboratorError("ReadRendererInfo", err)
	}
	return v, nil
}

// Load order and relations

func (f *Functions) LoadEarly(plugin string) error {
	name, ok, err := f.plugin("LoadEarly", plugin)
	if !ok || err != nil {
		return err
	}
	f.data.EarlyPlugins = addFold(f.data.EarlyPlugins, name)
	return nil
}

func (f *Functions) LoadBefore(plugin, target string) error {
	return f.loadOrder("LoadBefore", plugin, target, false)
}

func (f *Functions) LoadAfter(plugin, target string) error {
	return f.loadOrder("LoadAfter", plugin, target, true)
}

func (f *Functions) loadOrder(op, plugin, target string, after bool) error {
	name, ok, err := f.plugin(op, plugin)
	if !ok || err != nil {
		return err
	}
	if !isPluginName(target) {
		return errors.Newf(errors.ErrInvalidArgument, "%s: '%s' is not a plugin", op, target)
	}
	f.data.LoadOrder = append(f.data.LoadOrder, LoadOrder{Plugin: name, Target: target, After: after})
	return nil
}

func (f *Functions) ConflictsWith(r Relation) error {
	if err := checkRelation("ConflictsWith", r); err != nil {
		return err
	}
	if r.Level == "" {
		r.Level = ConflictMajor
	}
	f.data.Conflicts = append(f.data.Conflicts, r)
	return nil
}

func (f *Functions) DependsOn(r Relation) error {
	if err := checkRelation("DependsOn", r); err != nil {
		return err
	}
	r.Level = ""
	f.data.Dependencies = append(f.data.Dependencies, r)
	return nil
}

func checkRelation(op string, r Relation) error {
	if r.Regex {
		if _, err := regexp.Compile(r.Mod); err != nil {
			return errors.Wrap(errors.ErrInvalidArgument, op+": invalid pattern", err).
				WithContext("pattern", r.Mod)
		}
	}
	for _, v := range []string{r.MinVersion, r.MaxVersion} {
		if v == "" {
			continue
		}
		if _, err := parseVersion(v); err != nil {
			return err
		}
	}
	switch r.Level {
	case "", ConflictMinor, ConflictMajor, ConflictUnusable:
		return nil
	default:
		return errors.Newf(errors.ErrInvalidArgument, "%s: unknown level '%s'", op, r.Level)
	}
}

// Install decisions

func (f *Functions) InstallAllPlugins() {
	f.data.InstallAllPlugins = true
	f.data.IgnorePlugins = nil
}

func (f *Functions) DontInstallAnyPlugins() {
	f.data.InstallAllPlugins = false
	f.data.InstallPlugins = nil
}

func (f *Functions) InstallAllDataFiles() {
	f.data.InstallAllData = true
	f.data.IgnoreData = nil
}

func (f *Functions) DontInstallAnyDataFiles() {
	f.data.InstallAllData = false
	f.data.InstallData = nil
}

func (f *Functions) InstallPlugin(name string) error {
	clean, ok, err := f.plugin("InstallPlugin", name)
	if !ok || err != nil {
		return err
	}
	f.data.IgnorePlugins = removeFold(f.data.IgnorePlugins, clean)
	f.data.InstallPlugins = addFold(f.data.InstallPlugins, clean)
	return nil
}

func (f *Functions) DontInstallPlugin(name string) error {
	clean, ok, err := f.plugin("DontInstallPlugin", name)
	if !ok || err != nil {
		return err
	}
	f.data.InstallPlugins = removeFold(f.data.InstallPlugins, clean)
	f.data.IgnorePlugins = addFold(f.data.IgnorePlugins, clean)
	return nil
}

func (f *Functions) InstallDataFile(name string) error {
	clean, ok, err := f.dataFile("InstallDataFile", name)
	if !ok || err != nil {
		return err
	}
	f.installData(clean)
	return nil
}

func (f *Functions) DontInstallDataFile(name string) error {
	clean, ok, err := f.dataFile("DontInstallDataFile", name)
	if !ok || err != nil {
		return err
	}
	f.ignoreData(clean)
	return nil
}

func (f *Functions) installData(name string) {
	f.data.IgnoreData = removeFold(f.data.IgnoreData, name)
	f.data.InstallData = addFold(f.data.InstallData, name)
}

func (f *Functions) ignoreData(name string) {
	f.data.InstallData = removeFold(f.data.InstallData, name)
	f.data.IgnoreData = addFold(f.data.IgnoreData, name)
}

func (f *Functions) InstallDataFolder(folder string, recurse bool) error {
	files, err := f.folderFiles("InstallDataFolder", folder, recurse)
	if err != nil {
		return err
	}
	for _, file := range files {
		f.installData(file)
	}
	return nil
}

func (f *Functions) DontInstallDataFolder(folder string, recurse bool) error {
	files, err := f.folderFiles("DontInstallDataFolder", folder, recurse)
	if err != nil {
		return err
	}
	for _, file := range files {
		f.ignoreData(file)
	}
	return nil
}

func (f *Functions) folderFiles(op, folder string, recurse bool) ([]string, error) {
	clean, err := CleanPath(folder)
	if err != nil {
		return nil, err
	}
	files, err := f.host.ListDataFiles(clean, "*", recurse)
	if err != nil {
		return nil, errors.NewCollaboratorError(op, err)
	}
	if len(files) == 0 {
		f.warn("%s: folder '%s' has no files", op, clean)
	}
	return files, nil
}

func (f *Functions) RegisterBSA(p string) error {
	clean, err := bsaPath("RegisterBSA", p)
	if err != nil {
		return err
	}
	f.data.RegisterBSAs = addFold(f.data.RegisterBSAs, clean)
	return nil
}

func (f *Functions) UnregisterBSA(p string) error {
	clean, err := bsaPath("UnregisterBSA", p)
	if err != nil {
		return err
	}
	f.data.RegisterBSAs = removeFold(f.data.RegisterBSAs, clean)
	return nil
}

func bsaPath(op, p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(path.Ext(toSlash(clean)), ".bsa") {
		return "", errors.Newf(errors.ErrInvalidArgument, "%s: '%s' is not a bsa", op, p)
	}
	return clean, nil
}

// Copies and patches

func (f *Functions) CopyPlugin(from, to string) error {
	src, ok, err := f.plugin("CopyPlugin", from)
	if !ok || err != nil {
		return err
	}
	dst, err := CleanPath(to)
	if err != nil {
		return err
	}
	if !isPluginName(dst) || strings.Contains(dst, `\`) {
		return errors.Newf(errors.ErrInvalidArgument, "CopyPlugin: '%s' is not a plugin name", to)
	}
	f.data.CopyPlugins = replaceCopy(f.data.CopyPlugins, CopyFile{From: src, To: dst})
	return nil
}

func (f *Functions) CopyDataFile(from, to string) error {
	src, ok, err := f.dataFile("CopyDataFile", from)
	if !ok || err != nil {
		return err
	}
	dst, err := CleanPath(to)
	if err != nil {
		return err
	}
	if isPluginName(dst) {
		return errors.Newf(errors.ErrInvalidArgument, "CopyDataFile: cannot copy to plugin '%s'", to)
	}
	f.data.CopyDataFiles = replaceCopy(f.data.CopyDataFiles, CopyFile{From: src, To: dst})
	return nil
}

func (f *Functions) CopyDataFolder(from, to string, recurse bool) error {
	files, err := f.folderFiles("CopyDataFolder", from, recurse)
	if err != nil {
		return err
	}
	src, _ := CleanPath(from)
	dst, err := CleanPath(to)
	if err != nil {
		return err
	}
	for _, file := range files {
		rel := relativeTo(src, file)
		if isPluginName(rel) {
			continue
		}
		f.data.CopyDataFiles = replaceCopy(f.data.CopyDataFiles, CopyFile{From: file, To: CombinePaths(dst, rel)})
	}
	return nil
}

func (f *Functions) PatchPlugin(from, to string, create bool) error {
	src, ok, err := f.plugin("PatchPlugin", from)
	if !ok || err != nil {
		return err
	}
	dst, err := CleanPath(to)
	if err != nil {
		return err
	}
	if !isPluginName(dst) || strings.Contains(dst, `\`) {
		return errors.Newf(errors.ErrInvalidArgument, "PatchPlugin: '%s' is not a plugin name", to)
	}
	f.data.PatchFiles = append(f.data.PatchFiles, PatchFile{From: src, To: dst, Plugin: true, Create: create})
	return nil
}

func (f *Functions) PatchDataFile(from, to string, create bool) error {
	src, ok, err := f.dataFile("PatchDataFile", from)
	if !ok || err != nil {
		return err
	}
	dst, err := CleanPath(to)
	if err != nil {
		return err
	}
	if isPluginName(dst) {
		return errors.Newf(errors.ErrInvalidArgument, "PatchDataFile: cannot patch plugin '%s'", to)
	}
	f.data.PatchFiles = append(f.data.PatchFiles, PatchFile{From: src, To: dst, Create: create})
	return nil
}

// replaceCopy keeps one copy per destination; the latest request wins
func replaceCopy(list []CopyFile, c CopyFile) []CopyFile {
	for i := range list {
		if strings.EqualFold(list[i].To, c.To) {
			list[i] = c
			return list
		}
	}
	return append(list, c)
}

// Edits

func (f *Functions) EditINI(section, key, value string) error {
	f.data.INIEdits = append(f.data.INIEdits, INIEdit{Section: section, Key: key, Value: value})
	return nil
}

func (f *Functions) EditShader(pkg uint8, shader, binaryPath string) error {
	clean, err := CleanPath(binaryPath)
	if err != nil {
		return err
	}
	f.data.ShaderEdits = append(f.data.ShaderEdits, ShaderEdit{Package: pkg, Shader: shader, Binary: clean})
	return nil
}

func (f *Functions) SetGMST(plugin, editorID, value string) error {
	return f.recordEdit("SetGMST", true, plugin, editorID, value)
}

func (f *Functions) SetGlobal(plugin, editorID, value string) error {
	return f.recordEdit("SetGlobal", false, plugin, editorID, value)
}

func (f *Functions) recordEdit(op string, gmst bool, plugin, editorID, value string) error {
	name, ok, err := f.plugin(op, plugin)
	if !ok || err != nil {
		return err
	}
	f.data.RecordEdits = append(f.data.RecordEdits, RecordEdit{
		GMST:     gmst,
		Plugin:   name,
		EditorID: editorID,
		Value:    value,
	})
	return nil
}

func (f *Functions) SetPluginByte(plugin string, offset int64, v uint8) error {
	return f.pluginEdit("SetPluginByte", plugin, offset, v)
}

func (f *Functions) SetPluginShort(plugin string, offset int64, v int16) error {
	return f.pluginEdit("SetPluginShort", plugin, offset, v)
}

func (f *Functions) SetPluginInt(plugin string, offset int64, v int32) error {
	return f.pluginEdit("SetPluginInt", plugin, offset, v)
}

func (f *Functions) SetPluginLong(plugin string, offset int64, v int64) error {
	return f.pluginEdit("SetPluginLong", plugin, offset, v)
}

func (f *Functions) SetPluginFloat(plugin string, offset int64, v float32) error {
	return f.pluginEdit("SetPluginFloat", plugin, offset, v)
}

func (f *Functions) pluginEdit(op, plugin string, offset int64, v interface{}) error {
	if offset < 0 {
		return errors.Newf(errors.ErrInvalidArgument, "%s: negative offset %d", op, offset)
	}
	name, ok, err := f.plugin(op, plugin)
	if !ok || err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%s: encode value: %w", op, err)
	}
	f.data.PluginEdits = append(f.data.PluginEdits, PluginEdit{Plugin: name, Offset: offset, Data: buf.Bytes()})
	return nil
}

var editableText = map[string]bool{".xml": true, ".txt": true, ".ini": true, ".bat": true}

func (f *Functions) EditXMLLine(file string, line int, value string) error {
	clean, err := f.textFile("EditXMLLine", file)
	if err != nil {
		return err
	}
	if line < 1 {
		return errors.Newf(errors.ErrInvalidArgument, "EditXMLLine: line %d must be at least 1", line)
	}
	f.data.XMLEdits = append(f.data.XMLEdits, XMLEdit{File: clean, Line: line, Value: value})
	return nil
}

func (f *Functions) EditXMLReplace(file, find, replace string) error {
	clean, err := f.textFile("EditXMLReplace", file)
	if err != nil {
		return err
	}
	if find == "" {
		return errors.New(errors.ErrInvalidArgument, "EditXMLReplace: nothing to find")
	}
	f.data.XMLEdits = append(f.data.XMLEdits, XMLEdit{File: clean, Find: find, Value: replace})
	return nil
}

func (f *Functions) textFile(op, file string) (string, error) {
	clean, err := CleanPath(file)
	if err != nil {
		return "", err
	}
	if !editableText[strings.ToLower(path.Ext(toSlash(clean)))] {
		return "", errors.Newf(errors.ErrInvalidArgument, "%s: '%s' is not an xml, txt, ini or bat file", op, file)
	}
	return clean, nil
}

func (f *Functions) UncheckESP(plugin string) error {
	name, ok, err := f.plugin("UncheckESP", plugin)
	if !ok || err != nil {
		return err
	}
	f.data.UncheckedPlugins = addFold(f.data.UncheckedPlugins, name)
	return nil
}

func (f *Functions) SetDeactivationWarning(plugin string, w DeactivationWarning) error {
	if _, ok := ParseDeactivationWarning(string(w)); !ok {
		return errors.Newf(errors.ErrInvalidArgument, "SetDeactivationWarning: unknown warning '%s'", w)
	}
	name, ok, err := f.plugin("SetDeactivationWarning", plugin)
	if !ok || err != nil {
		return err
	}
	for i := range f.data.Deactivations {
		if strings.EqualFold(f.data.Deactivations[i].Plugin, name) {
			f.data.Deactivations[i].Warning = w
			return nil
		}
	}
	f.data.Deactivations = append(f.data.Deactivations, Deactivation{Plugin: name, Warning: w})
	return nil
}

// plugin validates a plugin name from the archive. ok is false when the plugin
// does not exist and the request should be skipped.
func (f *Functions) plugin(op, name string) (clean string, ok bool, err error) {
	clean, err = CleanPath(name)
	if err != nil {
		return "", false, err
	}
	if !isPluginName(clean) {
		return "", false, errors.Newf(errors.ErrInvalidArgument, "%s: '%s' is not a plugin", op, name)
	}
	exists, err := f.host.PluginExists(clean)
	if err != nil {
		return "", false, errors.NewCollaboratorError(op, err)
	}
	if !exists {
		f.warn("%s: plugin '%s' does not exist", op, clean)
		return "", false, nil
	}
	return clean, true, nil
}

// dataFile validates a data file path from the archive, as plugin does
func (f *Functions) dataFile(op, name string) (clean string, ok bool, err error) {
	clean, err = CleanPath(name)
	if err != nil {
		return "", false, err
	}
	exists, err := f.host.DataFileExists(clean)
	if err != nil {
		return "", false, errors.NewCollaboratorError(op, err)
	}
	if !exists {
		f.warn("%s: data file '%s' does not exist", op, clean)
		return "", false, nil
	}
	return clean, true, nil
}

func isPluginName(name string) bool {
	ext := strings.ToLower(path.Ext(toSlash(name)))
	return ext == ".esp" || ext == ".esm"
}

// relativeTo strips the folder prefix from a listed path
func relativeTo(folder, p string) string {
	prefix := folder + `\`
	if len(p) > len(prefix) && strings.EqualFold(p[:len(prefix)], prefix) {
		return p[len(prefix):]
	}
	return p
}
