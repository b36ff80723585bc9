package engine

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/obmm/core/invariant"
	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/installer"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// handler runs one plain instruction. args are substituted, except the first
// argument of an output instruction, which names the variable to set.
type handler struct {
	output bool
	run    func(r *run, t *token.Instruction, args []string) error
}

// flowTypes are executed by dedicated token variants, not by the table
var flowTypes = map[token.Type]bool{
	token.Comment: true, token.If: true, token.IfNot: true, token.Else: true, token.EndIf: true,
	token.For: true, token.Continue: true, token.Exit: true, token.EndFor: true,
	token.Case: true, token.Default: true, token.Break: true, token.EndSelect: true,
	token.Goto: true, token.Label: true, token.Return: true, token.FatalError: true,
	token.SetVar: true, token.ISet: true, token.FSet: true,
}

var instructions = map[token.Type]handler{
	// Variables
	token.GetFolderName: setter(func(r *run, args []string) (string, error) {
		return installer.FolderName(args[1]), nil
	}),
	token.GetDirectoryName: setter(func(r *run, args []string) (string, error) {
		return installer.DirectoryName(args[1]), nil
	}),
	token.GetFileName: setter(func(r *run, args []string) (string, error) {
		return installer.FileName(args[1]), nil
	}),
	token.GetFileNameWithoutExtension: setter(func(r *run, args []string) (string, error) {
		return installer.FileNameWithoutExtension(args[1]), nil
	}),
	token.CombinePaths: setter(func(r *run, args []string) (string, error) {
		return installer.CombinePaths(args[1], args[2]), nil
	}),
	token.Substring: setter(func(r *run, args []string) (string, error) {
		start, length, err := span(token.Substring, args)
		if err != nil {
			return "", err
		}
		return installer.Substring(args[1], start, length)
	}),
	token.RemoveString: setter(func(r *run, args []string) (string, error) {
		start, length, err := span(token.RemoveString, args)
		if err != nil {
			return "", err
		}
		return installer.RemoveString(args[1], start, length)
	}),
	token.StringLength: setter(func(r *run, args []string) (string, error) {
		return strconv.Itoa(installer.StringLength(args[1])), nil
	}),
	token.InputString: setter(func(r *run, args []string) (string, error) {
		return r.collab.InputString(optional(args, 1), optional(args, 2))
	}),
	token.ReadINI: setter(func(r *run, args []string) (string, error) {
		return r.collab.ReadINI(args[1], args[2])
	}),
	token.ReadRendererInfo: setter(func(r *run, args []string) (string, error) {
		return r.collab.ReadRendererInfo(args[1])
	}),

	// Dialogs
	token.Message: action(func(r *run, args []string) error {
		return r.collab.Message(args[0], optional(args, 1))
	}),
	token.DisplayImage: action(func(r *run, args []string) error {
		return r.collab.DisplayImage(args[0], optional(args, 1))
	}),
	token.DisplayText: action(func(r *run, args []string) error {
		return r.collab.DisplayText(args[0], optional(args, 1))
	}),

	// Load order and relations
	token.LoadEarly: action(func(r *run, args []string) error {
		return r.collab.LoadEarly(args[0])
	}),
	token.LoadBefore: action(func(r *run, args []string) error {
		return r.collab.LoadBefore(args[0], args[1])
	}),
	token.LoadAfter: action(func(r *run, args []string) error {
		return r.collab.LoadAfter(args[0], args[1])
	}),
	token.ConflictsWith:      relationHandler(token.ConflictsWith),
	token.ConflictsWithRegex: relationHandler(token.ConflictsWithRegex),
	token.DependsOn:          relationHandler(token.DependsOn),
	token.DependsOnRegex:     relationHandler(token.DependsOnRegex),

	// Install decisions
	token.DontInstallAnyPlugins: action(func(r *run, args []string) error {
		r.collab.DontInstallAnyPlugins()
		return nil
	}),
	token.DontInstallAnyDataFiles: action(func(r *run, args []string) error {
		r.collab.DontInstallAnyDataFiles()
		return nil
	}),
	token.InstallAllPlugins: action(func(r *run, args []string) error {
		r.collab.InstallAllPlugins()
		return nil
	}),
	token.InstallAllDataFiles: action(func(r *run, args []string) error {
		r.collab.InstallAllDataFiles()
		return nil
	}),
	token.InstallPlugin: action(func(r *run, args []string) error {
		return r.collab.InstallPlugin(args[0])
	}),
	token.DontInstallPlugin: action(func(r *run, args []string) error {
		return r.collab.DontInstallPlugin(args[0])
	}),
	token.InstallDataFile: action(func(r *run, args []string) error {
		return r.collab.InstallDataFile(args[0])
	}),
	token.DontInstallDataFile: action(func(r *run, args []string) error {
		return r.collab.DontInstallDataFile(args[0])
	}),
	token.InstallDataFolder: action(func(r *run, args []string) error {
		recurse, err := optionalBool(token.InstallDataFolder, args, 1)
		if err != nil {
			return err
		}
		return r.collab.InstallDataFolder(args[0], recurse)
	}),
	token.DontInstallDataFolder: action(func(r *run, args []string) error {
		recurse, err := optionalBool(token.DontInstallDataFolder, args, 1)
		if err != nil {
			return err
		}
		return r.collab.DontInstallDataFolder(args[0], recurse)
	}),
	token.RegisterBSA: action(func(r *run, args []string) error {
		return r.collab.RegisterBSA(args[0])
	}),
	token.UnregisterBSA: action(func(r *run, args []string) error {
		return r.collab.UnregisterBSA(args[0])
	}),

	// Copies and patches
	token.CopyPlugin: action(func(r *run, args []string) error {
		return r.collab.CopyPlugin(args[0], args[1])
	}),
	token.CopyDataFile: action(func(r *run, args []string) error {
		return r.collab.CopyDataFile(args[0], args[1])
	}),
	token.CopyDataFolder: action(func(r *run, args []string) error {
		recurse, err := optionalBool(token.CopyDataFolder, args, 2)
		if err != nil {
			return err
		}
		return r.collab.CopyDataFolder(args[0], args[1], recurse)
	}),
	token.PatchPlugin: action(func(r *run, args []string) error {
		create, err := optionalBool(token.PatchPlugin, args, 2)
		if err != nil {
			return err
		}
		return r.collab.PatchPlugin(args[0], args[1], create)
	}),
	token.PatchDataFile: action(func(r *run, args []string) error {
		create, err := optionalBool(token.PatchDataFile, args, 2)
		if err != nil {
			return err
		}
		return r.collab.PatchDataFile(args[0], args[1], create)
	}),

	// Edits
	token.EditINI: action(func(r *run, args []string) error {
		return r.collab.EditINI(args[0], args[1], args[2])
	}),
	token.EditShader: action(func(r *run, args []string) error {
		pkg, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 8)
		if err != nil {
			return invalidNumber(token.EditShader, "shader package", args[0])
		}
		return r.collab.EditShader(uint8(pkg), args[1], args[2])
	}),
	token.SetGMST: action(func(r *run, args []string) error {
		return r.collab.SetGMST(args[0], args[1], args[2])
	}),
	token.SetGlobal: action(func(r *run, args []string) error {
		return r.collab.SetGlobal(args[0], args[1], args[2])
	}),
	token.SetPluginByte: pluginValue(token.SetPluginByte, func(r *run, plugin string, offset int64, v string) error {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return invalidNumber(token.SetPluginByte, "value", v)
		}
		return r.collab.SetPluginByte(plugin, offset, uint8(n))
	}),
	token.SetPluginShort: pluginValue(token.SetPluginShort, func(r *run, plugin string, offset int64, v string) error {
		n, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return invalidNumber(token.SetPluginShort, "value", v)
		}
		return r.collab.SetPluginShort(plugin, offset, int16(n))
	}),
	token.SetPluginInt: pluginValue(token.SetPluginInt, func(r *run, plugin string, offset int64, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return invalidNumber(token.SetPluginInt, "value", v)
		}
		return r.collab.SetPluginInt(plugin, offset, int32(n))
	}),
	token.SetPluginLong: pluginValue(token.SetPluginLong, func(r *run, plugin string, offset int64, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalidNumber(token.SetPluginLong, "value", v)
		}
		return r.collab.SetPluginLong(plugin, offset, n)
	}),
	token.SetPluginFloat: pluginValue(token.SetPluginFloat, func(r *run, plugin string, offset int64, v string) error {
		n, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return invalidNumber(token.SetPluginFloat, "value", v)
		}
		return r.collab.SetPluginFloat(plugin, offset, float32(n))
	}),
	token.EditXMLLine: action(func(r *run, args []string) error {
		line, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return invalidNumber(token.EditXMLLine, "line number", args[1])
		}
		return r.collab.EditXMLLine(args[0], line, args[2])
	}),
	token.EditXMLReplace: action(func(r *run, args []string) error {
		return r.collab.EditXMLReplace(args[0], args[1], args[2])
	}),
	token.UncheckESP: action(func(r *run, args []string) error {
		return r.collab.UncheckESP(args[0])
	}),
	token.SetDeactivationWarning: action(func(r *run, args []string) error {
		w, ok := installer.ParseDeactivationWarning(args[1])
		if !ok {
			return errors.Newf(errors.ErrInvalidArgument,
				"SetDeactivationWarning: expected Allow, WarnAgainst or Disallow, got '%s'", args[1])
		}
		return r.collab.SetDeactivationWarning(args[0], w)
	}),

	// Legacy switches
	token.AllowRunOnLines: {run: func(r *run, t *token.Instruction, args []string) error {
		return nil
	}},
	token.ExecLines: {run: func(r *run, t *token.Instruction, args []string) error {
		r.warn(t.Line(), "ExecLines is not supported and will be ignored")
		return nil
	}},
}

func init() {
	for _, typ := range token.All() {
		_, ok := instructions[typ]
		invariant.Invariant(ok != (flowTypes[typ] || typ.IsSelective()),
			"instruction %s must be handled exactly once", typ)
	}
}

// instruction dispatches a plain instruction through the table
func (r *run) instruction(t *token.Instruction) error {
	h, ok := instructions[t.Kind]
	invariant.Invariant(ok, "no handler for %s", t.Kind)

	raw := t.Args()
	args := make([]string, len(raw))
	for i, a := range raw {
		if h.output && i == 0 {
			args[i] = a
			continue
		}
		s, err := r.vars.substitute(a)
		if err != nil {
			return err
		}
		args[i] = s
	}

	r.logger.Debug("instruction", "line", t.Line(), "name", t.Kind.String())
	return h.run(r, t, args)
}

// setter wraps an instruction whose result is stored in the variable named by
// its first argument
func setter(fn func(r *run, args []string) (string, error)) handler {
	return handler{
		output: true,
		run: func(r *run, t *token.Instruction, args []string) error {
			v, err := fn(r, args)
			if err != nil {
				return err
			}
			r.vars.set(args[0], v)
			return nil
		},
	}
}

func action(fn func(r *run, args []string) error) handler {
	return handler{run: func(r *run, t *token.Instruction, args []string) error {
		return fn(r, args)
	}}
}

// pluginValue unpacks the plugin and offset shared by the SetPlugin instructions
func pluginValue(typ token.Type, fn func(r *run, plugin string, offset int64, v string) error) handler {
	return action(func(r *run, args []string) error {
		offset, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
		if err != nil {
			return invalidNumber(typ, "offset", args[1])
		}
		return fn(r, args[0], offset, strings.TrimSpace(args[2]))
	})
}

// relationHandler unpacks ConflictsWith and DependsOn and their Regex forms:
//
//	ConflictsWith <mod> [comment [level]]
//	ConflictsWith <mod> <min major> <min minor> <max major> <max minor> [comment [level]]
//	DependsOn <mod> [comment]
//	DependsOn <mod> <min major> <min minor> <max major> <max minor> [comment]
func relationHandler(typ token.Type) handler {
	conflict := typ == token.ConflictsWith || typ == token.ConflictsWithRegex
	regex := typ == token.ConflictsWithRegex || typ == token.DependsOnRegex
	plain := 2
	if conflict {
		plain = 3
	}

	return action(func(r *run, args []string) error {
		rel := installer.Relation{Mod: args[0], Regex: regex}
		rest := args[1:]
		switch {
		case len(args) >= 5:
			rel.MinVersion = args[1] + "." + args[2]
			rel.MaxVersion = args[3] + "." + args[4]
			rest = args[5:]
		case len(args) > plain:
			return errors.Newf(errors.ErrInvalidArgument,
				"%s: expected a mod name, an optional version range and comment, got %d arguments", typ, len(args))
		}
		if len(rest) > 0 {
			rel.Comment = rest[0]
		}
		if len(rest) > 1 {
			rel.Level = installer.ConflictLevel(rest[1])
		}

		if conflict {
			return r.collab.ConflictsWith(rel)
		}
		return r.collab.DependsOn(rel)
	})
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// optionalBool reads an optional trailing flag, false when absent
func optionalBool(typ token.Type, args []string, i int) (bool, error) {
	if i >= len(args) {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(args[i]))
	if err != nil {
		return false, errors.Newf(errors.ErrInvalidArgument, "%s: expected True or False, got '%s'", typ, args[i])
	}
	return b, nil
}

// span reads the start and optional length of Substring and RemoveString
func span(typ token.Type, args []string) (int, int, error) {
	start, err := strconv.Atoi(strings.TrimSpace(args[2]))
	if err != nil {
		return 0, 0, invalidNumber(typ, "start", args[2])
	}
	length := -1
	if len(args) > 3 {
		if length, err = strconv.Atoi(strings.TrimSpace(args[3])); err != nil || length < 0 {
			return 0, 0, invalidNumber(typ, "length", args[3])
		}
	}
	return start, length, nil
}

func invalidNumber(typ token.Type, what, got string) error {
	return errors.Newf(errors.ErrInvalidArgument, "%s: %s '%s' is not a valid number", typ, what, got)
}
