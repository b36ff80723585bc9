// Package host provides a headless installer.Host backed by an extracted
// archive directory and a file of pre-recorded dialog answers.
package host

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aledsdavies/obmm/pkgs/installer"
)

// DefaultOBMMVersion is reported when the answers do not name an OBMM version
const DefaultOBMMVersion = "1.1.12.0"

// Dir answers file questions from DataDir and dialogs from Answers.
// Answer queues are consumed, so a Dir serves one run.
type Dir struct {
	DataDir string
	Answers *Answers
	Logger  *slog.Logger
}

var _ installer.Host = (*Dir)(nil)

// New returns a Dir over dataDir. Nil answers answer every dialog with its default.
func New(dataDir string, answers *Answers, logger *slog.Logger) *Dir {
	if answers == nil {
		answers = &Answers{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dir{DataDir: dataDir, Answers: answers, Logger: logger}
}

// Dialogs

func (d *Dir) Message(text, title string) error {
	d.Logger.Info("message", "title", title, "text", text)
	return nil
}

func (d *Dir) DialogYesNo(text, title string) (bool, error) {
	yes := false
	if len(d.Answers.YesNo) > 0 {
		yes = d.Answers.YesNo[0]
		d.Answers.YesNo = d.Answers.YesNo[1:]
	}
	d.Logger.Info("yes/no", "title", title, "text", text, "answer", yes)
	return yes, nil
}

// Select answers from the queue. Without a queued answer the preselected
// items are chosen, or the first item when none is preselected.
func (d *Dir) Select(req installer.SelectRequest) ([]string, error) {
	if len(d.Answers.Select) == 0 {
		chosen := preselected(req.Items)
		if len(chosen) == 0 && len(req.Items) > 0 {
			chosen = req.Items[:1]
		}
		if !req.Many && len(chosen) > 1 {
			chosen = chosen[:1]
		}
		d.Logger.Info("select", "title", req.Title, "answer", chosen, "default", true)
		return chosen, nil
	}

	answer := d.Answers.Select[0]
	d.Answers.Select = d.Answers.Select[1:]
	if !req.Many && len(answer) > 1 {
		return nil, fmt.Errorf("select %q allows one item, answer has %d", req.Title, len(answer))
	}
	for _, a := range answer {
		if !hasItem(req.Items, a) {
			return nil, fmt.Errorf("select %q has no item %q", req.Title, a)
		}
	}
	d.Logger.Info("select", "title", req.Title, "answer", answer)
	return answer, nil
}

func (d *Dir) InputString(title, initial string) (string, error) {
	if len(d.Answers.Input) == 0 {
		return initial, nil
	}
	s := d.Answers.Input[0]
	d.Answers.Input = d.Answers.Input[1:]
	d.Logger.Info("input", "title", title, "answer", s)
	return s, nil
}

func (d *Dir) DisplayImage(path, title string) error {
	if _, err := d.stat(path); err != nil {
		return err
	}
	d.Logger.Info("display image", "title", title, "path", path)
	return nil
}

func (d *Dir) DisplayText(path, title string) error {
	if _, err := d.stat(path); err != nil {
		return err
	}
	d.Logger.Info("display text", "title", title, "path", path)
	return nil
}

func preselected(items []string) []string {
	var out []string
	for _, it := range items {
		if strings.HasPrefix(it, "|") {
			out = append(out, it)
		}
	}
	return out
}

func hasItem(items []string, answer string) bool {
	want := strings.TrimPrefix(answer, "|")
	for _, it := range items {
		if strings.TrimPrefix(it, "|") == want {
			return true
		}
	}
	return false
}

// Queries

func (d *Dir) DataFileExists(path string) (bool, error) {
	info, err := d.stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (d *Dir) PluginExists(name string) (bool, error) {
	if !isPlugin(name) {
		return false, nil
	}
	return d.DataFileExists(name)
}

func (d *Dir) OBMMVersion() (string, error) {
	if v := d.Answers.Versions.OBMM; v != "" {
		return v, nil
	}
	return DefaultOBMMVersion, nil
}

func (d *Dir) ScriptExtenderVersion() (string, error) {
	return d.Answers.Versions.ScriptExtender, nil
}

func (d *Dir) GraphicsExtenderVersion() (string, error) {
	return d.Answers.Versions.GraphicsExtender, nil
}

func (d *Dir) OblivionVersion() (string, error) {
	return d.Answers.Versions.Oblivion, nil
}

func (d *Dir) ReadINI(section, key string) (string, error) {
	for s, keys := range d.Answers.INI {
		if !strings.EqualFold(s, section) {
			continue
		}
		for k, v := range keys {
			if strings.EqualFold(k, key) {
				return v, nil
			}
		}
	}
	return "", nil
}

func (d *Dir) ReadRendererInfo(key string) (string, error) {
	for k, v := range d.Answers.Renderer {
		if strings.EqualFold(k, key) {
			return v, nil
		}
	}
	return "", nil
}

// Listings

func (d *Dir) ListDataFolders(path, pattern string, recurse bool) ([]string, error) {
	return d.walk(path, pattern, recurse, func(rel string, e fs.DirEntry) bool {
		return e.IsDir()
	})
}

func (d *Dir) ListPluginFolders(path, pattern string, recurse bool) ([]string, error) {
	return d.ListDataFolders(path, pattern, recurse)
}

func (d *Dir) ListDataFiles(path, pattern string, recurse bool) ([]string, error) {
	return d.walk(path, pattern, recurse, func(rel string, e fs.DirEntry) bool {
		return !e.IsDir() && !(isPlugin(rel) && !strings.Contains(rel, `\`))
	})
}

func (d *Dir) ListPlugins(path, pattern string, recurse bool) ([]string, error) {
	return d.walk(path, pattern, recurse, func(rel string, e fs.DirEntry) bool {
		return !e.IsDir() && isPlugin(rel)
	})
}

// walk lists entries below path whose base name matches pattern. Results are
// sorted, relative to DataDir and use '\' separators.
func (d *Dir) walk(path, pattern string, recurse bool, keep func(rel string, e fs.DirEntry) bool) ([]string, error) {
	root := d.abs(path)
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", path)
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(d.DataDir, p)
		if err != nil {
			return err
		}
		rel = strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`)

		ok, err := filepath.Match(pattern, e.Name())
		if err != nil {
			return err
		}
		if ok && keep(rel, e) {
			out = append(out, rel)
		}
		if e.IsDir() && !recurse {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (d *Dir) abs(path string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
	return filepath.Join(d.DataDir, rel)
}

func (d *Dir) stat(path string) (fs.FileInfo, error) {
	return os.Stat(d.abs(path))
}

func isPlugin(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".esp" || ext == ".esm"
}
