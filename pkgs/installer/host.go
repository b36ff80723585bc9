// Package installer is the boundary between the script engine and the outside world.
//
// A Host answers dialogs and file-system questions. Functions wraps a Host and
// implements Collaborator, the interface the engine calls for every instruction;
// install, copy, patch and edit requests are recorded in ReturnData and never
// applied here.
package installer

import (
	stderrors "errors"
)

// ErrCancelled is returned by a Host when the user dismisses a dialog
var ErrCancelled = stderrors.New("cancelled by user")

// SelectRequest describes one Select prompt. Previews and Descriptions are nil
// or index-aligned with Items. Items marked with a leading '|' are preselected.
type SelectRequest struct {
	Title        string
	Items        []string
	Previews     []string
	Descriptions []string
	Many         bool
}

// Host is implemented by whatever presents dialogs and owns the data directory.
//
// Paths are relative to the data directory and use '\' separators. Version
// getters return "" when the component is not installed.
type Host interface {
	Message(text, title string) error
	DialogYesNo(text, title string) (bool, error)
	// Select returns the chosen item labels as given in the request. An empty
	// result means the user cancelled.
	Select(req SelectRequest) ([]string, error)
	InputString(title, initial string) (string, error)
	DisplayImage(path, title string) error
	DisplayText(path, title string) error

	DataFileExists(path string) (bool, error)
	PluginExists(name string) (bool, error)

	OBMMVersion() (string, error)
	ScriptExtenderVersion() (string, error)
	GraphicsExtenderVersion() (string, error)
	OblivionVersion() (string, error)

	ListDataFolders(path, pattern string, recurse bool) ([]string, error)
	ListPluginFolders(path, pattern string, recurse bool) ([]string, error)
	ListDataFiles(path, pattern string, recurse bool) ([]string, error)
	ListPlugins(path, pattern string, recurse bool) ([]string, error)

	ReadINI(section, key string) (string, error)
	ReadRendererInfo(key string) (string, error)
}
