package installer

// Collaborator is everything the engine can ask of the outside world. There is
// one method per script instruction that has an observable effect; control flow,
// variables and string helpers stay inside the engine.
//
// A user cancellation is not an error: the implementation sets
// ReturnData().CancelInstall and the engine stops after the current token.
type Collaborator interface {
	// Dialogs
	Message(text, title string) error
	DialogYesNo(text, title string) (bool, error)
	Select(req SelectRequest) ([]string, error)
	InputString(title, initial string) (string, error)
	DisplayImage(path, title string) error
	DisplayText(path, title string) error

	// Queries
	DataFileExists(path string) (bool, error)
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

	// Load order and relations
	LoadEarly(plugin string) error
	LoadBefore(plugin, target string) error
	LoadAfter(plugin, target string) error
	ConflictsWith(r Relation) error
	DependsOn(r Relation) error

	// Install decisions
	InstallAllPlugins()
	DontInstallAnyPlugins()
	InstallAllDataFiles()
	DontInstallAnyDataFiles()
	InstallPlugin(name string) error
	DontInstallPlugin(name string) error
	InstallDataFile(name string) error
	DontInstallDataFile(name string) error
	InstallDataFolder(folder string, recurse bool) error
	DontInstallDataFolder(folder string, recurse bool) error
	RegisterBSA(path string) error
	UnregisterBSA(path string) error

	// Copies and patches
	CopyPlugin(from, to string) error
	CopyDataFile(from, to string) error
	CopyDataFolder(from, to string, recurse bool) error
	PatchPlugin(from, to string, create bool) error
	PatchDataFile(from, to string, create bool) error

	// Edits
	EditINI(section, key, value string) error
	EditShader(pkg uint8, shader, binaryPath string) error
	SetGMST(plugin, editorID, value string) error
	SetGlobal(plugin, editorID, value string) error
	SetPluginByte(plugin string, offset int64, v uint8) error
	SetPluginShort(plugin string, offset int64, v int16) error
	SetPluginInt(plugin string, offset int64, v int32) error
	SetPluginLong(plugin string, offset int64, v int64) error
	SetPluginFloat(plugin string, offset int64, v float32) error
	EditXMLLine(file string, line int, value string) error
	EditXMLReplace(file, find, replace string) error
	UncheckESP(plugin string) error
	SetDeactivationWarning(plugin string, w DeactivationWarning) error

	ReturnData() *ReturnData
}
