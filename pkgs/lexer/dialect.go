package lexer

// Dialect identifies the scripting language an archive script is written in
type Dialect byte

const (
	OBMMScript Dialect = iota
	Python
	CSharp
	VB
)

var dialectNames = map[Dialect]string{
	OBMMScript: "OBMM Script",
	Python:     "Python",
	CSharp:     "C#",
	VB:         "VB",
}

func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return "unknown"
}

// DetectDialect inspects the optional leading dialect byte of a stored script.
// Bytes 0-3 select a dialect and are stripped; anything else is plain OBMM Script text.
func DetectDialect(data []byte) (Dialect, string) {
	if len(data) > 0 && data[0] <= byte(VB) {
		return Dialect(data[0]), string(data[1:])
	}
	return OBMMScript, string(data)
}
