package installer

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

// Script paths use '\' like the game does; the helpers below work on a '/'
// copy so the path package can do the splitting.

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func fromSlash(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

// CleanPath validates a path that must stay inside the data directory and
// returns it in canonical '\' form. Absolute paths, drive letters and ".."
// segments are rejected.
func CleanPath(p string) (string, error) {
	s := toSlash(strings.TrimSpace(p))
	if s == "" {
		return "", errors.New(errors.ErrInvalidArgument, "empty path")
	}
	if strings.HasPrefix(s, "/") || (len(s) >= 2 && s[1] == ':') {
		return "", errors.Newf(errors.ErrInvalidArgument, "path '%s' must be relative", p).
			WithContext("path", p)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return "", errors.Newf(errors.ErrInvalidArgument, "path '%s' leaves the data directory", p).
				WithContext("path", p)
		}
	}

	cleaned := path.Clean(s)
	if cleaned == "." {
		return "", errors.New(errors.ErrInvalidArgument, "empty path")
	}
	return fromSlash(cleaned), nil
}

// CombinePaths joins two path fragments with a single separator
func CombinePaths(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimRight(a, `\/`) + `\` + strings.TrimLeft(b, `\/`)
}

// DirectoryName returns everything before the last separator of p
func DirectoryName(p string) string {
	dir := path.Dir(toSlash(p))
	if dir == "." {
		return ""
	}
	return fromSlash(dir)
}

// FolderName returns the last element of p, treating p as a folder
func FolderName(p string) string {
	s := strings.TrimRight(toSlash(p), "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

// FileName returns the last element of p
func FileName(p string) string {
	s := toSlash(p)
	if s == "" || strings.HasSuffix(s, "/") {
		return ""
	}
	return path.Base(s)
}

// FileNameWithoutExtension returns FileName(p) minus its final extension
func FileNameWithoutExtension(p string) string {
	name := FileName(p)
	return strings.TrimSuffix(name, path.Ext(name))
}

// Substring returns length characters of s starting at start. A negative length
// takes the rest of the string.
func Substring(s string, start, length int) (string, error) {
	runes := []rune(s)
	end, err := span(len(runes), start, length)
	if err != nil {
		return "", err
	}
	return string(runes[start:end]), nil
}

// RemoveString deletes length characters of s starting at start. A negative
// length removes the rest of the string.
func RemoveString(s string, start, length int) (string, error) {
	runes := []rune(s)
	end, err := span(len(runes), start, length)
	if err != nil {
		return "", err
	}
	return string(runes[:start]) + string(runes[end:]), nil
}

// StringLength counts characters, not bytes
func StringLength(s string) int {
	return utf8.RuneCountInString(s)
}

func span(size, start, length int) (int, error) {
	if start < 0 || start > size {
		return 0, errors.Newf(errors.ErrInvalidArgument,
			"start %d is outside a string of length %d", start, size)
	}
	if length < 0 {
		return size, nil
	}
	if start+length > size {
		return 0, errors.Newf(errors.ErrInvalidArgument,
			"length %d from %d runs past a string of length %d", length, start, size)
	}
	return start + length, nil
}
