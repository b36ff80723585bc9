package engine

import (
	"regexp"
	"strings"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

// reference matches %name%; names hold no whitespace and no '%'
var reference = regexp.MustCompile(`%([^%\s]+)%`)

// variables is the per-run variable store
type variables map[string]string

func newVariables() variables {
	return variables{
		"NewLine": "\n",
		"Tab":     "\t",
	}
}

func (v variables) set(name, value string) {
	v[name] = value
}

func (v variables) get(name string) (string, error) {
	value, ok := v[name]
	if !ok {
		return "", errors.NewVariableNotFoundError(name)
	}
	return value, nil
}

// substitute replaces every %name% in s. Replacement text is not scanned again.
func (v variables) substitute(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var missing string
	out := reference.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := v[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return value
	})
	if missing != "" {
		return "", errors.NewVariableNotFoundError(missing)
	}
	return out, nil
}

func (v variables) substituteAll(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := v.substitute(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (v variables) snapshot() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
