package engine

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/obmm/core/invariant"
	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/installer"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// condition evaluates an If condition against already substituted operands.
// Operand counts were checked by the parser.
func (r *run) condition(kind token.ConditionKind, args []string) (bool, error) {
	c := r.collab
	switch kind {
	case token.DialogYesNo:
		title := ""
		if len(args) > 1 {
			title = args[1]
		}
		return c.DialogYesNo(args[0], title)

	case token.DataFileExists:
		return c.DataFileExists(args[0])

	case token.VersionGreaterThan:
		return compareInstalled(c.OBMMVersion, args[0], func(n int) bool { return n > 0 })
	case token.VersionLessThan:
		return compareInstalled(c.OBMMVersion, args[0], func(n int) bool { return n < 0 })

	case token.ScriptExtenderPresent:
		return present(c.ScriptExtenderVersion)
	case token.ScriptExtenderNewerThan:
		return compareInstalled(c.ScriptExtenderVersion, args[0], atLeast)
	case token.GraphicsExtenderPresent:
		return present(c.GraphicsExtenderVersion)
	case token.GraphicsExtenderNewerThan:
		return compareInstalled(c.GraphicsExtenderVersion, args[0], atLeast)
	case token.OblivionNewerThan:
		return compareInstalled(c.OblivionVersion, args[0], atLeast)

	case token.Equal:
		return args[0] == args[1], nil
	case token.GreaterEqual, token.GreaterThan:
		a, b, err := parseInts(kind, args[0], args[1])
		if err != nil {
			return false, err
		}
		if kind == token.GreaterEqual {
			return a >= b, nil
		}
		return a > b, nil
	case token.FGreaterEqual, token.FGreaterThan:
		a, b, err := parseFloats(kind, args[0], args[1])
		if err != nil {
			return false, err
		}
		if kind == token.FGreaterEqual {
			return a >= b, nil
		}
		return a > b, nil

	default:
		invariant.Unreachable("no evaluation for condition %s", kind)
		return false, nil
	}
}

func atLeast(n int) bool { return n >= 0 }

// present reports whether the component has a version at all
func present(get func() (string, error)) (bool, error) {
	v, err := get()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(v) != "", nil
}

// compareInstalled compares the installed version with want. A component that
// is not installed satisfies no comparison.
func compareInstalled(get func() (string, error), want string, accept func(int) bool) (bool, error) {
	installed, err := get()
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(installed) == "" {
		return false, nil
	}
	n, err := installer.CompareVersions(installed, want)
	if err != nil {
		return false, err
	}
	return accept(n), nil
}

func parseInts(kind token.ConditionKind, a, b string) (int64, int64, error) {
	x, errA := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	y, errB := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if errA != nil || errB != nil {
		return 0, 0, errors.Newf(errors.ErrInvalidArgument, "%s: expected two integers, got '%s' and '%s'", kind, a, b)
	}
	return x, y, nil
}

func parseFloats(kind token.ConditionKind, a, b string) (float64, float64, error) {
	x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA != nil || errB != nil {
		return 0, 0, errors.Newf(errors.ErrInvalidArgument, "%s: expected two numbers, got '%s' and '%s'", kind, a, b)
	}
	return x, y, nil
}
