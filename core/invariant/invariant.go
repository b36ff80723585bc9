// Package invariant provides contract assertions for the OBMM script engine.
//
// Assertions here guard against programming errors in the engine itself, never
// against malformed scripts. A script with a missing EndIf is a user error and is
// reported through pkgs/errors; a validator rule that contradicts itself, or a
// token variant the engine forgot to dispatch, is a bug and panics.
//
// All functions panic on violation.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (r Rule) Check(count int) error {
//	    invariant.Precondition(count >= 0, "argument count must not be negative")
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
// Panics with INVARIANT VIOLATION if condition is false.
//
// Example:
//
//	r, ok := Rules[t]
//	invariant.Invariant(ok, "no argument rule for %s", t)
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
//
// Example:
//
//	func Execute(ctx context.Context, tokens []token.Token, collab installer.Collaborator, config Config) (*Result, error) {
//	    invariant.NotNil(collab, "collab")
//	    // ...
//	}
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// isNilValue checks if a value is a typed nil using reflection
func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// Unreachable marks a branch the caller has proven impossible, typically the
// default arm of a switch over a closed set of token variants.
func Unreachable(format string, args ...interface{}) {
	fail("UNREACHABLE", format, args...)
}

// fail panics with a formatted message including call stack context.
func fail(kind, format string, args ...interface{}) {
	// Skip fail() and the exported wrapper
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)

	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
