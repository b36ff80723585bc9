package invariant_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aledsdavies/obmm/core/invariant"
)

// expectPanic runs fn and returns the recovered panic message.
func expectPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg = fmt.Sprintf("%v", r)
	}()
	fn()
	return ""
}

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(len("If") == 2, "string length")
}

func TestPreconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Precondition(false, "tokens must not be nil")
	})
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "tokens must not be nil") {
		t.Errorf("expected custom message, got: %s", msg)
	}
	if !strings.Contains(msg, "at ") {
		t.Errorf("expected call site, got: %s", msg)
	}
}

func TestPostconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Postcondition(false, "stack must be empty, got %d frames", 2)
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION: stack must be empty, got 2 frames") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestInvariantFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Invariant(false, "reduction must shrink")
	})
	if !strings.Contains(msg, "INVARIANT VIOLATION") {
		t.Errorf("expected INVARIANT VIOLATION, got: %s", msg)
	}
}

func TestNotNil(t *testing.T) {
	invariant.NotNil(&struct{}{}, "value")

	var typed *strings.Builder
	msg := expectPanic(t, func() { invariant.NotNil(typed, "builder") })
	if !strings.Contains(msg, "builder must not be nil") {
		t.Errorf("typed nil not detected: %s", msg)
	}

	msg = expectPanic(t, func() { invariant.NotNil(nil, "collaborator") })
	if !strings.Contains(msg, "collaborator must not be nil") {
		t.Errorf("nil not detected: %s", msg)
	}
}

func TestUnreachable(t *testing.T) {
	msg := expectPanic(t, func() { invariant.Unreachable("unhandled token %q", "Foo") })
	if !strings.Contains(msg, `UNREACHABLE VIOLATION: unhandled token "Foo"`) {
		t.Errorf("unexpected message: %s", msg)
	}
}
