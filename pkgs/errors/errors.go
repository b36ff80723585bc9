package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Error types for different categories of failures
const (
	// Input errors
	ErrInputRead          = "INPUT_READ_ERROR"
	ErrUnsupportedDialect = "UNSUPPORTED_DIALECT"

	// Lexical and validation errors (raised before execution starts)
	ErrUnknownToken   = "UNKNOWN_TOKEN"
	ErrLineValidation = "LINE_VALIDATION_ERROR"

	// Structural errors (raised during execution)
	ErrStackUnderflow      = "STACK_UNDERFLOW"
	ErrFrameMismatch       = "FRAME_MISMATCH"
	ErrUnresolvedLabel     = "UNRESOLVED_LABEL"
	ErrUndefinedVariable   = "UNDEFINED_VARIABLE"
	ErrMalformedExpression = "MALFORMED_EXPRESSION"
	ErrInvalidArgument     = "INVALID_ARGUMENT"

	// Collaborator errors (host queries that failed)
	ErrCollaborator = "COLLABORATOR_ERROR"
)

// ScriptError represents a structured error with type, source line and context
type ScriptError struct {
	Type    string
	Message string
	Line    int // 1-based script line, 0 when unknown
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ScriptError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	if s, ok := e.Context["suggestion"].(string); ok && s != "" {
		fmt.Fprintf(&b, " (did you mean '%s'?)", s)
	}
	return b.String()
}

// Unwrap allows error unwrapping
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Is matches another *ScriptError of the same Type, so callers can write
// errors.Is(err, &ScriptError{Type: ErrUnresolvedLabel}).
func (e *ScriptError) Is(target error) bool {
	t, ok := target.(*ScriptError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a new ScriptError
func New(errorType, message string) *ScriptError {
	return &ScriptError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new ScriptError with a formatted message
func Newf(errorType, format string, args ...interface{}) *ScriptError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap creates a new ScriptError wrapping an existing error
func Wrap(errorType, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *ScriptError) WithContext(key string, value interface{}) *ScriptError {
	e.Context[key] = value
	return e
}

// AtLine records the script line the error belongs to. An already set line is kept,
// so the innermost report wins.
func (e *ScriptError) AtLine(line int) *ScriptError {
	if e.Line == 0 {
		e.Line = line
	}
	return e
}

// GetContext returns context value by key
func (e *ScriptError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// ContextKeys returns the context keys in sorted order
func (e *ScriptError) ContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper functions for common error scenarios

// NewUnknownTokenError reports an instruction name the tokenizer does not know
func NewUnknownTokenError(line int, name, suggestion string) *ScriptError {
	e := Newf(ErrUnknownToken, "unknown instruction '%s'", name).
		WithContext("instruction", name).
		AtLine(line)
	if suggestion != "" {
		e.WithContext("suggestion", suggestion)
	}
	return e
}

// NewLineValidationError reports a line whose arguments do not fit its instruction
func NewLineValidationError(line int, raw, message string) *ScriptError {
	return New(ErrLineValidation, message).
		WithContext("line", raw).
		AtLine(line)
}

// NewVariableNotFoundError reports a %name% reference to an unset variable
func NewVariableNotFoundError(name string) *ScriptError {
	return Newf(ErrUndefinedVariable, "variable '%s' not defined", name).
		WithContext("variable", name)
}

// NewUnresolvedLabelError reports a Goto whose label has not been seen yet
func NewUnresolvedLabelError(label string) *ScriptError {
	return Newf(ErrUnresolvedLabel, "label '%s' has not been defined before this Goto", label).
		WithContext("label", label)
}

// NewExpressionError reports a malformed iSet/fSet expression
func NewExpressionError(message string, tokens []string) *ScriptError {
	return New(ErrMalformedExpression, message).
		WithContext("expression", strings.Join(tokens, " "))
}

// NewCollaboratorError wraps a failure reported by the host
func NewCollaboratorError(operation string, cause error) *ScriptError {
	return Wrap(ErrCollaborator, fmt.Sprintf("%s failed", operation), cause).
		WithContext("operation", operation)
}

// IsErrorType checks if an error, or any error it wraps, is a ScriptError of the given type
func IsErrorType(err error, errorType string) bool {
	for err != nil {
		if se, ok := err.(*ScriptError); ok && se.Type == errorType {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
