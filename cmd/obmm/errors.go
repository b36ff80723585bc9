package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// exitError carries the process exit code for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps err to a process exit code; cobra usage errors carry none
func exitCode(err error) int {
	var e *exitError
	if stderrors.As(err, &e) {
		return e.code
	}
	return exitInvalidArguments
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var se *errors.ScriptError
	var ce *CLIError
	switch {
	case stderrors.As(err, &se):
		formatScriptError(w, se, useColor)
	case stderrors.As(err, &ce):
		formatCLIError(w, ce, useColor)
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

func formatScriptError(w io.Writer, err *errors.ScriptError, useColor bool) {
	where := ""
	if err.Line > 0 {
		where = fmt.Sprintf("line %d: ", err.Line)
	}
	_, _ = fmt.Fprintf(w, "%s%s%s\n", Colorize("Error: ", ColorRed, useColor), where, err.Message)
	_, _ = fmt.Fprintf(w, "%s\n", Colorize("  "+err.Type, ColorGray, useColor))

	if err.Cause != nil {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize("  caused by: "+err.Cause.Error(), ColorGray, useColor))
	}
	if s, ok := err.GetContext("suggestion"); ok && s != "" {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize(fmt.Sprintf("  did you mean '%v'?", s), ColorYellow, useColor))
	}
	if open, ok := err.GetContext("open_line"); ok {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize(fmt.Sprintf("  block opened on line %v", open), ColorGray, useColor))
	}
}

func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}
