package main

import (
	"fmt"
	"os"

	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/lexer"
	"github.com/aledsdavies/obmm/pkgs/parser"
)

// readScript loads a stored script and strips its dialect byte. Only OBMM
// Script can be checked or run.
func readScript(path string) (raw []byte, text string, err error) {
	raw, err = os.ReadFile(path)
	if err != nil {
		return nil, "", withCode(exitIOError, errors.Wrap(errors.ErrInputRead, "cannot read script", err).
			WithContext("path", path))
	}

	dialect, text := lexer.DetectDialect(raw)
	if dialect != lexer.OBMMScript {
		return nil, "", withCode(exitParseError, errors.Newf(errors.ErrUnsupportedDialect,
			"%s is a %s script; only OBMM Script can be run", path, dialect))
	}
	return raw, text, nil
}

// parseScript reads and tokenizes the script at path
func (a *app) parseScript(path string, warnings bool) ([]byte, *parser.Result, error) {
	raw, text, err := readScript(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := parser.Parse(text, parser.Config{Warnings: warnings, Logger: a.logger})
	if err != nil {
		return nil, nil, withCode(exitParseError, err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(a.stderr, "%s %s\n", Colorize("warning:", ColorYellow, ShouldUseColor(a.noColor, a.stderr)), w)
	}
	return raw, res, nil
}
