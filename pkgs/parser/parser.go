// Package parser turns OBMM Script text into validated, typed tokens.
//
// Parsing is all-or-nothing: the first unknown instruction or malformed line aborts
// tokenization and no tokens are returned, so nothing ever executes half a script.
package parser

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/lexer"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// Config configures the parser
type Config struct {
	Warnings bool         // Collect advisory warnings
	Logger   *slog.Logger // Debug logger (nil discards)
}

// Warning is an advisory finding that never affects the token stream
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Result holds the token stream and any warnings
type Result struct {
	Tokens   []token.Token
	Warnings []Warning
}

// Tokenize parses script text with the default configuration
func Tokenize(text string) ([]token.Token, error) {
	res, err := Parse(text, Config{})
	if err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

// Parse tokenizes and validates every line of text
func Parse(text string, config Config) (*Result, error) {
	p := &parser{
		config: config,
		logger: config.Logger,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.parse(text)
}

type parser struct {
	config   Config
	logger   *slog.Logger
	warnings []Warning
}

func (p *parser) parse(text string) (*Result, error) {
	lx := lexer.NewString(text)
	lines := lx.Lines()
	for _, w := range lx.Warnings() {
		p.warn(w.Line, "%s", w.Message)
	}

	tokens := make([]token.Token, 0, len(lines))
	for _, line := range lines {
		tok, err := p.build(line)
		if err != nil {
			p.logger.Debug("tokenize failed", "line", line.Number, "error", err)
			return nil, err
		}
		p.logger.Debug("token", "line", line.Number, "type", tok.Type().String(), "args", len(tok.Args()))
		tokens = append(tokens, tok)
	}

	return &Result{Tokens: tokens, Warnings: p.warnings}, nil
}

func (p *parser) warn(line int, format string, args ...interface{}) {
	if !p.config.Warnings {
		return
	}
	w := Warning{Line: line, Message: fmt.Sprintf(format, args...)}
	p.logger.Warn(w.Message, "line", line)
	p.warnings = append(p.warnings, w)
}

// build validates one logical line and materializes its token
func (p *parser) build(line lexer.Line) (token.Token, error) {
	if line.Comment {
		text := ""
		if len(line.Args) > 0 {
			text = line.Args[0]
		}
		return &token.Note{
			Base: token.Base{Kind: token.Comment, Arguments: line.Args, Source: line.Number},
			Text: text,
		}, nil
	}

	typ, ok := token.Lookup(line.Name)
	if !ok {
		return nil, errors.NewUnknownTokenError(line.Number, line.Name, suggest(line.Name, token.Names()))
	}

	if err := token.RuleFor(typ).Check(len(line.Args)); err != nil {
		return nil, errors.NewLineValidationError(line.Number, line.Raw,
			fmt.Sprintf("%s: %v", typ, err))
	}

	base := token.Base{Kind: typ, Arguments: line.Args, Source: line.Number}
	args := line.Args

	switch {
	case typ == token.If || typ == token.IfNot:
		return p.buildConditional(base, line)
	case typ == token.For:
		return p.buildLoop(base, line)
	case typ.IsSelect():
		return p.buildSelection(base, line)
	}

	switch typ {
	case token.Else:
		return &token.ElseBranch{Base: base}, nil
	case token.EndIf, token.EndFor, token.EndSelect, token.Break:
		return &token.EndFlow{Base: base}, nil
	case token.Continue, token.Exit:
		return &token.LoopControl{Base: base}, nil
	case token.SelectVar, token.SelectString:
		return &token.SelectValue{Base: base, Value: args[0]}, nil
	case token.Case:
		return &token.CaseMatch{Base: base, Value: strings.Join(args, " ")}, nil
	case token.Default:
		return &token.DefaultCase{Base: base}, nil
	case token.Goto:
		return &token.Jump{Base: base, Label: args[0]}, nil
	case token.Label:
		return &token.Marker{Base: base, Name: args[0]}, nil
	case token.Return:
		return &token.Halt{Base: base}, nil
	case token.FatalError:
		return &token.Abort{Base: base, Message: strings.Join(args, " ")}, nil
	case token.SetVar:
		return &token.Assignment{Base: base, Variable: args[0], Value: args[1]}, nil
	case token.ISet, token.FSet:
		return &token.Arithmetic{
			Base:       base,
			Float:      typ == token.FSet,
			Variable:   args[0],
			Expression: args[1:],
		}, nil
	case token.ExecLines:
		p.warn(line.Number, "ExecLines is not supported and will be ignored")
	case token.AllowRunOnLines:
		p.warn(line.Number, "AllowRunOnLines has no effect, line continuation is always enabled")
	}

	return &token.Instruction{Base: base}, nil
}

func (p *parser) buildConditional(base token.Base, line lexer.Line) (token.Token, error) {
	cond, ok := token.LookupCondition(line.Args[0])
	if !ok {
		msg := fmt.Sprintf("unknown condition '%s'", line.Args[0])
		if s := suggest(line.Args[0], token.ConditionNames()); s != "" {
			msg += fmt.Sprintf(" (did you mean '%s'?)", s)
		}
		return nil, errors.NewLineValidationError(line.Number, line.Raw, msg)
	}

	operands := line.Args[1:]
	if err := cond.Arity().Check(len(operands)); err != nil {
		return nil, errors.NewLineValidationError(line.Number, line.Raw,
			fmt.Sprintf("%s %s: %v", base.Kind, cond, err))
	}

	return &token.Conditional{
		Base:      base,
		Not:       base.Kind == token.IfNot,
		Condition: cond,
		Operands:  operands,
	}, nil
}

func (p *parser) buildLoop(base token.Base, line lexer.Line) (token.Token, error) {
	args := line.Args
	invalid := func(format string, a ...interface{}) error {
		return errors.NewLineValidationError(line.Number, line.Raw, fmt.Sprintf(format, a...))
	}

	switch args[0] {
	case "Count":
		if len(args) > 5 {
			return nil, invalid("For Count: expected 4 to 5 arguments, got %d", len(args))
		}
		loop := &token.Loop{
			Base:     base,
			Enum:     token.ForCount,
			Variable: args[1],
			Start:    args[2],
			End:      args[3],
			Step:     "1",
		}
		if len(args) == 5 {
			loop.Step = args[4]
		}
		return loop, nil

	case "Each":
		kind, ok := token.LookupForKind(args[1])
		if !ok {
			return nil, invalid("For Each: unknown enumeration '%s'", args[1])
		}
		loop := &token.Loop{
			Base:     base,
			Enum:     kind,
			Variable: args[2],
			Path:     args[3],
			Pattern:  "*",
		}
		rest := args[4:]
		if len(rest) > 0 {
			if recurse, isFlag := recurseFlag(rest[0]); isFlag {
				loop.Recurse = recurse
				rest = rest[1:]
			} else if len(rest) > 1 {
				return nil, invalid("For Each: '%s' is not a recurse flag", rest[0])
			}
		}
		if len(rest) > 0 {
			loop.Pattern = rest[0]
		}
		return loop, nil

	default:
		return nil, invalid("For: expected Count or Each, got '%s'", args[0])
	}
}

// recurseFlag interprets the optional recurse argument of For Each
func recurseFlag(arg string) (recurse bool, isFlag bool) {
	switch strings.ToLower(arg) {
	case "recursesubfolders", "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func (p *parser) buildSelection(base token.Base, line lexer.Line) (token.Token, error) {
	typ := base.Kind
	sel := &token.Selection{
		Base:  base,
		Title: line.Args[0],
		Many: typ == token.SelectMany || typ == token.SelectManyWithPreview ||
			typ == token.SelectManyWithDescriptions || typ == token.SelectManyWithDescriptionsAndPreviews,
	}

	previews := typ == token.SelectWithPreview || typ == token.SelectManyWithPreview ||
		typ == token.SelectWithDescriptionsAndPreviews || typ == token.SelectManyWithDescriptionsAndPreviews
	descriptions := typ == token.SelectWithDescriptions || typ == token.SelectManyWithDescriptions ||
		typ == token.SelectWithDescriptionsAndPreviews || typ == token.SelectManyWithDescriptionsAndPreviews

	width := 1
	if previews {
		width++
	}
	if descriptions {
		width++
	}

	rest := line.Args[1:]
	if len(rest)%width != 0 {
		return nil, errors.NewLineValidationError(line.Number, line.Raw,
			fmt.Sprintf("%s: expected items in groups of %d, got %d trailing arguments", typ, width, len(rest)))
	}

	for i := 0; i < len(rest); i += width {
		sel.Items = append(sel.Items, rest[i])
		next := i + 1
		if previews {
			sel.Previews = append(sel.Previews, rest[next])
			next++
		}
		if descriptions {
			sel.Descriptions = append(sel.Descriptions, rest[next])
		}
	}

	return sel, nil
}

// suggest returns the closest known name, or "" when nothing is close
func suggest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDistance := "", 4
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c))
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
