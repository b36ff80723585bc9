package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aledsdavies/obmm/core/invariant"
	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/installer"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// pushSkipped opens a block inside an inactive region. Nothing is evaluated,
// but Else, Case and Default still need the right parent so the End tokens
// pair up.
func (r *run) pushSkipped(tok token.Token) error {
	typ := tok.Type()
	switch {
	case typ == token.Else:
		if err := r.expectTop(tok, token.If, token.IfNot); err != nil {
			return err
		}
	case typ == token.Case || typ == token.Default:
		if err := r.expectSelective(tok); err != nil {
			return err
		}
	}
	f := &frame{kind: typ, line: tok.Line(), skipped: true}
	if typ == token.For {
		f.loop = &loop{exit: true}
	}
	r.stack.push(f)
	return nil
}

func (r *run) ifBlock(t *token.Conditional) error {
	operands, err := r.vars.substituteAll(t.Operands)
	if err != nil {
		return err
	}
	ok, err := r.condition(t.Condition, operands)
	if err != nil {
		return err
	}
	active := ok != t.Not
	r.logger.Debug("if", "line", t.Line(), "condition", t.Condition.String(), "active", active)
	r.stack.push(&frame{kind: t.Kind, line: t.Line(), active: active})
	return nil
}

// elseBlock flips its If: the If frame becomes active so that only the Else
// frame decides whether the branch runs.
func (r *run) elseBlock(t *token.ElseBranch) error {
	if err := r.expectTop(t, token.If, token.IfNot); err != nil {
		return err
	}
	parent := r.stack.top()
	active := !parent.active
	parent.active = true
	r.stack.push(&frame{kind: token.Else, line: t.Line(), active: active})
	return nil
}

func (r *run) forBlock(t *token.Loop) error {
	l := &loop{variable: t.Variable, start: r.pc + 1}

	if t.Enum == token.ForCount {
		if err := r.countLoop(t, l); err != nil {
			return err
		}
	} else {
		if err := r.eachLoop(t, l); err != nil {
			return err
		}
	}

	f := &frame{kind: token.For, line: t.Line(), loop: l, active: !l.exit}
	if f.active {
		if l.count {
			r.vars.set(l.variable, strconv.FormatInt(l.current, 10))
		} else {
			r.vars.set(l.variable, l.sequence[0])
		}
	}
	r.stack.push(f)
	return nil
}

func (r *run) countLoop(t *token.Loop, l *loop) error {
	bounds, err := r.vars.substituteAll([]string{t.Start, t.End, t.Step})
	if err != nil {
		return err
	}
	nums := make([]int64, 3)
	for i, b := range bounds {
		n, err := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
		if err != nil {
			return errors.Newf(errors.ErrInvalidArgument, "For Count: '%s' is not an integer", b)
		}
		nums[i] = n
	}
	if nums[2] == 0 {
		return errors.New(errors.ErrInvalidArgument, "For Count: step must not be zero")
	}

	l.count = true
	l.current, l.end, l.step = nums[0], nums[1], nums[2]
	empty := (l.step > 0 && l.current >= l.end) || (l.step < 0 && l.current <= l.end)
	l.exit = empty
	return nil
}

func (r *run) eachLoop(t *token.Loop, l *loop) error {
	args, err := r.vars.substituteAll([]string{t.Path, t.Pattern})
	if err != nil {
		return err
	}
	dir, pattern := args[0], args[1]

	var list func(string, string, bool) ([]string, error)
	switch t.Enum {
	case token.ForDataFolder:
		list = r.collab.ListDataFolders
	case token.ForPluginFolder:
		list = r.collab.ListPluginFolders
	case token.ForDataFile:
		list = r.collab.ListDataFiles
	case token.ForPlugin:
		list = r.collab.ListPlugins
	default:
		invariant.Unreachable("unknown For enumeration %s", t.Enum)
	}

	seq, err := list(dir, pattern, t.Recurse)
	if err != nil {
		return err
	}
	l.sequence = seq
	l.exit = len(seq) == 0
	r.logger.Debug("for each", "line", t.Line(), "kind", t.Enum.String(), "items", len(seq))
	return nil
}

// loopControl handles Continue and Exit: the nearest loop stops running its body
func (r *run) loopControl(t *token.LoopControl) error {
	f := r.stack.innermostLoop()
	if f == nil {
		return errors.Newf(errors.ErrFrameMismatch, "%s outside of a For loop", t.Kind)
	}
	f.active = false
	f.loop.exit = t.IsExit()
	return nil
}

func (r *run) selectBlock(t *token.Selection) error {
	title, err := r.vars.substitute(t.Title)
	if err != nil {
		return err
	}
	req := installer.SelectRequest{Title: title, Many: t.Many}
	if req.Items, err = r.vars.substituteAll(t.Items); err != nil {
		return err
	}
	if t.Previews != nil {
		if req.Previews, err = r.vars.substituteAll(t.Previews); err != nil {
			return err
		}
	}
	if t.Descriptions != nil {
		if req.Descriptions, err = r.vars.substituteAll(t.Descriptions); err != nil {
			return err
		}
	}

	chosen, err := r.collab.Select(req)
	if err != nil {
		return err
	}
	results := make([]string, len(chosen))
	for i, c := range chosen {
		results[i] = strings.TrimPrefix(c, "|")
	}
	r.logger.Debug("select", "line", t.Line(), "title", title, "chosen", results)

	r.stack.push(&frame{kind: t.Kind, line: t.Line(), active: true, many: t.Many, results: results})
	return nil
}

// selectValue opens SelectVar or SelectString as a single select with one result
func (r *run) selectValue(t *token.SelectValue) error {
	var (
		value string
		err   error
	)
	if t.Kind == token.SelectVar {
		value, err = r.vars.get(t.Value)
	} else {
		value, err = r.vars.substitute(t.Value)
	}
	if err != nil {
		return err
	}
	r.stack.push(&frame{kind: t.Kind, line: t.Line(), active: true, results: []string{value}})
	return nil
}

func (r *run) caseBlock(t *token.CaseMatch) error {
	if err := r.expectSelective(t); err != nil {
		return err
	}
	value, err := r.vars.substitute(t.Value)
	if err != nil {
		return err
	}

	parent := r.stack.top()
	active := false
	if parent.many || !parent.foundCase {
		for _, res := range parent.results {
			if res == value {
				active = true
				break
			}
		}
	}
	if active {
		parent.matched = true
		if !parent.many {
			parent.foundCase = true
		}
	}
	r.stack.push(&frame{kind: token.Case, line: t.Line(), active: active})
	return nil
}

// defaultBlock runs only when no Case of the same Select matched, for single
// and multi select alike
func (r *run) defaultBlock(t *token.DefaultCase) error {
	if err := r.expectSelective(t); err != nil {
		return err
	}
	parent := r.stack.top()
	r.stack.push(&frame{kind: token.Default, line: t.Line(), active: !parent.matched})
	return nil
}

// end closes the innermost block. EndFor may instead restart its loop.
func (r *run) end(t *token.EndFlow) (signal, error) {
	if r.stack.empty() {
		return next, errors.Newf(errors.ErrStackUnderflow, "%s without an open block", t.Kind)
	}

	top := r.stack.top()
	if !t.Kind.Closes(top.kind) {
		return next, errors.Newf(errors.ErrFrameMismatch, "%s cannot close %s opened on line %d",
			t.Kind, top.kind, top.line).
			WithContext("open_line", top.line)
	}

	switch t.Kind {
	case token.EndFor:
		if sig, restarted := r.restartLoop(top); restarted {
			return sig, nil
		}
	case token.EndIf:
		if top.kind == token.Else {
			r.stack.pop()
			parent := r.stack.top()
			invariant.Invariant(parent != nil && (parent.kind == token.If || parent.kind == token.IfNot),
				"Else frame without its If")
		}
	}

	r.stack.pop()
	return next, nil
}

// restartLoop decides an EndFor. A skipped loop or one left by Exit closes;
// otherwise the loop advances and jumps back to its body while values remain.
func (r *run) restartLoop(f *frame) (signal, bool) {
	invariant.NotNil(f.loop, "loop state")
	if f.skipped || f.loop.exit {
		return next, false
	}

	value, ok := f.loop.next()
	if !ok {
		return next, false
	}
	f.active = true
	r.vars.set(f.loop.variable, value)
	r.recordDebugEvent(DebugPaths, "loop", f.line, fmt.Sprintf("%s=%s", f.loop.variable, value))
	return signal{kind: sigJump, target: f.loop.start}, true
}

func (r *run) expectTop(tok token.Token, kinds ...token.Type) error {
	top := r.stack.top()
	if top == nil {
		return errors.Newf(errors.ErrStackUnderflow, "%s without an open block", tok.Type())
	}
	for _, k := range kinds {
		if top.kind == k {
			return nil
		}
	}
	return errors.Newf(errors.ErrFrameMismatch, "%s inside %s opened on line %d", tok.Type(), top.kind, top.line).
		WithContext("open_line", top.line)
}

func (r *run) expectSelective(tok token.Token) error {
	top := r.stack.top()
	if top == nil {
		return errors.Newf(errors.ErrStackUnderflow, "%s outside of a Select", tok.Type())
	}
	if !top.kind.IsSelective() {
		return errors.Newf(errors.ErrFrameMismatch, "%s inside %s opened on line %d", tok.Type(), top.kind, top.line).
			WithContext("open_line", top.line)
	}
	return nil
}
