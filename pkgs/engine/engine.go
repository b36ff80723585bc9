// Package engine executes tokenized OBMM scripts.
//
// A run walks the token list once from the top, keeping open If, For and Select
// blocks on a stack. A token executes only while every open block is active;
// inside an inactive block only flow tokens are tracked so that the matching
// End token can be found. Labels are recorded the first time the walk passes
// them and Goto may only target a label already seen. Label and Goto are handled
// before the activity check, except that a Goto inside an inactive block does not
// jump; otherwise a Goto guarded by If could never stop looping.
//
// Every call to Execute owns its stack, variables and label table, so one token
// list may be executed by any number of concurrent runs.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aledsdavies/obmm/core/invariant"
	"github.com/aledsdavies/obmm/pkgs/errors"
	"github.com/aledsdavies/obmm/pkgs/expr"
	"github.com/aledsdavies/obmm/pkgs/installer"
	"github.com/aledsdavies/obmm/pkgs/token"
)

// signalKind tells the main loop what to do after a token
type signalKind int

const (
	sigNext   signalKind = iota // continue with the following token
	sigJump                     // continue at signal.target
	sigReturn                   // Return: stop, keep the data
	sigAbort                    // FatalError: stop, cancel the install
)

type signal struct {
	kind   signalKind
	target int
	reason string
}

var next = signal{kind: sigNext}

// run holds execution state of one Execute call
type run struct {
	config Config
	logger *slog.Logger
	collab installer.Collaborator
	prog   []token.Token

	pc     int
	stack  stack
	vars   variables
	labels map[string]int

	// Observability
	warnings    []Warning
	debugEvents []DebugEvent
	telemetry   *Telemetry
	tokensRun   int
	skipped     int
	jumps       int
}

// Execute runs tokens against collab and returns what the script asked for.
//
// FatalError, Return and user cancellation are outcomes, not errors. An error is
// returned only for a script that is structurally broken at run time (an End
// token without its block, Goto to an unknown label, an undefined variable, a
// malformed expression or argument) or a collaborator failure; any data
// gathered before the failure is discarded.
func Execute(ctx context.Context, tokens []token.Token, collab installer.Collaborator, config Config) (*Result, error) {
	// INPUT CONTRACT
	invariant.NotNil(ctx, "ctx")
	invariant.NotNil(collab, "collab")

	start := time.Now()
	r := &run{
		config: config,
		logger: config.Logger,
		collab: collab,
		prog:   program(tokens),
		vars:   newVariables(),
		labels: make(map[string]int),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runID := uuid.New().String()
	r.logger = r.logger.With("run_id", runID)

	if config.Telemetry != TelemetryOff {
		r.telemetry = &Telemetry{TokenCount: len(r.prog)}
	}

	r.recordDebugEvent(DebugPaths, "enter_execute", 0, fmt.Sprintf("tokens=%d", len(r.prog)))
	r.logger.Debug("run started", "tokens", len(r.prog))

	res := &Result{RunID: runID, Outcome: Completed}

	for r.pc < len(r.prog) {
		tok := r.prog[r.pc]
		began := time.Now()

		sig, err := r.exec(tok)
		if err != nil {
			err = atLine(err, tok.Line())
			r.logger.Debug("run failed", "line", tok.Line(), "error", err)
			return nil, err
		}

		if config.Telemetry == TelemetryTiming {
			r.telemetry.Timings = append(r.telemetry.Timings, InstructionTiming{
				Line:     tok.Line(),
				Name:     tok.Type().String(),
				Duration: time.Since(began),
			})
		}

		stop := false
		switch sig.kind {
		case sigNext:
			r.pc++
		case sigJump:
			r.jumps++
			r.pc = sig.target
		case sigReturn:
			res.Outcome = Returned
			stop = true
		case sigAbort:
			res.Outcome = Aborted
			res.AbortMessage = sig.reason
			collab.ReturnData().CancelInstall = true
			stop = true
		default:
			invariant.Unreachable("unknown signal %d", sig.kind)
		}
		if stop {
			break
		}

		if collab.ReturnData().CancelInstall {
			res.Outcome = Cancelled
			res.AbortMessage = "cancelled by user"
			break
		}
		if err := ctx.Err(); err != nil {
			res.Outcome = Cancelled
			res.AbortMessage = err.Error()
			collab.ReturnData().CancelInstall = true
			break
		}
	}

	if res.Outcome == Completed && !r.stack.empty() {
		r.warn(r.stack.top().line, "%d block(s) still open at end of script", len(r.stack.frames))
	}

	duration := time.Since(start)
	if r.telemetry != nil {
		r.telemetry.TokensRun = r.tokensRun
		r.telemetry.TokensSkipped = r.skipped
		r.telemetry.Pushes = r.stack.pushes
		r.telemetry.Pops = r.stack.pops
		r.telemetry.MaxDepth = r.stack.maxDepth
		r.telemetry.Jumps = r.jumps
	}
	r.recordDebugEvent(DebugPaths, "exit_execute", 0,
		fmt.Sprintf("outcome=%s, tokens_run=%d, duration=%v", res.Outcome, r.tokensRun, duration))
	r.logger.Debug("run finished", "outcome", res.Outcome.String(), "tokens_run", r.tokensRun, "duration", duration)

	// OUTPUT CONTRACT
	invariant.Postcondition(r.stack.pops <= r.stack.pushes, "more frames popped than pushed")

	res.Data = collab.ReturnData()
	res.Variables = r.vars.snapshot()
	res.Warnings = r.warnings
	res.Duration = duration
	res.Telemetry = r.telemetry
	res.DebugEvents = r.debugEvents
	return res, nil
}

// program drops comments; nothing else is filtered
func program(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := t.(*token.Note); ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// exec runs one token
func (r *run) exec(tok token.Token) (signal, error) {
	// Labels and gotos come first
	switch t := tok.(type) {
	case *token.Marker:
		if _, seen := r.labels[t.Name]; !seen {
			r.labels[t.Name] = r.pc
		}
		return next, nil
	case *token.Jump:
		if r.stack.blocked(len(r.stack.frames)) {
			r.skipped++
			return next, nil
		}
		r.tokensRun++
		return r.jump(t)
	case *token.EndFlow:
		return r.end(t)
	}

	// Else sits on its If, whose own activity must not block it
	depth := len(r.stack.frames)
	if _, ok := tok.(*token.ElseBranch); ok && depth > 0 {
		depth--
	}
	if r.stack.blocked(depth) {
		r.skipped++
		r.recordDebugEvent(DebugDetailed, "skip", tok.Line(), tok.Type().String())
		if tok.Type().IsFlowStart() {
			return next, r.pushSkipped(tok)
		}
		return next, nil
	}

	r.tokensRun++
	r.recordDebugEvent(DebugDetailed, "token", tok.Line(), tok.Type().String())

	switch t := tok.(type) {
	case *token.Conditional:
		return next, r.ifBlock(t)
	case *token.ElseBranch:
		return next, r.elseBlock(t)
	case *token.Loop:
		return next, r.forBlock(t)
	case *token.LoopControl:
		return next, r.loopControl(t)
	case *token.Selection:
		return next, r.selectBlock(t)
	case *token.SelectValue:
		return next, r.selectValue(t)
	case *token.CaseMatch:
		return next, r.caseBlock(t)
	case *token.DefaultCase:
		return next, r.defaultBlock(t)
	case *token.Assignment:
		value, err := r.vars.substitute(t.Value)
		if err != nil {
			return next, err
		}
		r.vars.set(t.Variable, value)
		return next, nil
	case *token.Arithmetic:
		return next, r.arithmetic(t)
	case *token.Halt:
		r.logger.Debug("return", "line", t.Line())
		return signal{kind: sigReturn}, nil
	case *token.Abort:
		msg, err := r.vars.substitute(t.Message)
		if err != nil {
			return next, err
		}
		r.logger.Debug("fatal error", "line", t.Line(), "message", msg)
		return signal{kind: sigAbort, reason: msg}, nil
	case *token.Instruction:
		return next, r.instruction(t)
	default:
		invariant.Unreachable("no execution arm for token %T (%s)", tok, tok.Type())
		return next, nil
	}
}

func (r *run) jump(t *token.Jump) (signal, error) {
	idx, ok := r.labels[t.Label]
	if !ok {
		return next, errors.NewUnresolvedLabelError(t.Label)
	}
	r.recordDebugEvent(DebugPaths, "jump", t.Line(), fmt.Sprintf("label=%s index=%d", t.Label, idx))
	return signal{kind: sigJump, target: idx + 1}, nil
}

func (r *run) arithmetic(t *token.Arithmetic) error {
	tokens, err := r.vars.substituteAll(t.Expression)
	if err != nil {
		return err
	}
	if t.Float {
		v, err := expr.EvalFloat(tokens)
		if err != nil {
			return err
		}
		r.vars.set(t.Variable, expr.FormatFloat(v))
		return nil
	}
	v, err := expr.EvalInt(tokens)
	if err != nil {
		return err
	}
	r.vars.set(t.Variable, expr.FormatInt(v))
	return nil
}

func (r *run) warn(line int, format string, args ...interface{}) {
	if !r.config.Warnings {
		return
	}
	w := Warning{Line: line, Message: fmt.Sprintf(format, args...)}
	r.logger.Warn(w.Message, "line", line)
	r.warnings = append(r.warnings, w)
}

func (r *run) recordDebugEvent(level DebugLevel, event string, line int, context string) {
	if r.config.Debug < level || r.config.Debug == DebugOff {
		return
	}
	r.debugEvents = append(r.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		Line:      line,
		Context:   context,
	})
}

// atLine attaches the script line to an error that lacks one
func atLine(err error, line int) error {
	if se, ok := err.(*errors.ScriptError); ok {
		return se.AtLine(line)
	}
	return fmt.Errorf("line %d: %w", line, err)
}
