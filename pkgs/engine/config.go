package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aledsdavies/obmm/pkgs/installer"
)

// Config configures a script run
type Config struct {
	Warnings  bool           // Collect advisory warnings in Result.Warnings
	Logger    *slog.Logger   // Structured logging (nil discards)
	Debug     DebugLevel     // Debug tracing (development only)
	Telemetry TelemetryLevel // Telemetry collection (production-safe)
}

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Run entry/exit, jumps and loop restarts
	DebugDetailed                   // Every token executed or skipped
)

// TelemetryLevel controls telemetry collection (production-safe)
type TelemetryLevel int

const (
	TelemetryOff    TelemetryLevel = iota // Zero overhead (default)
	TelemetryBasic                        // Counters only
	TelemetryTiming                       // Counters + timing per instruction
)

// Outcome says how a run ended. None of these is an error.
type Outcome int

const (
	Completed Outcome = iota // Ran off the end of the script
	Returned                 // Stopped by Return
	Cancelled                // The user cancelled a dialog, or the context was cancelled
	Aborted                  // Stopped by FatalError
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Returned:
		return "returned"
	case Cancelled:
		return "cancelled"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Warning is an advisory finding raised while running
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Result holds the result of a script run
type Result struct {
	RunID        string                // Unique id of this run
	Outcome      Outcome               // How the run ended
	AbortMessage string                // FatalError text, or the cancellation cause
	Data         *installer.ReturnData // Everything the script asked for
	Variables    map[string]string     // Final variable store
	Warnings     []Warning             // Advisory warnings (nil unless Config.Warnings)
	Duration     time.Duration         // Total execution time
	Telemetry    *Telemetry            // Additional metrics (nil if TelemetryOff)
	DebugEvents  []DebugEvent          // Debug events (nil if DebugOff)
}

// Telemetry holds run metrics
type Telemetry struct {
	TokenCount    int                 // Tokens in the program (comments excluded)
	TokensRun     int                 // Tokens executed, counting repeats
	TokensSkipped int                 // Tokens passed over in inactive blocks
	Pushes        int                 // Flow frames opened
	Pops          int                 // Flow frames closed
	MaxDepth      int                 // Deepest flow stack seen
	Jumps         int                 // Goto jumps and loop restarts
	Timings       []InstructionTiming // Per-instruction timing (if TelemetryTiming)
}

// InstructionTiming holds timing information for one executed token
type InstructionTiming struct {
	Line     int
	Name     string
	Duration time.Duration
}

// DebugEvent represents a debug trace event
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_execute", "token", "skip", "jump", "loop", "exit_execute"
	Line      int    // Script line (0 if not token-specific)
	Context   string // Additional context
}
