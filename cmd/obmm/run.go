package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/obmm/internal/config"
	"github.com/aledsdavies/obmm/pkgs/engine"
	"github.com/aledsdavies/obmm/pkgs/history"
	"github.com/aledsdavies/obmm/pkgs/host"
	"github.com/aledsdavies/obmm/pkgs/installer"
)

type runOptions struct {
	answers  string
	dataDir  string
	format   string
	warnings bool
}

// report is the json form of a run
type report struct {
	RunID        string                `json:"run_id"`
	Script       string                `json:"script"`
	Outcome      string                `json:"outcome"`
	AbortMessage string                `json:"abort_message,omitempty"`
	Digest       string                `json:"digest"`
	Warnings     []string              `json:"warnings,omitempty"`
	Data         *installer.ReturnData `json:"data"`
}

func (a *app) runCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script against an extracted archive and print what it would install",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("warnings") {
				opts.warnings = a.cfg.Warnings
			}
			if opts.answers == "" {
				opts.answers = a.cfg.Answers
			}
			if opts.dataDir == "" {
				opts.dataDir = a.cfg.DataDir
			}
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.answers, "answers", "", "YAML file with dialog answers")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Extracted archive directory")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or cbor")
	cmd.Flags().BoolVar(&opts.warnings, "warnings", true, "Report advisory warnings")
	return cmd
}

func (a *app) run(ctx context.Context, path string, opts runOptions) error {
	switch opts.format {
	case "text", "json", "cbor":
	default:
		return withCode(exitInvalidArguments, &CLIError{
			Message: fmt.Sprintf("unsupported format '%s'", opts.format),
			Hint:    "Use --format text, json or cbor",
		})
	}

	raw, parsed, err := a.parseScript(path, opts.warnings)
	if err != nil {
		return err
	}

	answers, err := loadAnswers(opts.answers)
	if err != nil {
		return err
	}
	debug, err := config.DebugLevel(a.cfg.Debug)
	if err != nil {
		return withCode(exitInvalidArguments, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fns := installer.NewFunctions(host.New(opts.dataDir, answers, a.logger), a.logger)
	res, err := engine.Execute(ctx, parsed.Tokens, fns, engine.Config{
		Warnings:  opts.warnings,
		Logger:    a.logger,
		Debug:     debug,
		Telemetry: engine.TelemetryBasic,
	})
	if err != nil {
		return withCode(exitExecutionError, err)
	}

	digest, err := res.Data.Digest()
	if err != nil {
		return withCode(exitExecutionError, err)
	}

	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, w.String())
	}
	warnings = append(warnings, fns.Warnings()...)

	if err := a.printRun(path, opts.format, res, digest, warnings); err != nil {
		return withCode(exitIOError, err)
	}

	if a.cfg.History != "" {
		entry := history.Entry{
			RunID:        res.RunID,
			Script:       path,
			ScriptDigest: history.ScriptDigest(raw),
			Outcome:      res.Outcome.String(),
			AbortMessage: res.AbortMessage,
			Digest:       digest,
			Time:         time.Now().UTC(),
			Data:         res.Data,
		}
		if err := record(a.cfg.History, entry); err != nil {
			return withCode(exitIOError, err)
		}
	}

	switch res.Outcome {
	case engine.Aborted:
		return withCode(exitExecutionError, fmt.Errorf("script aborted: %s", res.AbortMessage))
	case engine.Cancelled:
		return withCode(exitExecutionError, fmt.Errorf("install cancelled: %s", res.AbortMessage))
	}
	return nil
}

func loadAnswers(path string) (*host.Answers, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitIOError, fmt.Errorf("answers: %w", err))
	}
	defer f.Close()

	answers, err := host.LoadAnswers(f)
	if err != nil {
		return nil, withCode(exitInvalidArguments, err)
	}
	return answers, nil
}

func record(path string, e history.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(e)
}

func (a *app) printRun(path, format string, res *engine.Result, digest string, warnings []string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report{
			RunID:        res.RunID,
			Script:       path,
			Outcome:      res.Outcome.String(),
			AbortMessage: res.AbortMessage,
			Digest:       digest,
			Warnings:     warnings,
			Data:         res.Data,
		})

	case "cbor":
		data, err := res.Data.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	}

	useColor := ShouldUseColor(a.noColor, a.stdout)
	color := ColorGreen
	if res.Outcome == engine.Aborted || res.Outcome == engine.Cancelled {
		color = ColorRed
	}
	fmt.Fprintf(a.stdout, "%s %s (%s, run %s)\n", path,
		Colorize(res.Outcome.String(), color, useColor), res.Duration.Round(time.Microsecond), res.RunID)
	if res.AbortMessage != "" {
		fmt.Fprintf(a.stdout, "  %s\n", res.AbortMessage)
	}
	for _, w := range warnings {
		fmt.Fprintf(a.stdout, "%s %s\n", Colorize("warning:", ColorYellow, useColor), w)
	}
	for _, line := range res.Data.Summary() {
		fmt.Fprintf(a.stdout, "  %s\n", line)
	}
	fmt.Fprintf(a.stdout, "%s\n", Colorize("digest "+digest, ColorGray, useColor))
	return nil
}
