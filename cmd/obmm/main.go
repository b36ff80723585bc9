package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/obmm/internal/config"
)

// Exit codes
const (
	exitSuccess          = 0
	exitInvalidArguments = 1
	exitIOError          = 2
	exitParseError       = 3
	exitExecutionError   = 4
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every subcommand shares
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	history    string
	debug      bool
	noColor    bool

	cfg    config.Config
	logger *slog.Logger
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		FormatError(stderr, err, ShouldUseColor(a.noColor, stderr))
		return exitCode(err)
	}
	return exitSuccess
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "obmm",
		Short:         "Check and run OBMM installer scripts without a game install",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Configuration file")
	root.PersistentFlags().StringVar(&a.history, "history", "", "Run history database (overrides the config file, \"\" keeps the configured one)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output (also OBMM_DEBUG)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.runCommand(),
		a.checkCommand(),
		a.tokenizeCommand(),
		a.evalCommand(),
		a.historyCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return withCode(exitInvalidArguments, err)
	}
	if a.history != "" {
		cfg.History = a.history
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, a.debug || os.Getenv("OBMM_DEBUG") != "")
	return nil
}

// newLogger logs debug output without timestamps, or only errors when debug is off
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}
