package main

import (
	stderrors "errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/obmm/pkgs/history"
)

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recorded runs, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withHistory(func(s *history.Store) error {
					entries, err := s.List()
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.RunID, e.Time.Local().Format(time.DateTime), e.Outcome, e.Script)
					}
					return tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "show <run-id>",
			Short: "Show what a recorded run asked to install",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withHistory(func(s *history.Store) error {
					e, err := s.Get(args[0])
					if stderrors.Is(err, history.ErrNotFound) {
						return withCode(exitInvalidArguments, err)
					}
					if err != nil {
						return err
					}

					fmt.Fprintf(a.stdout, "run      %s\n", e.RunID)
					fmt.Fprintf(a.stdout, "script   %s (%s)\n", e.Script, e.ScriptDigest)
					fmt.Fprintf(a.stdout, "time     %s\n", e.Time.Local().Format(time.RFC3339))
					fmt.Fprintf(a.stdout, "outcome  %s\n", e.Outcome)
					if e.AbortMessage != "" {
						fmt.Fprintf(a.stdout, "message  %s\n", e.AbortMessage)
					}
					fmt.Fprintf(a.stdout, "digest   %s\n", e.Digest)
					if e.Data != nil {
						for _, line := range e.Data.Summary() {
							fmt.Fprintf(a.stdout, "  %s\n", line)
						}
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withHistory(fn func(*history.Store) error) error {
	if a.cfg.History == "" {
		return withCode(exitInvalidArguments, &CLIError{
			Message: "no history database configured",
			Hint:    "Pass --history or set history in the config file",
		})
	}
	s, err := history.Open(a.cfg.History)
	if err != nil {
		return withCode(exitIOError, err)
	}
	defer s.Close()

	if err := fn(s); err != nil {
		var e *exitError
		if stderrors.As(err, &e) {
			return err
		}
		return withCode(exitIOError, err)
	}
	return nil
}
