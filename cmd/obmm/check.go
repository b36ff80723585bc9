package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func (a *app) checkCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check <script>",
		Short: "Tokenize and validate a script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return a.watch(cmd.Context(), args[0])
			}
			return a.check(args[0])
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Check again every time the script is saved")
	return cmd
}

func (a *app) check(path string) error {
	_, res, err := a.parseScript(path, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %s, %d tokens\n", path,
		Colorize("ok", ColorGreen, ShouldUseColor(a.noColor, a.stdout)), len(res.Tokens))
	return nil
}

// watch re-checks path on every write until interrupted. The parent folder is
// watched because editors often replace the file instead of writing to it.
func (a *app) watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return withCode(exitIOError, err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return withCode(exitIOError, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a.recheck(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			a.logger.Debug("script changed", "path", ev.Name, "op", ev.Op.String())
			a.recheck(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return withCode(exitIOError, err)
		}
	}
}

// recheck reports a failed check and keeps watching
func (a *app) recheck(path string) {
	if err := a.check(path); err != nil {
		FormatError(a.stderr, err, ShouldUseColor(a.noColor, a.stderr))
	}
}

func (a *app) tokenizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <script>",
		Short: "Print the validated tokens of a script, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := a.parseScript(args[0], false)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, tok := range res.Tokens {
				quoted := make([]string, len(tok.Args()))
				for i, arg := range tok.Args() {
					quoted[i] = strconv.Quote(arg)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", tok.Line(), tok.Type(), strings.Join(quoted, " "))
			}
			if err := tw.Flush(); err != nil {
				return withCode(exitIOError, err)
			}
			return nil
		},
	}
}
