package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/obmm/pkgs/expr"
)

func (a *app) evalCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "eval int|float <tokens...>",
		Short:     "Evaluate an iSet or fSet expression",
		Example:   "  obmm eval int 5 * ( 12 ^ 3 ) - not 20\n  obmm eval float -- -1.5 * 2",
		Args:      cobra.MatchAll(cobra.MinimumNArgs(2), argIn(0, "int", "float")),
		ValidArgs: []string{"int", "float"},
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := args[1:]
			if args[0] == "int" {
				v, err := expr.EvalInt(tokens)
				if err != nil {
					return withCode(exitExecutionError, err)
				}
				fmt.Fprintln(a.stdout, expr.FormatInt(v))
				return nil
			}

			v, err := expr.EvalFloat(tokens)
			if err != nil {
				return withCode(exitExecutionError, err)
			}
			fmt.Fprintln(a.stdout, expr.FormatFloat(v))
			return nil
		},
	}
}

// argIn requires args[i] to be one of allowed
func argIn(i int, allowed ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		for _, s := range allowed {
			if args[i] == s {
				return nil
			}
		}
		return fmt.Errorf("%s: expected one of %v, got %q", cmd.Name(), allowed, args[i])
	}
}
