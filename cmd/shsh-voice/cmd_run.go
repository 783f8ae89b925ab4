package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/shsh-voice/internal/voice"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [phrase...]",
		Short: "Resolve and execute a single phrase",
		Long: `Resolves one phrase against the pattern table and executes it.

Example:
  shsh-voice run create folder reports
  shsh-voice run "move to three"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.ToLower(strings.Join(args, " "))
			printOutcome(cmd.OutOrStdout(), a.session.Handle(cmd.Context(), "cli", text))
			return nil
		},
	}
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [command...]",
		Short: "Execute a concrete command without pattern matching",
		Long: `Executes command text directly, e.g. "cd ..", "dir /B" or any shell line.

Example:
  shsh-voice exec -- ls -la`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			printOutcome(cmd.OutOrStdout(), a.session.ExecuteLine(cmd.Context(), "cli", strings.Join(args, " ")))
			return nil
		},
	}
}

func printOutcome(w io.Writer, out voice.Outcome) {
	if out.Matched {
		fmt.Fprintf(w, "Executing: %s\n", out.Command)
	}
	fmt.Fprintln(w, strings.TrimRight(out.Result, "\n"))
}
