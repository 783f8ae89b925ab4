package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPatternsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and edit the pattern table",
		Long: `Manage the phrase patterns.

Available subcommands:
  list   - Show every pattern and its command template in table order
  add    - Add a pattern or overwrite its template
  remove - Remove a pattern`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the pattern table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openTable(cmd.Context(), opts.cfg, opts.logger)
				if err != nil {
					return err
				}
				defer a.Close()

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PATTERN\tTEMPLATE")
				for _, e := range a.table.List() {
					fmt.Fprintf(tw, "%s\t%s\n", e.Pattern, e.Template)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add [pattern] [template]",
			Short: "Add a pattern or overwrite its template",
			Long: `Adds a pattern. Patterns are regular expressions matched against the
whole phrase, with at most one capture group.

Example:
  shsh-voice patterns add "remove file ([0-9]+)" delete_file_index
  shsh-voice patterns add "show date" date`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openTable(cmd.Context(), opts.cfg, opts.logger)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.table.Add(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added command mapping: '%s' -> '%s'\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove [pattern]",
			Short: "Remove a pattern",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openTable(cmd.Context(), opts.cfg, opts.logger)
				if err != nil {
					return err
				}
				defer a.Close()

				removed, err := a.table.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no mapping found for pattern '%s'", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed command mapping for: '%s'\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
