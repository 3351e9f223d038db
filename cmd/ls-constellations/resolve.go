package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-constellations/internal/ui"
)

func newResolveCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <identifier>...",
		Short: "Resolve stars and print their records",
		Example: `  ls-constellations resolve "* alf CMa" "* bet CMa"
  ls-constellations resolve --json "NAME Polaris"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Prompts go to stderr so stdout stays clean for the table or JSON.
			r, err := a.newResolver(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			rows := make([]ui.Row, 0, len(args))
			failed := 0
			for _, id := range args {
				res, err := r.Resolve(ctx, id)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed++
					a.log.Debug("resolve %s: %v", id, err)
				}
				rows = append(rows, ui.Row{Identifier: id, Result: res, Err: err})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := ui.ExportRows(rows, time.Now()).WriteJSON(out); err != nil {
					return err
				}
			} else if err := ui.RenderRecords(out, rows, isTerminal(os.Stdout)); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%s of %d did not resolve", plural(failed, "star"), len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON instead of a table")
	return cmd
}
