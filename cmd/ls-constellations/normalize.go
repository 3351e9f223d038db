package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-constellations/internal/designation"
	"github.com/litescript/ls-constellations/internal/version"
)

func skipInit(*cobra.Command, []string) error { return nil }

func newNormalizeCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "normalize <catalog-id> [query]",
		Short: "Print the display name for a catalog identifier",
		Example: `  ls-constellations normalize "* alf CMa"
  ls-constellations normalize "* alf Lyr" "alf Lyrae"`,
		Args:              cobra.RangeArgs(1, 2),
		PersistentPreRunE: skipInit,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Without a query, use the identifier minus its catalog marker,
			// which is how definitions usually name stars.
			query := strings.TrimSpace(strings.TrimPrefix(args[0], "*"))
			if len(args) == 2 {
				query = args[1]
			}

			d, err := designation.Parse(args[0], query)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d.String())
			if verbose {
				fmt.Fprintf(out, "kind: %s\n", d.Kind)
				if d.Note != "" {
					fmt.Fprintf(out, "note: %s\n", d.Note)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print how the identifier was parsed")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipInit,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ls-constellations", version.Version)
		},
	}
}
