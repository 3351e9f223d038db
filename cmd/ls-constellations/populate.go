package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-constellations/internal/constellation"
	"github.com/litescript/ls-constellations/internal/populate"
)

func newPopulateCmd(a *app, v *viper.Viper) *cobra.Command {
	var (
		definitions string
		only        []string
	)

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Resolve every star of the constellation definitions into the store",
		Example: `  ls-constellations populate --definitions constellations.json
  ls-constellations populate --definitions constellations.toml --only Orion --only Lyra`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			defs, err := constellation.Load(definitions)
			if err != nil {
				return err
			}
			if len(only) > 0 {
				defs = constellation.Filter(defs, only)
				if len(defs) == 0 {
					return fmt.Errorf("no constellation in %s matches %v", definitions, only)
				}
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(a, st)

			r, err := a.newResolver(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			pc := a.cfg.Populate
			svc := populate.NewService(r, st, populate.Config{
				Delay:           pc.Delay,
				SkipExisting:    pc.SkipExisting,
				Reset:           pc.Reset,
				ContinueOnError: pc.ContinueOnError,
			}, a.log.Named("populate"))

			a.log.Info("populating %s (%s) into %s",
				plural(len(defs), "constellation"), plural(constellation.StarCount(defs), "star"), a.cfg.Store.Driver)

			rep, runErr := svc.Run(ctx, defs)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stored %s, resolved %s", plural(rep.Constellations, "constellation"), plural(rep.Stars, "star"))
			if len(rep.Skipped) > 0 {
				fmt.Fprintf(out, ", skipped %d", len(rep.Skipped))
			}
			fmt.Fprintln(out)
			for _, f := range rep.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %v\n", f)
			}

			if runErr != nil {
				return runErr
			}
			if len(rep.Failed) > 0 {
				return errors.New(plural(len(rep.Failed), "star") + " kept without a full position")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&definitions, "definitions", "d", "", "constellation definitions file (.json, .yaml or .toml)")
	f.StringSliceVar(&only, "only", nil, "populate only the named constellations (repeatable)")
	f.Duration("delay", populate.DefaultDelay, "pause between star lookups")
	f.Bool("skip-existing", false, "leave constellations already in the store untouched")
	f.Bool("continue-on-error", false, "keep partial records for failed stars instead of aborting")
	f.Bool("reset", false, "clear the store before populating")
	_ = cmd.MarkFlagRequired("definitions")

	bindFlags(v, f.Lookup, map[string]string{
		"populate.delay":             "delay",
		"populate.skip_existing":     "skip-existing",
		"populate.continue_on_error": "continue-on-error",
		"populate.reset":             "reset",
	})
	return cmd
}
