package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-constellations/internal/config"
	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/metrics"
)

// app carries what every subcommand needs once flags and config are read.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	v := viper.GetViper()

	root := &cobra.Command{
		Use:   "ls-constellations",
		Short: "Resolve constellation stars into 3D render coordinates",
		Long: "ls-constellations looks up each star of a constellation in SIMBAD, fills in missing " +
			"distances from Gaia, parallax or manual entry, and converts the result to the " +
			"renderer's cartesian frame.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, v)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .ls-constellations.yaml or .toml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("simbad-url", "", "SIMBAD TAP sync endpoint")
	pf.String("gaia-url", "", "Gaia TAP sync endpoint (empty disables the cross-match)")
	pf.String("store-driver", "", "store backend: sqlite or postgres")
	pf.String("store-dsn", "", "store path or connection string")
	pf.String("entry", "", "manual entry mode: auto, prompt, form or none")
	pf.String("answers", "", "YAML file of pre-recorded manual answers")

	bindFlags(v, pf.Lookup, map[string]string{
		"log_level":     "log-level",
		"simbad.url":    "simbad-url",
		"gaia.url":      "gaia-url",
		"store.driver":  "store-driver",
		"store.dsn":     "store-dsn",
		"entry.mode":    "entry",
		"entry.answers": "answers",
	})

	root.AddCommand(
		newResolveCmd(a),
		newPopulateCmd(a, v),
		newServeCmd(a, v),
		newNormalizeCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, v *viper.Viper) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Level())
	a.metrics = metrics.New()
	if used := v.ConfigFileUsed(); used != "" {
		a.log.Debug("config file: %s", used)
	}
	return nil
}
