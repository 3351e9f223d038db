package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-constellations/internal/api"
)

func newServeCmd(a *app, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored constellations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(a, st)

			opts := []api.Option{
				api.WithLogger(a.log.Named("api")),
				api.WithMetrics(a.metrics),
				api.WithTrustProxy(a.cfg.Server.TrustProxy),
			}
			if sc := a.cfg.Server; sc.Rate > 0 {
				rl := api.NewRateLimiter(sc.Rate, max(sc.Burst, 1))
				defer rl.Stop()
				opts = append(opts, api.WithRateLimiter(rl))
			}

			return api.NewServer(st, opts...).ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.Float64("rate", 10, "requests per second per client (0 disables limiting)")
	f.Int("burst", 20, "request burst per client")
	f.Bool("trust-proxy", false, "key clients by X-Forwarded-For (only behind a reverse proxy)")
	bindFlags(v, f.Lookup, map[string]string{
		"server.addr":        "addr",
		"server.rate":        "rate",
		"server.burst":       "burst",
		"server.trust_proxy": "trust-proxy",
	})
	return cmd
}
