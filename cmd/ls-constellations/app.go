package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/litescript/ls-constellations/internal/config"
	"github.com/litescript/ls-constellations/internal/entry"
	"github.com/litescript/ls-constellations/internal/gaia"
	"github.com/litescript/ls-constellations/internal/resolver"
	"github.com/litescript/ls-constellations/internal/simbad"
	"github.com/litescript/ls-constellations/internal/store"
	"github.com/litescript/ls-constellations/internal/tap"
	"github.com/litescript/ls-constellations/internal/ui"
)

func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, flag := range keys {
		if f := lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// tapClient builds a paced, breaker-guarded client for one service.
func (a *app) tapClient(name, url string) *tap.Client {
	q := a.cfg.Query
	limit := rate.Inf
	if q.Interval > 0 {
		limit = rate.Every(q.Interval)
	}
	log := a.log.Named(name)

	return tap.NewClient(
		tap.WithURL(url),
		tap.WithTimeout(q.Timeout),
		tap.WithUserAgent(q.UserAgent),
		tap.WithLimiter(rate.NewLimiter(limit, 1)),
		tap.WithMaxRetries(q.MaxRetries),
		tap.WithBreaker(tap.NewBreaker(name, tap.BreakerConfig{
			MaxFailures: a.cfg.Breaker.MaxFailures,
			Timeout:     a.cfg.Breaker.Timeout,
		}, log)),
		tap.WithLogger(log),
	)
}

// newResolver wires SIMBAD, the optional Gaia cross-match and the manual
// entry providers. Prompts read from in and write to out.
func (a *app) newResolver(in *os.File, out *os.File) (*resolver.Resolver, error) {
	sim := simbad.New(a.tapClient("simbad", a.cfg.Simbad.URL), a.log.Named("simbad"))

	opts := []resolver.Option{
		resolver.WithParallax(sim),
		resolver.WithLogger(a.log.Named("resolver")),
		resolver.WithMetrics(a.metrics),
	}
	if a.cfg.Gaia.URL != "" {
		opts = append(opts, resolver.WithCrossMatch(sim, gaia.New(a.tapClient("gaia", a.cfg.Gaia.URL))))
	}

	missing, err := a.missingData(in, out)
	if err != nil {
		return nil, err
	}
	if missing != nil {
		opts = append(opts, resolver.WithMissingData(missing))
	}
	return resolver.New(sim, opts...), nil
}

func (a *app) missingData(in *os.File, out *os.File) (resolver.MissingDataProvider, error) {
	var chain entry.Chain
	if path := a.cfg.Entry.Answers; path != "" {
		scripted, err := entry.LoadScripted(path)
		if err != nil {
			return nil, err
		}
		a.log.Info("loaded %d manual answers from %s", scripted.Len(), path)
		chain = append(chain, scripted)
	}

	mode := entryMode(a.cfg.Entry.Mode, isTerminal(in), isTerminal(out))
	if p := interactiveProvider(mode, in, out); p != nil {
		chain = append(chain, p)
	}
	a.log.Debug("manual entry mode: %s", mode)

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}

// entryMode resolves auto to form on a full terminal, prompt when only the
// input is a terminal, and none otherwise.
func entryMode(mode string, inTTY, outTTY bool) string {
	if mode != config.EntryAuto {
		return mode
	}
	switch {
	case inTTY && outTTY:
		return config.EntryForm
	case inTTY:
		return config.EntryPrompt
	default:
		return config.EntryNone
	}
}

func interactiveProvider(mode string, in io.Reader, out io.Writer) resolver.MissingDataProvider {
	switch mode {
	case config.EntryForm:
		return ui.NewFormProvider(in, out)
	case config.EntryPrompt:
		return entry.NewPrompt(in, out)
	default:
		return nil
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	a.log.Debug("store: %s", a.cfg.Store.Driver)
	return st, nil
}

func closeStore(a *app, st store.Store) {
	if err := st.Close(); err != nil {
		a.log.Warn("close store: %v", err)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
