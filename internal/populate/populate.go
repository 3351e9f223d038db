// Package populate resolves every star of a set of constellation
// definitions and writes the results to a store.
package populate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-constellations/internal/constellation"
	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/resolver"
	"github.com/litescript/ls-constellations/internal/store"
)

// DefaultDelay is the pause between consecutive star resolutions.
const DefaultDelay = time.Second

// Resolver resolves a single star identifier.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (resolver.Result, error)
}

// Config controls a population run.
type Config struct {
	// Delay between stars. Zero disables the pause.
	Delay time.Duration
	// SkipExisting leaves constellations already in the store untouched.
	SkipExisting bool
	// Reset clears the store before the run.
	Reset bool
	// ContinueOnError keeps a failed star's partial record and moves on
	// instead of aborting the run.
	ContinueOnError bool
}

// DefaultConfig returns the settings used by the populate command.
func DefaultConfig() Config {
	return Config{Delay: DefaultDelay}
}

// StarFailure records one star that did not resolve cleanly.
type StarFailure struct {
	Constellation string
	Identifier    string
	Err           error
}

func (f StarFailure) Error() string {
	return fmt.Sprintf("%s / %s: %v", f.Constellation, f.Identifier, f.Err)
}

func (f StarFailure) Unwrap() error {
	return f.Err
}

// Report summarizes a run.
type Report struct {
	Constellations int
	Stars          int
	Failed         []StarFailure
	Skipped        []string
}

// Service runs population jobs.
type Service struct {
	resolver Resolver
	store    store.Store
	cfg      Config
	log      *logging.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(r Resolver, s store.Store, cfg Config, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{resolver: r, store: s, cfg: cfg, log: log}
}

// Run resolves and stores each definition in order. On an aborting error the
// report covers the work done so far; constellations already upserted stay
// in the store.
func (s *Service) Run(ctx context.Context, defs []constellation.Definition) (Report, error) {
	var rep Report

	if s.cfg.Reset {
		if err := s.store.Reset(ctx); err != nil {
			return rep, fmt.Errorf("populate: reset store: %w", err)
		}
		s.log.Info("store reset")
	}

	first := true
	for _, def := range defs {
		if s.cfg.SkipExisting && !s.cfg.Reset {
			exists, err := s.store.Exists(ctx, def.Name)
			if err != nil {
				return rep, fmt.Errorf("populate: %w", err)
			}
			if exists {
				s.log.Info("skipping %s: already stored", def.Name)
				rep.Skipped = append(rep.Skipped, def.Name)
				continue
			}
		}

		c := &store.Constellation{
			Name:             def.Name,
			GeneralInfo:      def.Info,
			Connections:      def.Connections,
			AstronomicalData: make([]resolver.StarRecord, 0, len(def.ShapeStars)),
		}

		for _, id := range def.ShapeStars {
			if !first {
				if err := s.wait(ctx); err != nil {
					return rep, err
				}
			}
			first = false

			res, err := s.resolver.Resolve(ctx, id)
			rep.Stars++
			if err != nil {
				if ctx.Err() != nil {
					return rep, fmt.Errorf("populate: %w", ctx.Err())
				}
				failure := StarFailure{Constellation: def.Name, Identifier: id, Err: err}
				rep.Failed = append(rep.Failed, failure)
				if !s.cfg.ContinueOnError {
					return rep, fmt.Errorf("populate: %w", failure)
				}
				s.log.Warn("%v", failure)
			} else {
				s.log.Debug("%s: resolved %s (distance: %s)", def.Name, id, res.DistanceSource)
			}
			c.AstronomicalData = append(c.AstronomicalData, res.Record)
		}

		if err := s.store.Upsert(ctx, c); err != nil {
			return rep, fmt.Errorf("populate: store %s: %w", def.Name, err)
		}
		rep.Constellations++
		s.log.Info("stored %s (%d stars)", def.Name, len(c.AstronomicalData))
	}
	return rep, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
		return nil
	}
	t := time.NewTimer(s.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("populate: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// Failures joins the report's failures into one error, or nil.
func (r Report) Failures() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}
