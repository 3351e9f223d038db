// Package resolver turns a star identifier into a StarRecord by walking an
// ordered chain of sources: the primary catalog, an optional cross-match into a
// secondary catalog, a parallax estimate, and finally the operator.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/designation"
	"github.com/litescript/ls-constellations/internal/logging"
)

var (
	// ErrUnresolved is returned with a partial record when the chain ran out
	// of sources before a distance (or position) was found.
	ErrUnresolved = errors.New("star unresolved")

	// ErrIncompleteEntry is returned when manual entry fails or yields
	// unusable values.
	ErrIncompleteEntry = errors.New("incomplete manual entry")
)

// PrimarySource answers position, proper motion and, optionally, distance in
// one query. found is false when the source has no record.
type PrimarySource interface {
	Astrometry(ctx context.Context, identifier string) (a Astrometry, found bool, err error)
}

// CrossMatcher maps an identifier to the secondary catalog's identifier.
type CrossMatcher interface {
	CrossID(ctx context.Context, identifier string) (id string, found bool, err error)
}

// CrossDistanceSource returns a catalog distance in parsecs for a secondary
// catalog identifier.
type CrossDistanceSource interface {
	Distance(ctx context.Context, crossID string) (pc float64, found bool, err error)
}

// ParallaxSource returns a parallax in milliarcseconds.
type ParallaxSource interface {
	Parallax(ctx context.Context, identifier string) (mas float64, found bool, err error)
}

// MissingDataProvider supplies values no source could provide, typically by
// asking the operator.
type MissingDataProvider interface {
	Position(ctx context.Context, identifier string) (ManualPosition, error)
	Distance(ctx context.Context, identifier string) (float64, error)
}

// Recorder receives resolution outcomes for metrics.
type Recorder interface {
	ObserveResolution(outcome string)
	ObserveDistanceSource(source string)
}

// Outcomes passed to Recorder.ObserveResolution.
const (
	OutcomeResolved   = "resolved"
	OutcomeUnresolved = "unresolved"
	OutcomeFailed     = "failed"
)

// Result is the outcome of one resolution.
type Result struct {
	Record         StarRecord
	DistanceSource DistanceSource
	// Trace lists the states visited, in order.
	Trace []State
}

// Resolver drives the fallback state machine. It holds no per-star state
// and is safe for sequential reuse.
type Resolver struct {
	primary   PrimarySource
	matcher   CrossMatcher
	crossDist CrossDistanceSource
	parallax  ParallaxSource
	missing   MissingDataProvider
	log       *logging.Logger
	metrics   Recorder
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCrossMatch enables the secondary catalog distance lookup.
func WithCrossMatch(m CrossMatcher, d CrossDistanceSource) Option {
	return func(r *Resolver) {
		r.matcher = m
		r.crossDist = d
	}
}

// WithParallax enables the parallax distance estimate.
func WithParallax(p ParallaxSource) Option {
	return func(r *Resolver) {
		r.parallax = p
	}
}

// WithMissingData sets the last-resort provider.
func WithMissingData(p MissingDataProvider) Option {
	return func(r *Resolver) {
		r.missing = p
	}
}

// WithLogger sets the logger for progress notices.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// WithMetrics sets the outcome recorder.
func WithMetrics(m Recorder) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a Resolver around the primary source.
func New(primary PrimarySource, opts ...Option) *Resolver {
	r := &Resolver{primary: primary}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	return r
}

// resolution is the record under construction for one star.
type resolution struct {
	identifier string
	record     StarRecord
	source     DistanceSource
	trace      []State

	// unresolved is reported after Done has run.
	unresolved error
}

type stateFn func(ctx context.Context, res *resolution) (State, error)

func (r *Resolver) handlerFor(s State) stateFn {
	switch s {
	case StateStart:
		return r.start
	case StateNeedsManualPosition:
		return r.needsManualPosition
	case StatePositionKnown:
		return r.positionKnown
	default:
		return r.done
	}
}

// Resolve resolves one identifier. Missing data is absorbed by the fallback
// chain. Source transport failures, ErrAmbiguousDesignation and
// ErrIncompleteEntry are returned as errors; ErrUnresolved is returned when
// no source supplied the distance. The Result always holds a consistent
// record, partial on error.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Result, error) {
	res := &resolution{
		identifier: identifier,
		record:     StarRecord{Name: identifier},
	}

	state := StateStart
	for {
		res.trace = append(res.trace, state)
		next, err := r.handlerFor(state)(ctx, res)
		if err != nil {
			r.observe(OutcomeFailed, res)
			return res.result(), err
		}
		if state == StateDone {
			break
		}
		state = next
	}

	if res.unresolved != nil {
		r.observe(OutcomeUnresolved, res)
		return res.result(), res.unresolved
	}
	r.observe(OutcomeResolved, res)
	return res.result(), nil
}

func (res *resolution) result() Result {
	rec := res.record
	if rec.Cartesian == nil && rec.Distance != nil {
		// Failed before Done; keep the record consistent.
		rec.Distance = nil
		rec.DistanceEstimated = false
	}
	src := res.source
	if rec.Distance == nil {
		src = DistanceNone
	}
	return Result{Record: rec, DistanceSource: src, Trace: res.trace}
}

func (r *Resolver) observe(outcome string, res *resolution) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveResolution(outcome)
	if outcome != OutcomeFailed {
		r.metrics.ObserveDistanceSource(res.source.String())
	}
}

func (r *Resolver) start(ctx context.Context, res *resolution) (State, error) {
	a, found, err := r.primary.Astrometry(ctx, res.identifier)
	if err != nil {
		return StateDone, fmt.Errorf("resolve %q: primary source: %w", res.identifier, err)
	}
	if !found {
		r.log.Info("%s: not found in primary source", res.identifier)
		return StateNeedsManualPosition, nil
	}

	res.record.RA = ptr(a.RA)
	res.record.Dec = ptr(a.Dec)
	res.record.PMRA = ptr(a.PMRA)
	res.record.PMDec = ptr(a.PMDec)

	d, err := designation.Parse(a.CatalogID, res.identifier)
	if err != nil {
		r.log.Error("%s: %v", res.identifier, err)
		return StateDone, fmt.Errorf("resolve %q: %w", res.identifier, err)
	}
	if d.Note != "" {
		r.log.Warn("%s: %s", res.identifier, d.Note)
	}
	res.record.Name = d.String()

	if a.Distance != nil && *a.Distance > 0 && finite(*a.Distance) {
		res.setDistance(*a.Distance, DistanceCatalog)
		r.log.Info("%s: position and distance from primary source (%s)", res.identifier, a.CatalogID)
	} else {
		r.log.Info("%s: position from primary source (%s)", res.identifier, a.CatalogID)
	}
	return StatePositionKnown, nil
}

func (r *Resolver) needsManualPosition(ctx context.Context, res *resolution) (State, error) {
	if r.missing == nil {
		r.log.Warn("%s: no position found and no manual entry available", res.identifier)
		res.unresolved = fmt.Errorf("resolve %q: no position: %w", res.identifier, ErrUnresolved)
		return StateDone, nil
	}

	p, err := r.missing.Position(ctx, res.identifier)
	if err != nil {
		return StateDone, entryError(res.identifier, err)
	}
	if err := p.validate(); err != nil {
		return StateDone, fmt.Errorf("resolve %q: %w: %v", res.identifier, ErrIncompleteEntry, err)
	}

	res.record.RA = ptr(p.RA)
	res.record.Dec = ptr(p.Dec)
	res.record.PMRA = ptr(p.PMRA)
	res.record.PMDec = ptr(p.PMDec)
	res.setDistance(p.Distance, DistanceManual)
	r.log.Info("%s: position entered manually", res.identifier)
	return StateDone, nil
}

func (r *Resolver) positionKnown(ctx context.Context, res *resolution) (State, error) {
	if res.record.Distance != nil {
		return StateDone, nil
	}

	if r.matcher != nil && r.crossDist != nil {
		d, ok, err := r.crossMatchDistance(ctx, res.identifier)
		if err != nil {
			return StateDone, fmt.Errorf("resolve %q: cross-match: %w", res.identifier, err)
		}
		if ok {
			res.setDistance(d, DistanceCrossMatch)
			r.log.Info("%s: distance from cross-match", res.identifier)
			return StateDone, nil
		}
	}

	if r.parallax != nil {
		d, ok, err := EstimateDistanceByParallax(ctx, r.parallax, res.identifier)
		if err != nil {
			return StateDone, fmt.Errorf("resolve %q: parallax: %w", res.identifier, err)
		}
		if ok {
			res.setDistance(d, DistanceParallax)
			r.log.Info("%s: distance estimated from parallax", res.identifier)
			return StateDone, nil
		}
	}

	r.log.Warn("%s: no distance found", res.identifier)
	if r.missing == nil {
		res.unresolved = fmt.Errorf("resolve %q: no distance: %w", res.identifier, ErrUnresolved)
		return StateDone, nil
	}

	d, err := r.missing.Distance(ctx, res.identifier)
	if err != nil {
		return StateDone, entryError(res.identifier, err)
	}
	if !finite(d) || d <= 0 {
		return StateDone, fmt.Errorf("resolve %q: %w: distance %v is not positive", res.identifier, ErrIncompleteEntry, d)
	}
	res.setDistance(d, DistanceManual)
	r.log.Info("%s: distance entered manually", res.identifier)
	return StateDone, nil
}

func (r *Resolver) done(_ context.Context, res *resolution) (State, error) {
	rec := &res.record
	if rec.Distance == nil || rec.RA == nil || rec.Dec == nil {
		return StateDone, nil
	}

	var pmRA, pmDec float64
	if rec.PMRA != nil {
		pmRA = *rec.PMRA
	}
	if rec.PMDec != nil {
		pmDec = *rec.PMDec
	}
	pos, vel := astro.ToCartesian(*rec.RA, *rec.Dec, *rec.Distance, pmRA, pmDec)
	rec.Cartesian = pos.Slice()
	rec.CartesianVelocity = vel.Slice()
	return StateDone, nil
}

func (r *Resolver) crossMatchDistance(ctx context.Context, identifier string) (float64, bool, error) {
	id, found, err := r.matcher.CrossID(ctx, identifier)
	if err != nil || !found {
		return 0, false, err
	}
	d, found, err := r.crossDist.Distance(ctx, id)
	if err != nil || !found || !finite(d) || d <= 0 {
		return 0, false, err
	}
	return d, true, nil
}

// EstimateDistanceByParallax asks src for a parallax and inverts it into
// parsecs. Missing or non-positive parallaxes report false.
func EstimateDistanceByParallax(ctx context.Context, src ParallaxSource, identifier string) (float64, bool, error) {
	mas, found, err := src.Parallax(ctx, identifier)
	if err != nil || !found {
		return 0, false, err
	}
	d, ok := astro.ParallaxToDistance(mas)
	return d, ok, nil
}

func (res *resolution) setDistance(d float64, src DistanceSource) {
	res.record.Distance = ptr(d)
	res.record.DistanceEstimated = src.Estimated()
	res.source = src
}

func entryError(identifier string, err error) error {
	if errors.Is(err, ErrIncompleteEntry) {
		return fmt.Errorf("resolve %q: %w", identifier, err)
	}
	return fmt.Errorf("resolve %q: %w: %w", identifier, ErrIncompleteEntry, err)
}
