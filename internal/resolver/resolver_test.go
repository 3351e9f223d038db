package resolver

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/litescript/ls-constellations/internal/designation"
)

type fakePrimary struct {
	a     Astrometry
	found bool
	err   error
	calls int
}

func (f *fakePrimary) Astrometry(_ context.Context, _ string) (Astrometry, bool, error) {
	f.calls++
	return f.a, f.found, f.err
}

type fakeMatcher struct {
	id    string
	found bool
	err   error
	calls int
}

func (f *fakeMatcher) CrossID(_ context.Context, _ string) (string, bool, error) {
	f.calls++
	return f.id, f.found, f.err
}

type fakeCrossDistance struct {
	d     float64
	found bool
	err   error
	calls int
	gotID string
}

func (f *fakeCrossDistance) Distance(_ context.Context, id string) (float64, bool, error) {
	f.calls++
	f.gotID = id
	return f.d, f.found, f.err
}

type fakeParallax struct {
	mas   float64
	found bool
	err   error
	calls int
}

func (f *fakeParallax) Parallax(_ context.Context, _ string) (float64, bool, error) {
	f.calls++
	return f.mas, f.found, f.err
}

type fakeProvider struct {
	pos           ManualPosition
	posErr        error
	dist          float64
	distErr       error
	positionCalls int
	distanceCalls int
}

func (f *fakeProvider) Position(_ context.Context, _ string) (ManualPosition, error) {
	f.positionCalls++
	return f.pos, f.posErr
}

func (f *fakeProvider) Distance(_ context.Context, _ string) (float64, error) {
	f.distanceCalls++
	return f.dist, f.distErr
}

type fakeRecorder struct {
	outcomes []string
	sources  []string
}

func (f *fakeRecorder) ObserveResolution(o string)     { f.outcomes = append(f.outcomes, o) }
func (f *fakeRecorder) ObserveDistanceSource(s string) { f.sources = append(f.sources, s) }

func sirius(dist *float64) Astrometry {
	return Astrometry{
		CatalogID: "* alf CMa",
		RA:        101.28715533,
		Dec:       -16.71611586,
		PMRA:      -546.01,
		PMDec:     -1223.07,
		Distance:  dist,
	}
}

func checkConsistent(t *testing.T, rec StarRecord) {
	t.Helper()
	if err := rec.Validate(); err != nil {
		t.Errorf("inconsistent record: %v", err)
	}
}

func TestResolve_CatalogDistanceWins(t *testing.T) {
	primary := &fakePrimary{a: sirius(ptr(2.64)), found: true}
	matcher := &fakeMatcher{id: "2947050466531873024", found: true}
	cross := &fakeCrossDistance{d: 2.7, found: true}
	plx := &fakeParallax{mas: 379.21, found: true}
	prov := &fakeProvider{dist: 9}

	r := New(primary,
		WithCrossMatch(matcher, cross),
		WithParallax(plx),
		WithMissingData(prov),
	)

	res, err := r.Resolve(context.Background(), "alf CMa")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rec := res.Record
	if rec.Distance == nil || *rec.Distance != 2.64 {
		t.Fatalf("distance = %v, want 2.64", rec.Distance)
	}
	if rec.DistanceEstimated {
		t.Error("catalog distance marked as estimated")
	}
	if res.DistanceSource != DistanceCatalog {
		t.Errorf("DistanceSource = %v, want catalog", res.DistanceSource)
	}
	if matcher.calls+cross.calls+plx.calls+prov.distanceCalls != 0 {
		t.Error("fallbacks consulted although the catalog supplied a distance")
	}
	if rec.Name != "Alpha CMa" {
		t.Errorf("Name = %q, want %q", rec.Name, "Alpha CMa")
	}
	if len(rec.Cartesian) != 3 || len(rec.CartesianVelocity) != 3 {
		t.Fatalf("cartesian = %v, velocity = %v", rec.Cartesian, rec.CartesianVelocity)
	}
	norm := math.Sqrt(rec.Cartesian[0]*rec.Cartesian[0] + rec.Cartesian[1]*rec.Cartesian[1] + rec.Cartesian[2]*rec.Cartesian[2])
	if math.Abs(norm-2.64) > 1e-9 {
		t.Errorf("|cartesian| = %v, want 2.64", norm)
	}
	checkConsistent(t, rec)

	wantTrace := []State{StateStart, StatePositionKnown, StateDone}
	if !reflect.DeepEqual(res.Trace, wantTrace) {
		t.Errorf("Trace = %v, want %v", res.Trace, wantTrace)
	}
}

func TestResolve_DistanceFallbackOrder(t *testing.T) {
	tests := []struct {
		name          string
		matcher       *fakeMatcher
		cross         *fakeCrossDistance
		plx           *fakeParallax
		prov          *fakeProvider
		wantSource    DistanceSource
		wantDistance  float64
		wantEstimated bool
	}{
		{
			name:          "cross-match",
			matcher:       &fakeMatcher{id: "42", found: true},
			cross:         &fakeCrossDistance{d: 2.66, found: true},
			plx:           &fakeParallax{mas: 379.21, found: true},
			prov:          &fakeProvider{dist: 9},
			wantSource:    DistanceCrossMatch,
			wantDistance:  2.66,
			wantEstimated: false,
		},
		{
			name:          "no cross id falls to parallax",
			matcher:       &fakeMatcher{},
			cross:         &fakeCrossDistance{d: 2.66, found: true},
			plx:           &fakeParallax{mas: 379.21, found: true},
			prov:          &fakeProvider{dist: 9},
			wantSource:    DistanceParallax,
			wantDistance:  1000 / 379.21,
			wantEstimated: true,
		},
		{
			name:          "cross distance missing falls to parallax",
			matcher:       &fakeMatcher{id: "42", found: true},
			cross:         &fakeCrossDistance{},
			plx:           &fakeParallax{mas: 379.21, found: true},
			prov:          &fakeProvider{dist: 9},
			wantSource:    DistanceParallax,
			wantDistance:  1000 / 379.21,
			wantEstimated: true,
		},
		{
			name:          "negative parallax falls to operator",
			matcher:       &fakeMatcher{},
			cross:         &fakeCrossDistance{},
			plx:           &fakeParallax{mas: -0.4, found: true},
			prov:          &fakeProvider{dist: 310},
			wantSource:    DistanceManual,
			wantDistance:  310,
			wantEstimated: true,
		},
		{
			name:          "everything missing falls to operator",
			matcher:       &fakeMatcher{},
			cross:         &fakeCrossDistance{},
			plx:           &fakeParallax{},
			prov:          &fakeProvider{dist: 310},
			wantSource:    DistanceManual,
			wantDistance:  310,
			wantEstimated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&fakePrimary{a: sirius(nil), found: true},
				WithCrossMatch(tt.matcher, tt.cross),
				WithParallax(tt.plx),
				WithMissingData(tt.prov),
			)

			res, err := r.Resolve(context.Background(), "alf CMa")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.DistanceSource != tt.wantSource {
				t.Errorf("DistanceSource = %v, want %v", res.DistanceSource, tt.wantSource)
			}
			if res.Record.Distance == nil || math.Abs(*res.Record.Distance-tt.wantDistance) > 1e-12 {
				t.Errorf("distance = %v, want %v", res.Record.Distance, tt.wantDistance)
			}
			if res.Record.DistanceEstimated != tt.wantEstimated {
				t.Errorf("DistanceEstimated = %v, want %v", res.Record.DistanceEstimated, tt.wantEstimated)
			}
			checkConsistent(t, res.Record)
		})
	}
}

func TestResolve_CrossMatchPassesID(t *testing.T) {
	cross := &fakeCrossDistance{d: 5, found: true}
	r := New(&fakePrimary{a: sirius(nil), found: true},
		WithCrossMatch(&fakeMatcher{id: "123456", found: true}, cross))

	if _, err := r.Resolve(context.Background(), "alf CMa"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cross.gotID != "123456" {
		t.Errorf("cross distance queried with %q, want %q", cross.gotID, "123456")
	}
}

func TestResolve_ParallaxOnly(t *testing.T) {
	r := New(&fakePrimary{a: sirius(nil), found: true},
		WithParallax(&fakeParallax{mas: 379.21, found: true}))

	res, err := r.Resolve(context.Background(), "alf CMa")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := *res.Record.Distance; math.Abs(got-2.637) > 1e-3 {
		t.Errorf("distance = %v, want ~2.637", got)
	}
	if !res.Record.DistanceEstimated {
		t.Error("parallax distance not marked estimated")
	}
}

func TestResolve_NotFoundUsesManualPosition(t *testing.T) {
	prov := &fakeProvider{pos: ManualPosition{RA: 90, Dec: 0, PMRA: 10, PMDec: -5, Distance: 1}}
	plx := &fakeParallax{mas: 100, found: true}
	r := New(&fakePrimary{}, WithParallax(plx), WithMissingData(prov))

	res, err := r.Resolve(context.Background(), "Nova Nowhere")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rec := res.Record
	if rec.Name != "Nova Nowhere" {
		t.Errorf("Name = %q", rec.Name)
	}
	if !rec.DistanceEstimated || res.DistanceSource != DistanceManual {
		t.Errorf("manual entry: estimated=%v source=%v", rec.DistanceEstimated, res.DistanceSource)
	}
	if plx.calls != 0 || prov.distanceCalls != 0 {
		t.Error("distance fallbacks consulted after manual position entry")
	}
	want := []float64{0, 0, -1}
	for i := range want {
		if math.Abs(rec.Cartesian[i]-want[i]) > 1e-12 {
			t.Fatalf("cartesian = %v, want %v", rec.Cartesian, want)
		}
	}

	wantTrace := []State{StateStart, StateNeedsManualPosition, StateDone}
	if !reflect.DeepEqual(res.Trace, wantTrace) {
		t.Errorf("Trace = %v, want %v", res.Trace, wantTrace)
	}
	checkConsistent(t, rec)
}

func TestResolve_Unresolved(t *testing.T) {
	t.Run("no distance and no provider", func(t *testing.T) {
		plx := &fakeParallax{}
		r := New(&fakePrimary{a: sirius(nil), found: true}, WithParallax(plx))

		res, err := r.Resolve(context.Background(), "alf CMa")
		if !errors.Is(err, ErrUnresolved) {
			t.Fatalf("err = %v, want ErrUnresolved", err)
		}
		if plx.calls != 1 {
			t.Errorf("parallax calls = %d, want 1", plx.calls)
		}
		if res.Record.Distance != nil || res.Record.Cartesian != nil {
			t.Errorf("unresolved record has distance or cartesian: %+v", res.Record)
		}
		if res.Record.RA == nil {
			t.Error("unresolved record lost its position")
		}
		checkConsistent(t, res.Record)
	})

	t.Run("not found and no provider", func(t *testing.T) {
		r := New(&fakePrimary{})
		res, err := r.Resolve(context.Background(), "Nova Nowhere")
		if !errors.Is(err, ErrUnresolved) {
			t.Fatalf("err = %v, want ErrUnresolved", err)
		}
		if res.Record.RA != nil || res.Record.Cartesian != nil {
			t.Errorf("record = %+v, want name only", res.Record)
		}
	})
}

func TestResolve_IncompleteEntry(t *testing.T) {
	operatorErr := errors.New("operator typed 'abc'")

	tests := []struct {
		name    string
		primary *fakePrimary
		prov    *fakeProvider
	}{
		{"position error", &fakePrimary{}, &fakeProvider{posErr: operatorErr}},
		{"position out of range", &fakePrimary{}, &fakeProvider{pos: ManualPosition{RA: 400, Dec: 0, Distance: 1}}},
		{"position zero distance", &fakePrimary{}, &fakeProvider{pos: ManualPosition{RA: 10, Dec: 0}}},
		{"distance error", &fakePrimary{a: sirius(nil), found: true}, &fakeProvider{distErr: operatorErr}},
		{"distance not positive", &fakePrimary{a: sirius(nil), found: true}, &fakeProvider{dist: -3}},
		{"distance NaN", &fakePrimary{a: sirius(nil), found: true}, &fakeProvider{dist: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.primary, WithMissingData(tt.prov))
			res, err := r.Resolve(context.Background(), "alf CMa")
			if !errors.Is(err, ErrIncompleteEntry) {
				t.Fatalf("err = %v, want ErrIncompleteEntry", err)
			}
			if res.Record.Cartesian != nil {
				t.Error("failed entry produced a cartesian position")
			}
			checkConsistent(t, res.Record)
		})
	}
}

func TestResolve_IncompleteEntryKeepsCause(t *testing.T) {
	cause := errors.New("stdin closed")
	r := New(&fakePrimary{}, WithMissingData(&fakeProvider{posErr: cause}))

	_, err := r.Resolve(context.Background(), "x")
	if !errors.Is(err, cause) || !errors.Is(err, ErrIncompleteEntry) {
		t.Errorf("err = %v, want both cause and ErrIncompleteEntry", err)
	}
}

func TestResolve_SourceErrorsAreFatal(t *testing.T) {
	transport := errors.New("connection refused")

	tests := []struct {
		name string
		opts []Option
		prim *fakePrimary
	}{
		{"primary", nil, &fakePrimary{err: transport}},
		{"cross id", []Option{WithCrossMatch(&fakeMatcher{err: transport}, &fakeCrossDistance{})}, &fakePrimary{a: sirius(nil), found: true}},
		{"cross distance", []Option{WithCrossMatch(&fakeMatcher{id: "1", found: true}, &fakeCrossDistance{err: transport})}, &fakePrimary{a: sirius(nil), found: true}},
		{"parallax", []Option{WithParallax(&fakeParallax{err: transport})}, &fakePrimary{a: sirius(nil), found: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := &fakeProvider{dist: 5, pos: ManualPosition{RA: 1, Dec: 1, Distance: 1}}
			opts := append(tt.opts, WithMissingData(prov))
			_, err := New(tt.prim, opts...).Resolve(context.Background(), "alf CMa")
			if !errors.Is(err, transport) {
				t.Fatalf("err = %v, want transport error", err)
			}
			if prov.positionCalls+prov.distanceCalls != 0 {
				t.Error("operator asked after a transport failure")
			}
		})
	}
}

func TestResolve_AmbiguousDesignation(t *testing.T) {
	a := sirius(ptr(2.64))
	a.CatalogID = "* xyz01 CMa"
	rec := &fakeRecorder{}
	r := New(&fakePrimary{a: a, found: true}, WithMetrics(rec))

	res, err := r.Resolve(context.Background(), "xyz1 CMa")
	if !errors.Is(err, designation.ErrAmbiguousDesignation) {
		t.Fatalf("err = %v, want ErrAmbiguousDesignation", err)
	}
	if res.Record.Name != "xyz1 CMa" {
		t.Errorf("Name = %q, want original query", res.Record.Name)
	}
	if res.Record.Distance != nil || res.Record.Cartesian != nil {
		t.Error("ambiguous star kept distance or cartesian")
	}
	checkConsistent(t, res.Record)
	if !reflect.DeepEqual(rec.outcomes, []string{OutcomeFailed}) {
		t.Errorf("outcomes = %v", rec.outcomes)
	}
}

func TestResolve_Metrics(t *testing.T) {
	rec := &fakeRecorder{}
	r := New(&fakePrimary{a: sirius(nil), found: true},
		WithParallax(&fakeParallax{mas: 379.21, found: true}),
		WithMetrics(rec))

	if _, err := r.Resolve(context.Background(), "alf CMa"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(rec.outcomes, []string{OutcomeResolved}) {
		t.Errorf("outcomes = %v", rec.outcomes)
	}
	if !reflect.DeepEqual(rec.sources, []string{"parallax"}) {
		t.Errorf("sources = %v", rec.sources)
	}
}

func TestResolve_CompletenessInvariant(t *testing.T) {
	// Every combination of source availability must yield a consistent record.
	for _, found := range []bool{true, false} {
		for _, catalog := range []bool{true, false} {
			for _, plxFound := range []bool{true, false} {
				for _, withProvider := range []bool{true, false} {
					var dist *float64
					if catalog {
						dist = ptr(8.6)
					}
					opts := []Option{WithParallax(&fakeParallax{mas: 10, found: plxFound})}
					if withProvider {
						opts = append(opts, WithMissingData(&fakeProvider{
							pos:  ManualPosition{RA: 200, Dec: -45, Distance: 20},
							dist: 20,
						}))
					}
					res, _ := New(&fakePrimary{a: sirius(dist), found: found}, opts...).Resolve(context.Background(), "alf CMa")

					rec := res.Record
					located := rec.RA != nil && rec.Dec != nil && rec.Distance != nil
					if located != (rec.Cartesian != nil) {
						t.Errorf("found=%v catalog=%v plx=%v provider=%v: located=%v cartesian=%v",
							found, catalog, plxFound, withProvider, located, rec.Cartesian)
					}
				}
			}
		}
	}
}

func TestEstimateDistanceByParallax(t *testing.T) {
	tests := []struct {
		name   string
		src    *fakeParallax
		want   float64
		wantOK bool
	}{
		{"sirius", &fakeParallax{mas: 379.21, found: true}, 1000 / 379.21, true},
		{"not found", &fakeParallax{}, 0, false},
		{"zero", &fakeParallax{mas: 0, found: true}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := EstimateDistanceByParallax(context.Background(), tt.src, "x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
