package simbad

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/litescript/ls-constellations/internal/tap"
)

// fakeQuerier returns canned tables in order and records the ADQL it saw.
type fakeQuerier struct {
	tables  []*tap.Table
	err     error
	queries []string
	opts    []tap.QueryOptions
}

func (f *fakeQuerier) Query(_ context.Context, adql string, opts tap.QueryOptions) (*tap.Table, error) {
	f.queries = append(f.queries, adql)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.tables) == 0 {
		return &tap.Table{}, nil
	}
	t := f.tables[0]
	f.tables = f.tables[1:]
	return t, nil
}

func table(cols []string, rows ...[]any) *tap.Table {
	t := &tap.Table{Rows: rows}
	for _, c := range cols {
		t.Columns = append(t.Columns, tap.Column{Name: c})
	}
	return t
}

func num(s string) json.Number { return json.Number(s) }

var astroCols = []string{"id", "ra", "dec", "pmra", "pmde", "dist", "unit"}

func TestAstrometry_WithDistance(t *testing.T) {
	q := &fakeQuerier{tables: []*tap.Table{
		table(astroCols, []any{"* alf CMa", num("101.28715533"), num("-16.71611586"), num("-546.01"), num("-1223.07"), num("2.64"), "pc"}),
	}}
	c := New(q, nil)

	a, found, err := c.Astrometry(context.Background(), "* alf CMa")
	if err != nil || !found {
		t.Fatalf("Astrometry = %v, %v", found, err)
	}
	if a.CatalogID != "* alf CMa" || a.RA != 101.28715533 || a.PMDec != -1223.07 {
		t.Errorf("astrometry = %+v", a)
	}
	if a.Distance == nil || *a.Distance != 2.64 {
		t.Errorf("distance = %v, want 2.64", a.Distance)
	}
	if len(q.queries) != 1 {
		t.Errorf("queries = %d, want 1", len(q.queries))
	}
	if !strings.Contains(q.queries[0], "mesDistance") || !strings.Contains(q.queries[0], "'* alf CMa'") {
		t.Errorf("unexpected ADQL: %s", q.queries[0])
	}
	if q.opts[0].MaxRows != 1 {
		t.Errorf("MaxRows = %d, want 1", q.opts[0].MaxRows)
	}
}

func TestAstrometry_DistanceUnits(t *testing.T) {
	tests := []struct {
		unit string
		dist string
		want float64
		ok   bool
	}{
		{"pc", "2.64", 2.64, true},
		{"kpc", "1.2", 1200, true},
		{"ly", "8.6", 8.6 / 3.261563777, true},
		{"km", "12", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			q := &fakeQuerier{tables: []*tap.Table{
				table(astroCols, []any{"* alf CMa", num("1"), num("2"), num("3"), num("4"), num(tt.dist), tt.unit}),
			}}
			a, found, err := New(q, nil).Astrometry(context.Background(), "x")
			if err != nil || !found {
				t.Fatalf("Astrometry = %v, %v", found, err)
			}
			if (a.Distance != nil) != tt.ok {
				t.Fatalf("distance = %v, want present=%v", a.Distance, tt.ok)
			}
			if tt.ok && math.Abs(*a.Distance-tt.want) > 1e-9 {
				t.Errorf("distance = %v, want %v", *a.Distance, tt.want)
			}
		})
	}
}

func TestAstrometry_FallsBackWithoutDistance(t *testing.T) {
	q := &fakeQuerier{tables: []*tap.Table{
		table(astroCols),
		table([]string{"id", "ra", "dec", "pmra", "pmde"}, []any{"* psi01 Boo", num("218.0"), num("26.68"), num("-3.1"), num("14.2")}),
	}}

	a, found, err := New(q, nil).Astrometry(context.Background(), "psi01 Boo")
	if err != nil || !found {
		t.Fatalf("Astrometry = %v, %v", found, err)
	}
	if a.Distance != nil {
		t.Errorf("distance = %v, want nil", *a.Distance)
	}
	if a.CatalogID != "* psi01 Boo" {
		t.Errorf("CatalogID = %q", a.CatalogID)
	}
	if len(q.queries) != 2 || strings.Contains(q.queries[1], "mesDistance") {
		t.Errorf("second query should omit distance: %v", q.queries)
	}
}

func TestAstrometry_NotFound(t *testing.T) {
	q := &fakeQuerier{}
	_, found, err := New(q, nil).Astrometry(context.Background(), "Acrab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("found = true for empty results")
	}
	if len(q.queries) != 2 {
		t.Errorf("queries = %d, want 2", len(q.queries))
	}
}

func TestAstrometry_NullProperMotion(t *testing.T) {
	q := &fakeQuerier{tables: []*tap.Table{
		table(astroCols, []any{"* alf CMa", num("1"), num("2"), nil, num("4"), num("2.6"), "pc"}),
		table([]string{"id", "ra", "dec", "pmra", "pmde"}, []any{"* alf CMa", num("1"), num("2"), nil, num("4")}),
	}}
	_, found, err := New(q, nil).Astrometry(context.Background(), "x")
	if err != nil || found {
		t.Errorf("Astrometry = %v, %v; want not found", found, err)
	}
}

func TestAstrometry_TransportError(t *testing.T) {
	q := &fakeQuerier{err: tap.ErrTransport}
	_, _, err := New(q, nil).Astrometry(context.Background(), "x")
	if !errors.Is(err, tap.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestAstrometry_QuotesIdentifier(t *testing.T) {
	q := &fakeQuerier{}
	_, _, _ = New(q, nil).Astrometry(context.Background(), "Barnard's Star")
	if !strings.Contains(q.queries[0], "'Barnard''s Star'") {
		t.Errorf("identifier not escaped: %s", q.queries[0])
	}
}

func TestParallax(t *testing.T) {
	tests := []struct {
		name  string
		table *tap.Table
		want  float64
		found bool
	}{
		{"sirius", table([]string{"plx_value"}, []any{num("379.21")}), 379.21, true},
		{"null", table([]string{"plx_value"}, []any{nil}), 0, false},
		{"no rows", table([]string{"plx_value"}), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{tables: []*tap.Table{tt.table}}
			got, found, err := New(q, nil).Parallax(context.Background(), "x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tt.found || got != tt.want {
				t.Errorf("Parallax = %v, %v; want %v, %v", got, found, tt.want, tt.found)
			}
		})
	}
}

func TestCrossID(t *testing.T) {
	ids := "* alf CMa|HD 48915|Gaia DR2 2947050466531873024|Gaia DR3 2947050466531873024|NAME Sirius"
	q := &fakeQuerier{tables: []*tap.Table{table([]string{"ids"}, []any{ids})}}

	id, found, err := New(q, nil).CrossID(context.Background(), "* alf CMa")
	if err != nil || !found {
		t.Fatalf("CrossID = %v, %v", found, err)
	}
	if id != "2947050466531873024" {
		t.Errorf("id = %q", id)
	}
}

func TestGaiaDR3ID(t *testing.T) {
	tests := []struct {
		ids   string
		want  string
		found bool
	}{
		{"HD 1|Gaia DR3 42", "42", true},
		{"Gaia DR3  7 | HD 2", "7", true},
		{"Gaia DR2 42|HD 1", "", false},
		{"", "", false},
		{"Gaia DR3 ", "", false},
	}
	for _, tt := range tests {
		got, found := GaiaDR3ID(tt.ids)
		if got != tt.want || found != tt.found {
			t.Errorf("GaiaDR3ID(%q) = %q, %v; want %q, %v", tt.ids, got, found, tt.want, tt.found)
		}
	}
}

func TestClient_OverTAP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if !strings.Contains(r.PostForm.Get("QUERY"), "plx_value") {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"metadata":[{"name":"plx_value","datatype":"double"}],"data":[[379.21]]}`))
	}))
	defer srv.Close()

	tc := tap.NewClient(tap.WithURL(srv.URL), tap.WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	plx, found, err := New(tc, nil).Parallax(context.Background(), "* alf CMa")
	if err != nil || !found || plx != 379.21 {
		t.Errorf("Parallax = %v, %v, %v", plx, found, err)
	}
}

func TestClient_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := tap.NewClient(tap.WithURL(DefaultURL))
	a, found, err := New(tc, nil).Astrometry(context.Background(), "* alf CMa")
	if err != nil {
		t.Fatalf("Astrometry failed: %v", err)
	}
	if !found {
		t.Fatal("Sirius not found in SIMBAD")
	}
	if math.Abs(a.RA-101.287) > 0.01 || math.Abs(a.Dec+16.716) > 0.01 {
		t.Errorf("unexpected position: %+v", a)
	}
	t.Logf("Sirius: %+v", a)
}
