// Package simbad queries the SIMBAD astronomical database over TAP. It is the
// primary astrometry source and also provides parallaxes and Gaia DR3
// cross-identifiers.
package simbad

import (
	"context"
	"fmt"
	"strings"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/resolver"
	"github.com/litescript/ls-constellations/internal/tap"
)

// DefaultURL is SIMBAD's synchronous TAP endpoint.
const DefaultURL = "https://simbad.cds.unistra.fr/simbad/sim-tap/sync"

const gaiaDR3Prefix = "Gaia DR3 "

// Querier runs ADQL. *tap.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, adql string, opts tap.QueryOptions) (*tap.Table, error)
}

// Client answers resolver queries from SIMBAD.
type Client struct {
	q   Querier
	log *logging.Logger
}

// New wraps a TAP querier pointed at SIMBAD.
func New(q Querier, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{q: q, log: log}
}

const astrometryWithDistance = `SELECT TOP 1 ident.id, basic.ra, basic.dec, mesPM.pmra, mesPM.pmde, mesDistance.dist, mesDistance.unit
FROM basic
JOIN ident ON ident.oidref = basic.oid
JOIN mesPM ON mesPM.oidref = basic.oid
JOIN mesDistance ON mesDistance.oidref = basic.oid
WHERE ident.id = %s
AND mesPM.mespos = 1
AND mesDistance.mespos = 1`

const astrometryOnly = `SELECT TOP 1 ident.id, basic.ra, basic.dec, mesPM.pmra, mesPM.pmde
FROM basic
JOIN ident ON ident.oidref = basic.oid
JOIN mesPM ON mesPM.oidref = basic.oid
WHERE ident.id = %s
AND mesPM.mespos = 1`

const parallaxQuery = `SELECT basic.plx_value
FROM basic
JOIN ident ON ident.oidref = basic.oid
WHERE ident.id = %s`

const idsQuery = `SELECT ids.ids
FROM ids
JOIN ident ON ident.oidref = ids.oidref
WHERE ident.id = %s`

// Astrometry implements resolver.PrimarySource. Distance is attempted first
// since most bright stars carry one; a star without a distance measurement is
// queried again without the join.
func (c *Client) Astrometry(ctx context.Context, identifier string) (resolver.Astrometry, bool, error) {
	id := tap.Quote(identifier)

	t, err := c.q.Query(ctx, fmt.Sprintf(astrometryWithDistance, id), tap.QueryOptions{MaxRows: 1})
	if err != nil {
		return resolver.Astrometry{}, false, fmt.Errorf("simbad astrometry: %w", err)
	}
	if a, ok := c.parseAstrometry(t, identifier); ok {
		if dist, ok := t.Float(0, "dist"); ok {
			unit, _ := t.String(0, "unit")
			pc, err := astro.ConvertDistance(dist, unit)
			switch {
			case err != nil:
				c.log.Warn("%s: dropping distance: %v", identifier, err)
			case pc > 0:
				a.Distance = &pc
			}
		}
		return a, true, nil
	}

	t, err = c.q.Query(ctx, fmt.Sprintf(astrometryOnly, id), tap.QueryOptions{MaxRows: 1})
	if err != nil {
		return resolver.Astrometry{}, false, fmt.Errorf("simbad astrometry: %w", err)
	}
	a, ok := c.parseAstrometry(t, identifier)
	if !ok {
		c.log.Info("%s: no data in SIMBAD", identifier)
	}
	return a, ok, nil
}

// parseAstrometry reads the first row; rows with a null position or proper
// motion count as not found.
func (c *Client) parseAstrometry(t *tap.Table, identifier string) (resolver.Astrometry, bool) {
	if t.Len() == 0 {
		return resolver.Astrometry{}, false
	}

	var a resolver.Astrometry
	var ok [4]bool
	a.RA, ok[0] = t.Float(0, "ra")
	a.Dec, ok[1] = t.Float(0, "dec")
	a.PMRA, ok[2] = t.Float(0, "pmra")
	a.PMDec, ok[3] = t.Float(0, "pmde")
	for _, v := range ok {
		if !v {
			c.log.Warn("%s: SIMBAD row has null astrometry", identifier)
			return resolver.Astrometry{}, false
		}
	}

	a.CatalogID, _ = t.String(0, "id")
	if a.CatalogID == "" {
		a.CatalogID = identifier
	}
	return a, true
}

// Parallax implements resolver.ParallaxSource. The value is in mas.
func (c *Client) Parallax(ctx context.Context, identifier string) (float64, bool, error) {
	t, err := c.q.Query(ctx, fmt.Sprintf(parallaxQuery, tap.Quote(identifier)), tap.QueryOptions{MaxRows: 1})
	if err != nil {
		return 0, false, fmt.Errorf("simbad parallax: %w", err)
	}
	plx, ok := t.Float(0, "plx_value")
	return plx, ok, nil
}

// CrossID implements resolver.CrossMatcher, returning the Gaia DR3 source id.
func (c *Client) CrossID(ctx context.Context, identifier string) (string, bool, error) {
	t, err := c.q.Query(ctx, fmt.Sprintf(idsQuery, tap.Quote(identifier)), tap.QueryOptions{MaxRows: 1})
	if err != nil {
		return "", false, fmt.Errorf("simbad ids: %w", err)
	}
	ids, ok := t.String(0, "ids")
	if !ok {
		return "", false, nil
	}
	id, ok := GaiaDR3ID(ids)
	return id, ok, nil
}

// GaiaDR3ID extracts the numeric Gaia DR3 source id from SIMBAD's
// pipe-separated identifier list.
func GaiaDR3ID(ids string) (string, bool) {
	for _, id := range strings.Split(ids, "|") {
		id = strings.TrimSpace(id)
		if n, ok := strings.CutPrefix(id, gaiaDR3Prefix); ok {
			n = strings.TrimSpace(n)
			if n != "" {
				return n, true
			}
		}
	}
	return "", false
}
