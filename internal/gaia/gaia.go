// Package gaia reads distances from the Gaia DR3 archive.
package gaia

import (
	"context"
	"fmt"
	"strconv"

	"github.com/litescript/ls-constellations/internal/tap"
)

// DefaultURL is the ESA Gaia archive's synchronous TAP endpoint.
const DefaultURL = "https://gea.esac.esa.int/tap-server/tap/sync"

const distanceQuery = `SELECT source_id, distance_gspphot
FROM gaiadr3.gaia_source
WHERE source_id = %d`

// Querier runs ADQL. *tap.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, adql string, opts tap.QueryOptions) (*tap.Table, error)
}

// Client answers distance lookups by Gaia source id.
type Client struct {
	q Querier
}

// New wraps a TAP querier pointed at the Gaia archive.
func New(q Querier) *Client {
	return &Client{q: q}
}

// Distance implements resolver.CrossDistanceSource. It returns the
// GSP-Phot distance in parsecs; ids that are not Gaia source ids and sources
// without a GSP-Phot solution report false.
func (c *Client) Distance(ctx context.Context, sourceID string) (float64, bool, error) {
	id, err := strconv.ParseInt(sourceID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, nil
	}

	t, err := c.q.Query(ctx, fmt.Sprintf(distanceQuery, id), tap.QueryOptions{MaxRows: 1})
	if err != nil {
		return 0, false, fmt.Errorf("gaia distance: %w", err)
	}
	d, ok := t.Float(0, "distance_gspphot")
	if !ok || d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}
