package resolver

import (
	"errors"
	"fmt"
	"math"
)

// StarRecord is the resolved output for one star. Absent values are nil and
// serialize as JSON null.
type StarRecord struct {
	Name              string    `json:"name"`
	RA                *float64  `json:"ra"`
	Dec               *float64  `json:"dec"`
	PMRA              *float64  `json:"pm_ra"`
	PMDec             *float64  `json:"pm_dec"`
	Distance          *float64  `json:"distance"`
	DistanceEstimated bool      `json:"distance_estimated"`
	Cartesian         []float64 `json:"cartesian"`
	CartesianVelocity []float64 `json:"cartesian_velocity"`
}

// ErrInconsistentRecord is returned by Validate.
var ErrInconsistentRecord = errors.New("inconsistent star record")

// Validate checks that cartesian data is present exactly when ra, dec and
// distance are.
func (r StarRecord) Validate() error {
	located := r.RA != nil && r.Dec != nil && r.Distance != nil
	hasCart := r.Cartesian != nil

	switch {
	case located && !hasCart:
		return fmt.Errorf("%w: %q has ra/dec/distance but no cartesian position", ErrInconsistentRecord, r.Name)
	case !located && hasCart:
		return fmt.Errorf("%w: %q has a cartesian position without ra/dec/distance", ErrInconsistentRecord, r.Name)
	case hasCart && len(r.Cartesian) != 3:
		return fmt.Errorf("%w: %q cartesian has %d components", ErrInconsistentRecord, r.Name, len(r.Cartesian))
	case r.CartesianVelocity != nil && !hasCart:
		return fmt.Errorf("%w: %q has a velocity without a position", ErrInconsistentRecord, r.Name)
	case r.CartesianVelocity != nil && len(r.CartesianVelocity) != 3:
		return fmt.Errorf("%w: %q cartesian_velocity has %d components", ErrInconsistentRecord, r.Name, len(r.CartesianVelocity))
	}
	return nil
}

// Astrometry is what a primary source returns for a found star.
type Astrometry struct {
	// CatalogID is the source's main identifier, e.g. "* alf CMa".
	CatalogID string
	RA        float64
	Dec       float64
	PMRA      float64
	PMDec     float64
	// Distance in parsecs from a catalog distance measurement, if any.
	Distance *float64
}

// ManualPosition is operator-supplied astrometry.
type ManualPosition struct {
	RA       float64
	Dec      float64
	PMRA     float64
	PMDec    float64
	Distance float64
}

func (p ManualPosition) validate() error {
	switch {
	case !finite(p.RA) || p.RA < 0 || p.RA >= 360:
		return fmt.Errorf("ra %v outside [0, 360)", p.RA)
	case !finite(p.Dec) || p.Dec < -90 || p.Dec > 90:
		return fmt.Errorf("dec %v outside [-90, 90]", p.Dec)
	case !finite(p.PMRA) || !finite(p.PMDec):
		return errors.New("proper motion is not a finite number")
	case !finite(p.Distance) || p.Distance <= 0:
		return fmt.Errorf("distance %v is not positive", p.Distance)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func ptr(f float64) *float64 {
	return &f
}
