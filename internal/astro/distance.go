package astro

import (
	"fmt"
	"math"
	"strings"
)

// LightYearsPerParsec is the number of light years in one parsec.
const LightYearsPerParsec = 3.261563777

// ParallaxToDistance converts a parallax in milliarcseconds to a distance in
// parsecs (d = 1000 / p). Non-positive or non-finite parallaxes have no
// meaningful inversion and report false.
func ParallaxToDistance(parallaxMas float64) (float64, bool) {
	if math.IsNaN(parallaxMas) || math.IsInf(parallaxMas, 0) || parallaxMas <= 0 {
		return 0, false
	}
	return 1000 / parallaxMas, true
}

// ConvertDistance converts a catalog distance to parsecs. The unit is matched
// case-insensitively against pc, kpc, Mpc and ly; an empty unit means pc.
func ConvertDistance(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "pc":
		return value, nil
	case "kpc":
		return value * 1e3, nil
	case "mpc":
		return value * 1e6, nil
	case "ly":
		return value / LightYearsPerParsec, nil
	default:
		return 0, fmt.Errorf("unsupported distance unit %q", unit)
	}
}
