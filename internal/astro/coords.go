package astro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidAngle is returned when an RA or Dec string cannot be parsed or
// is out of range.
var ErrInvalidAngle = errors.New("invalid angle")

// ParseRA parses a right ascension and returns degrees in [0, 360).
//
// Accepted forms:
//   - decimal degrees: "101.287"
//   - sexagesimal hours: "06h45m08.9s", "06:45:08.9", "06 45 08.9"
func ParseRA(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty right ascension", ErrInvalidAngle)
	}

	if deg, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(deg) || deg < 0 || deg >= 360 {
			return 0, fmt.Errorf("%w: right ascension %v outside [0, 360)", ErrInvalidAngle, deg)
		}
		return deg, nil
	}

	neg, parts, err := splitSexagesimal(s, "hms")
	if err != nil {
		return 0, fmt.Errorf("%w: right ascension %q: %v", ErrInvalidAngle, s, err)
	}
	if neg {
		return 0, fmt.Errorf("%w: negative right ascension %q", ErrInvalidAngle, s)
	}
	if parts[0] >= 24 {
		return 0, fmt.Errorf("%w: right ascension hours %v >= 24", ErrInvalidAngle, parts[0])
	}

	hours := parts[0] + parts[1]/60 + parts[2]/3600
	return hours * 15, nil
}

// ParseDec parses a declination and returns degrees in [-90, 90].
//
// Accepted forms:
//   - decimal degrees: "-16.716"
//   - sexagesimal degrees: "-16d42m58s", "-16:42:58", "-16 42 58"
func ParseDec(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty declination", ErrInvalidAngle)
	}

	if deg, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(deg) || deg < -90 || deg > 90 {
			return 0, fmt.Errorf("%w: declination %v outside [-90, 90]", ErrInvalidAngle, deg)
		}
		return deg, nil
	}

	neg, parts, err := splitSexagesimal(s, "dms")
	if err != nil {
		return 0, fmt.Errorf("%w: declination %q: %v", ErrInvalidAngle, s, err)
	}

	deg := parts[0] + parts[1]/60 + parts[2]/3600
	if deg > 90 {
		return 0, fmt.Errorf("%w: declination %q beyond the pole", ErrInvalidAngle, s)
	}
	if neg {
		deg = -deg
	}
	return deg, nil
}

// splitSexagesimal splits "[±]A<u1>B<u2>C<u3>" (units from the given letters,
// or ':' / whitespace / degree-minute-second symbols) into three unsigned
// components. Missing trailing components are zero.
func splitSexagesimal(s string, units string) (neg bool, parts [3]float64, err error) {
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case r == ':', r == '°', r == '\'', r == '"', r == '′', r == '″':
			return ' '
		case strings.ContainsRune(units, r), strings.ContainsRune(strings.ToUpper(units), r):
			return ' '
		}
		return r
	}, s)

	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 3 {
		return false, parts, fmt.Errorf("expected 1 to 3 components, got %d", len(fields))
	}

	for i, f := range fields {
		v, perr := strconv.ParseFloat(f, 64)
		if perr != nil || math.IsNaN(v) || v < 0 {
			return false, parts, fmt.Errorf("component %q is not a non-negative number", f)
		}
		if i > 0 && v >= 60 {
			return false, parts, fmt.Errorf("component %q must be below 60", f)
		}
		parts[i] = v
	}
	return neg, parts, nil
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
