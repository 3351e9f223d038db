// Package designation turns catalog identifiers into display names.
//
// Catalogs answer with identifiers such as "* alf CMa", "*  61 Cyg" or
// "NAME Sirius". Parse recognizes those forms and builds a readable name,
// taking the constellation wording from the query the caller sent rather
// than from the catalog abbreviation. Nothing here performs I/O.
package designation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousDesignation is returned when a multi-star Bayer designation
// carries a Greek abbreviation that is not in the table. The star's name
// cannot be rendered without guessing.
var ErrAmbiguousDesignation = errors.New("ambiguous designation")

const (
	properNameMarker = "NAME"
	iauMarker        = "-IAU"
	bayerMarker      = "*"
)

// Kind classifies a parsed catalog identifier.
type Kind int

const (
	KindLiteral Kind = iota
	KindProperName
	KindBayerFlamsteed
)

func (k Kind) String() string {
	switch k {
	case KindProperName:
		return "proper_name"
	case KindBayerFlamsteed:
		return "bayer_flamsteed"
	default:
		return "literal"
	}
}

// Designation is the intermediate result of parsing a catalog identifier.
type Designation struct {
	Kind Kind

	// Name is the common name for KindProperName.
	Name string

	// Greek is the spelled-out letter ("Alpha"); empty for Flamsteed numbers.
	Greek string
	// Numeral is the Flamsteed number or the multi-star component number.
	Numeral string
	// Constellation is taken from the original query, second token onward.
	Constellation string
	// Multiplicity is a trailing component letter such as "A".
	Multiplicity string

	// Literal is the original query, used verbatim for KindLiteral.
	Literal string

	// Note explains why no normalization was applied. Callers log it.
	Note string
}

// String renders the display name.
func (d Designation) String() string {
	switch d.Kind {
	case KindProperName:
		return d.Name
	case KindBayerFlamsteed:
		parts := make([]string, 0, 4)
		for _, p := range []string{d.Greek, d.Numeral, d.Constellation} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if d.Multiplicity != "" && !strings.HasSuffix(d.Constellation, " "+d.Multiplicity) {
			parts = append(parts, d.Multiplicity)
		}
		return strings.Join(parts, " ")
	default:
		return d.Literal
	}
}

// Normalize returns the display name for catalogID, or originalQuery unchanged
// when the identifier cannot be normalized. The only error is a wrapped
// ErrAmbiguousDesignation; originalQuery is returned alongside it.
func Normalize(catalogID, originalQuery string) (string, error) {
	d, err := Parse(catalogID, originalQuery)
	if err != nil {
		return originalQuery, err
	}
	return d.String(), nil
}

// Parse classifies catalogID. Unrecognized forms yield a KindLiteral
// designation with a Note rather than an error.
func Parse(catalogID, originalQuery string) (Designation, error) {
	tokens := strings.Fields(catalogID)
	if len(tokens) == 0 {
		return literal(originalQuery, "empty catalog identifier"), nil
	}

	switch tokens[0] {
	case properNameMarker:
		return parseProperName(tokens[1:], originalQuery), nil
	case bayerMarker:
		return parseBayer(tokens[1:], originalQuery)
	default:
		return literal(originalQuery, fmt.Sprintf("no normalization applied to %q", catalogID)), nil
	}
}

func literal(query, note string) Designation {
	return Designation{Kind: KindLiteral, Literal: query, Note: note}
}

func parseProperName(tokens []string, query string) Designation {
	rest := make([]string, 0, len(tokens))
	dropped := false
	for _, t := range tokens {
		if t == iauMarker && !dropped {
			dropped = true
			continue
		}
		rest = append(rest, t)
	}
	if len(rest) == 0 {
		return literal(query, "proper-name marker without a name")
	}
	return Designation{Kind: KindProperName, Name: strings.Join(rest, " ")}
}

// parseBayer handles "<designation> <abbrev> [component]" after the marker.
func parseBayer(tokens []string, query string) (Designation, error) {
	if len(tokens) != 2 && len(tokens) != 3 {
		return literal(query, fmt.Sprintf("unexpected Bayer/Flamsteed token count %d", len(tokens)+1)), nil
	}

	desig, abbrev := tokens[0], tokens[1]
	d := Designation{
		Kind:          KindBayerFlamsteed,
		Constellation: queryConstellation(query, abbrev),
	}
	if len(tokens) == 3 {
		d.Multiplicity = tokens[2]
	}

	digit := strings.IndexAny(desig, "0123456789")
	switch {
	case digit < 0:
		// Greek letter only, e.g. "alf" or "nu.".
		abbr := strings.ToLower(strings.Trim(desig, "."))
		greek, ok := LookupGreek(abbr)
		if !ok {
			return literal(query, fmt.Sprintf("unknown Greek abbreviation %q", abbr)), nil
		}
		d.Greek = greek
		return d, nil

	case digit == 0:
		// Flamsteed number, e.g. "61".
		if !isDigits(desig) {
			return literal(query, fmt.Sprintf("malformed Flamsteed number %q", desig)), nil
		}
		d.Numeral = desig
		return d, nil

	default:
		// Greek letter with a component number, e.g. "psi01".
		abbr := strings.ToLower(strings.Trim(desig[:digit], ". "))
		num := desig[digit:]
		if !isDigits(num) {
			return literal(query, fmt.Sprintf("malformed component number in %q", desig)), nil
		}
		greek, ok := LookupGreek(abbr)
		if !ok {
			return literal(query, fmt.Sprintf("unknown Greek abbreviation %q", abbr)),
				fmt.Errorf("%w: unknown Greek abbreviation %q in %q", ErrAmbiguousDesignation, abbr, desig)
		}
		d.Greek = greek
		d.Numeral = strings.TrimLeft(num, "0")
		if d.Numeral == "" {
			d.Numeral = "0"
		}
		return d, nil
	}
}

// queryConstellation returns the query's second token onward. A single-token
// query (e.g. a bare proper name) carries no constellation wording, so the
// catalog abbreviation is used instead.
func queryConstellation(query, abbrev string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 {
		return abbrev
	}
	return strings.Join(fields[1:], " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
