package entry

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/resolver"
)

// Answer is one star's pre-recorded manual data. RA and Dec accept the same
// forms as the prompt. Any field may be omitted when only part is needed.
type Answer struct {
	RA       string   `yaml:"ra"`
	Dec      string   `yaml:"dec"`
	PMRA     *float64 `yaml:"pm_ra"`
	PMDec    *float64 `yaml:"pm_dec"`
	Distance *float64 `yaml:"distance"`
}

type answersFile struct {
	Stars map[string]Answer `yaml:"stars"`
}

// Scripted answers from a fixed table keyed by star identifier.
type Scripted struct {
	answers map[string]Answer
}

// NewScripted creates a provider from an in-memory table.
func NewScripted(answers map[string]Answer) *Scripted {
	cp := make(map[string]Answer, len(answers))
	for k, v := range answers {
		cp[k] = v
	}
	return &Scripted{answers: cp}
}

// LoadScripted reads a YAML answers file:
//
//	stars:
//	  Acrab:
//	    ra: "16h05m26.2s"
//	    dec: "-19d48m19.6s"
//	    pm_ra: -6.75
//	    pm_dec: -24.89
//	    distance: 124
func LoadScripted(path string) (*Scripted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answers: %w", err)
	}
	defer f.Close()
	return ReadScripted(f)
}

// ReadScripted decodes a YAML answers document.
func ReadScripted(r io.Reader) (*Scripted, error) {
	var doc answersFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return NewScripted(doc.Stars), nil
}

// Len returns the number of stars with answers.
func (s *Scripted) Len() int {
	return len(s.answers)
}

// Position implements resolver.MissingDataProvider.
func (s *Scripted) Position(_ context.Context, identifier string) (resolver.ManualPosition, error) {
	a, ok := s.answers[identifier]
	if !ok || a.RA == "" || a.Dec == "" {
		return resolver.ManualPosition{}, noAnswer(identifier, "position")
	}

	var pos resolver.ManualPosition
	var err error
	if pos.RA, err = astro.ParseRA(a.RA); err != nil {
		return pos, fmt.Errorf("%w: %s: %v", resolver.ErrIncompleteEntry, identifier, err)
	}
	if pos.Dec, err = astro.ParseDec(a.Dec); err != nil {
		return pos, fmt.Errorf("%w: %s: %v", resolver.ErrIncompleteEntry, identifier, err)
	}
	if a.PMRA == nil || a.PMDec == nil || a.Distance == nil {
		return pos, fmt.Errorf("%w: %s: answer needs pm_ra, pm_dec and distance", resolver.ErrIncompleteEntry, identifier)
	}
	pos.PMRA, pos.PMDec, pos.Distance = *a.PMRA, *a.PMDec, *a.Distance
	return pos, nil
}

// Distance implements resolver.MissingDataProvider.
func (s *Scripted) Distance(_ context.Context, identifier string) (float64, error) {
	a, ok := s.answers[identifier]
	if !ok || a.Distance == nil {
		return 0, noAnswer(identifier, "distance")
	}
	return *a.Distance, nil
}

func noAnswer(identifier, what string) error {
	return fmt.Errorf("%w: %w: %s for %q", resolver.ErrIncompleteEntry, ErrNoAnswer, what, identifier)
}
