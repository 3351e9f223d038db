// Package constellation loads constellation definitions: the star
// identifiers to resolve, how they are connected, and descriptive text.
package constellation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is returned when a definition lacks required fields.
var ErrInvalidDefinition = errors.New("invalid constellation definition")

// Definition is one constellation as written by hand.
type Definition struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	ShapeStars  []string `json:"shape_stars" yaml:"shape_stars" toml:"shape_stars"`
	Connections []string `json:"connections" yaml:"connections" toml:"connections"`
	Info        string   `json:"info" yaml:"info" toml:"info"`
}

type document struct {
	Constellations []Definition `json:"constellations" yaml:"constellations" toml:"constellations"`
}

// Format is a definitions file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported definitions file %q (want .json, .yaml or .toml)", path)
	}
}

// Load reads and validates a definitions file.
func Load(path string) ([]Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	return Read(f, format)
}

// Read decodes and validates definitions from r.
func Read(r io.Reader, format Format) ([]Definition, error) {
	var doc document
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&doc)
	default:
		return nil, fmt.Errorf("unknown definitions format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s definitions: %w", format, err)
	}

	if err := Validate(doc.Constellations); err != nil {
		return nil, err
	}
	return doc.Constellations, nil
}

// Validate checks every definition has a name and at least one shape star,
// and that names are unique.
func Validate(defs []Definition) error {
	seen := make(map[string]int, len(defs))
	for i, d := range defs {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			return fmt.Errorf("%w: constellation %d has no name", ErrInvalidDefinition, i)
		case len(d.ShapeStars) == 0:
			return fmt.Errorf("%w: constellation %d (%s) has no shape stars", ErrInvalidDefinition, i, name)
		}
		for j, s := range d.ShapeStars {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%w: constellation %d (%s) shape star %d is empty", ErrInvalidDefinition, i, name, j)
			}
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: constellation %d duplicates %d (%s)", ErrInvalidDefinition, i, prev, name)
		}
		seen[key] = i
	}
	return nil
}

// Filter returns the definitions whose names match, case-insensitively, in
// their original order. An empty names list returns defs unchanged.
func Filter(defs []Definition, names []string) []Definition {
	if len(names) == 0 {
		return defs
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var out []Definition
	for _, d := range defs {
		if want[strings.ToLower(strings.TrimSpace(d.Name))] {
			out = append(out, d)
		}
	}
	return out
}

// StarCount returns the total number of shape stars.
func StarCount(defs []Definition) int {
	n := 0
	for _, d := range defs {
		n += len(d.ShapeStars)
	}
	return n
}
