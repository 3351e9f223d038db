package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/litescript/ls-constellations/internal/resolver"
)

// ResolutionExport is the JSON form of one resolved star.
type ResolutionExport struct {
	Query          string              `json:"query"`
	Record         resolver.StarRecord `json:"record"`
	DistanceSource string              `json:"distance_source"`
	Trace          []string            `json:"trace"`
	Error          string              `json:"error,omitempty"`
}

// Export is the document written by WriteRecordsJSON.
type Export struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Stars       []ResolutionExport `json:"stars"`
}

// ExportRows converts rows for JSON output.
func ExportRows(rows []Row, now time.Time) *Export {
	out := &Export{GeneratedAt: now.UTC(), Stars: make([]ResolutionExport, 0, len(rows))}
	for _, r := range rows {
		e := ResolutionExport{
			Query:          r.Identifier,
			Record:         r.Result.Record,
			DistanceSource: r.Result.DistanceSource.String(),
			Trace:          make([]string, len(r.Result.Trace)),
		}
		for i, s := range r.Result.Trace {
			e.Trace[i] = s.String()
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		out.Stars = append(out.Stars, e)
	}
	return out
}

// WriteJSON writes the export as indented JSON.
func (e *Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode resolutions: %w", err)
	}
	return nil
}
