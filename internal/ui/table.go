package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-constellations/internal/resolver"
)

// Row is one resolved star for RenderRecords.
type Row struct {
	Identifier string
	Result     resolver.Result
	Err        error
}

var tableHeaders = []string{"Query", "Name", "RA", "Dec", "Dist (pc)", "Source", "X", "Y", "Z"}

// RenderRecords writes a summary table. With styled false it writes plain
// aligned columns suitable for pipes.
func RenderRecords(w io.Writer, rows []Row, styled bool) error {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, rowCells(r))
	}

	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	header := joinPadded(tableHeaders, widths)
	if styled {
		header = headerStyle.Render(header)
	}
	b.WriteString(header + "\n")

	for i, row := range cells {
		line := joinPadded(row, widths)
		if styled {
			line = styleFor(rows[i]).Render(line)
		}
		b.WriteString(line + "\n")
	}

	for _, r := range rows {
		if r.Err == nil {
			continue
		}
		msg := fmt.Sprintf("%s: %v", r.Identifier, r.Err)
		if styled {
			msg = errorStyle.Render(msg)
		}
		b.WriteString(msg + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rowCells(r Row) []string {
	rec := r.Result.Record
	name := rec.Name
	if name == "" {
		name = r.Identifier
	}

	source := r.Result.DistanceSource.String()
	if rec.DistanceEstimated {
		source += "*"
	}
	if r.Err != nil {
		source = "error"
	}

	c := []string{r.Identifier, name, optFloat(rec.RA, 4), optFloat(rec.Dec, 4), optFloat(rec.Distance, 3), source, "-", "-", "-"}
	if len(rec.Cartesian) == 3 {
		for i, v := range rec.Cartesian {
			c[6+i] = fmt.Sprintf("%.3f", v)
		}
	}
	return c
}

func styleFor(r Row) lipgloss.Style {
	switch {
	case r.Err != nil:
		return errorStyle
	case r.Result.Record.DistanceEstimated:
		return estimatedStyle
	default:
		return rowStyle
	}
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

func joinPadded(cols []string, widths []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
