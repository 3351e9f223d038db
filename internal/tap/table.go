package tap

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
	Unit     string `json:"unit"`
}

// Table is a decoded TAP result. Cells hold json.Number, string, bool or nil.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column (case-insensitive), or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func (t *Table) cell(row int, col string) (any, bool) {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	i := t.Index(col)
	if i < 0 {
		return nil, false
	}
	v := t.Rows[row][i]
	return v, v != nil
}

// Float returns a numeric cell. Nulls, NaN, empty strings and non-numeric
// values report false.
func (t *Table) Float(row int, col string) (float64, bool) {
	v, ok := t.cell(row, col)
	if !ok {
		return 0, false
	}

	var f float64
	var err error
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case float64:
		f = x
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String returns a cell as text. Numbers keep their literal form, so integer
// identifiers are not rounded.
func (t *Table) String(row int, col string) (string, bool) {
	v, ok := t.cell(row, col)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// Quote renders s as an ADQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
