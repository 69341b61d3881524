// Package records defines the in-memory row model shared by parsers,
// transformers, and storage sinks.
//
// A Record maps a column name to a cell value. A missing value is nil. Raw
// cells produced by parsers are strings; transformers may replace them with
// typed values (int, float64). JSON numbers keep their json.Number form until
// something coerces them.
package records

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is a single row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r. Values are not deep-copied; all values
// stored in a Record are immutable scalars.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns and the rows that carry them. Column
// order is significant: it is the order used for CSV headers and database
// inserts.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is one of t's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Values returns the rows of t as positional slices aligned to columns. Cells
// absent from a row are returned as nil.
func (t Table) Values(columns []string) [][]any {
	out := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = r[c]
		}
		out = append(out, row)
	}
	return out
}

// IsMissing reports whether v represents a missing cell: nil, or a float
// NaN.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// FormatValue renders a cell for delimited text output. Missing values
// become the empty string; floats use the shortest representation that
// round-trips.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
