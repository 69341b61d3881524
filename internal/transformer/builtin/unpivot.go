package builtin

import (
	"errors"
	"fmt"
	"strings"

	"lifeexp/pkg/records"
)

// ErrStructure reports a table whose shape does not match what a transform
// requires (wrong composite key width, missing columns).
var ErrStructure = errors.New("structural format error")

// Normalized column names, in output order.
const (
	ColUnit   = "unit"
	ColSex    = "sex"
	ColAge    = "age"
	ColRegion = "region"
	ColYear   = "year"
	ColValue  = "value"
)

// IdentifierColumns are the sub-fields encoded in the composite first column
// of a wide table, in the order they appear.
var IdentifierColumns = []string{ColUnit, ColSex, ColAge, ColRegion}

// NormalizedColumns is the column set produced by Unpivot.
var NormalizedColumns = []string{ColUnit, ColSex, ColAge, ColRegion, ColYear, ColValue}

// Unpivot melts a wide table into long form. The first column is a composite
// identifier whose header and cells are comma-joined (e.g. header
// "unit,sex,age,geo\time", cell "YR,F,Y10,PT"); every other column is a year.
//
// The output has one row per (input row, year column) pair, ordered by input
// row and then by year column, with columns unit, sex, age, region, year and
// value. Year and value stay raw text; nothing is dropped.
type Unpivot struct{}

// Name implements transformer.Named.
func (Unpivot) Name() string { return "unpivot" }

// Apply implements transformer.Transformer.
func (Unpivot) Apply(in records.Table) (records.Table, error) {
	if len(in.Columns) == 0 {
		return records.Table{}, fmt.Errorf("%w: table has no columns", ErrStructure)
	}
	id := in.Columns[0]
	if n := len(strings.Split(id, ",")); n != len(IdentifierColumns) {
		return records.Table{}, fmt.Errorf("%w: identifier header %q has %d parts, want %d",
			ErrStructure, id, n, len(IdentifierColumns))
	}
	years := in.Columns[1:]
	if len(years) == 0 {
		return records.Table{}, fmt.Errorf("%w: no year columns after %q", ErrStructure, id)
	}

	out := records.Table{
		Columns: append([]string(nil), NormalizedColumns...),
		Rows:    make([]records.Record, 0, len(in.Rows)*len(years)),
	}
	for i, row := range in.Rows {
		cell, _ := row[id].(string)
		parts := strings.Split(cell, ",")
		if len(parts) != len(IdentifierColumns) {
			return records.Table{}, fmt.Errorf("%w: row %d: identifier %q has %d parts, want %d",
				ErrStructure, i+1, cell, len(parts), len(IdentifierColumns))
		}
		for _, y := range years {
			out.Rows = append(out.Rows, records.Record{
				ColUnit:   parts[0],
				ColSex:    parts[1],
				ColAge:    parts[2],
				ColRegion: parts[3],
				ColYear:   y,
				ColValue:  row[y],
			})
		}
	}
	return out, nil
}
