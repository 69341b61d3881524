package pipeline

import (
	"fmt"
	"math"

	"lifeexp/internal/transformer/builtin"
	"lifeexp/pkg/records"
)

// NormalizedRow is one cleaned observation of the long-form table.
type NormalizedRow struct {
	Unit   string
	Sex    string
	Age    string
	Region string
	Year   int
	Value  float64
}

// NormalizedRows converts a cleaned TSV table into typed rows. A row with a
// missing or non-finite value, or a year that is not an int, is an error.
func NormalizedRows(t records.Table) ([]NormalizedRow, error) {
	out := make([]NormalizedRow, 0, t.Len())
	for i, r := range t.Rows {
		year, ok := r[builtin.ColYear].(int)
		if !ok {
			return nil, fmt.Errorf("pipeline: row %d: year %#v is not an int", i, r[builtin.ColYear])
		}
		value, ok := r[builtin.ColValue].(float64)
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("pipeline: row %d: value %#v is not a finite float", i, r[builtin.ColValue])
		}
		out = append(out, NormalizedRow{
			Unit:   records.FormatValue(r[builtin.ColUnit]),
			Sex:    records.FormatValue(r[builtin.ColSex]),
			Age:    records.FormatValue(r[builtin.ColAge]),
			Region: records.FormatValue(r[builtin.ColRegion]),
			Year:   year,
			Value:  value,
		})
	}
	return out, nil
}
