// Package builtin contains the reusable transformers the pipelines are built
// from: reshaping (Unpivot), cleaning (Normalize, MaskEmpty, Coerce), row
// selection (Require, CountryFilter) and de-duplication (DeDup).
package builtin

import (
	"strings"

	"lifeexp/pkg/records"
)

// Require removes any row missing a value for one of the specified fields.
// A value is missing when it is nil, NaN, or a blank string.
type Require struct {
	Fields []string
}

// Name implements transformer.Named.
func (Require) Name() string { return "require" }

// Apply returns a table containing only rows that have all required fields
// present and non-empty. Row order is preserved.
func (r Require) Apply(in records.Table) (records.Table, error) {
	out := records.Table{Columns: in.Columns, Rows: make([]records.Record, 0, len(in.Rows))}
	for _, rec := range in.Rows {
		ok := true
		for _, f := range r.Fields {
			if missing(rec[f]) {
				ok = false
				break
			}
		}
		if ok {
			out.Rows = append(out.Rows, rec)
		}
	}
	return out, nil
}

func missing(v any) bool {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return records.IsMissing(v)
}
