package builtin

import (
	"fmt"

	"lifeexp/internal/country"
	"lifeexp/pkg/records"
)

// CountryFilter keeps rows whose Column value names one of Countries,
// ignoring case. An empty set keeps every row.
type CountryFilter struct {
	Column    string
	Countries country.Set
}

// Name implements transformer.Named.
func (CountryFilter) Name() string { return "filter_country" }

// Apply implements transformer.Transformer. Row order is preserved.
func (f CountryFilter) Apply(in records.Table) (records.Table, error) {
	if f.Countries.Empty() {
		return in, nil
	}
	if !in.HasColumn(f.Column) {
		return records.Table{}, fmt.Errorf("%w: filter column %q not in %v", ErrStructure, f.Column, in.Columns)
	}
	out := records.Table{Columns: in.Columns, Rows: make([]records.Record, 0, len(in.Rows))}
	for _, r := range in.Rows {
		v := r[f.Column]
		if v == nil {
			continue
		}
		if f.Countries.Contains(records.FormatValue(v)) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}
