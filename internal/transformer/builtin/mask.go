package builtin

import (
	"strings"

	"lifeexp/pkg/records"
)

// MaskEmpty replaces empty-string sentinels with nil in every column, so a
// JSON "" reads as a missing value while a present 0 stays 0.
type MaskEmpty struct{}

// Name implements transformer.Named.
func (MaskEmpty) Name() string { return "mask_empty" }

// Apply implements transformer.Transformer. Rows without sentinels are shared
// with the input; rows that change are copied first.
func (MaskEmpty) Apply(in records.Table) (records.Table, error) {
	out := records.Table{Columns: in.Columns, Rows: make([]records.Record, len(in.Rows))}
	for i, r := range in.Rows {
		nr, cloned := r, false
		for k, v := range r {
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) != "" {
				continue
			}
			if !cloned {
				nr, cloned = r.Clone(), true
			}
			nr[k] = nil
		}
		out.Rows[i] = nr
	}
	return out, nil
}
