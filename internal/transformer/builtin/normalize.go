package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"lifeexp/pkg/records"
)

const nbspace = "\u00a0"

// Normalize cleans string cells: NFC normalization, NO-BREAK SPACE to space,
// and trimming of surrounding whitespace. Non-string cells pass through.
type Normalize struct{}

// Name implements transformer.Named.
func (Normalize) Name() string { return "normalize" }

// Apply implements transformer.Transformer.
func (Normalize) Apply(in records.Table) (records.Table, error) {
	out := records.Table{Columns: in.Columns, Rows: make([]records.Record, len(in.Rows))}
	for i, r := range in.Rows {
		nr := make(records.Record, len(r))
		for k, v := range r {
			if s, ok := v.(string); ok {
				v = NormalizeText(s)
			}
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out, nil
}

// NormalizeText applies the Normalize rules to a single string.
func NormalizeText(s string) string {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	return strings.TrimSpace(strings.ReplaceAll(s, nbspace, " "))
}
