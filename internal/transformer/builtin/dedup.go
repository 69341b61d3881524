package builtin

import (
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"lifeexp/pkg/records"
)

// DeDup collapses duplicate rows by a configured key and chooses a winner
// according to a policy:
//
//   - "keep-first"   : keep the earliest occurrence
//   - "keep-last"    : keep the latest occurrence (default)
//   - "most-complete": keep the row with the most non-missing cells; ties
//     break by keep-last
//
// Keys are hashed with 128-bit xxh3 over the formatted key cells. Rows
// missing a key field are passed through after the winners.
type DeDup struct {
	Keys   []string
	Policy string
}

// Name implements transformer.Named.
func (DeDup) Name() string { return "dedupe" }

// Apply implements transformer.Transformer. Winners keep their input order.
func (d DeDup) Apply(in records.Table) (records.Table, error) {
	if len(in.Rows) == 0 || len(d.Keys) == 0 {
		return in, nil
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}

	type slot struct {
		index int
		score int
	}
	winners := make(map[xxh3.Uint128]slot, len(in.Rows))
	var passthrough []int

	var b strings.Builder
	for i, r := range in.Rows {
		key, ok := d.keyOf(&b, r)
		if !ok {
			passthrough = append(passthrough, i)
			continue
		}
		prev, seen := winners[key]
		switch policy {
		case "keep-first":
			if !seen {
				winners[key] = slot{index: i}
			}
		case "most-complete":
			s := slot{index: i, score: completeness(r)}
			if !seen || s.score >= prev.score {
				winners[key] = s
			}
		default:
			winners[key] = slot{index: i}
		}
	}

	idx := make([]int, 0, len(winners))
	for _, s := range winners {
		idx = append(idx, s.index)
	}
	sort.Ints(idx)

	out := records.Table{Columns: in.Columns, Rows: make([]records.Record, 0, len(idx)+len(passthrough))}
	for _, i := range idx {
		out.Rows = append(out.Rows, in.Rows[i])
	}
	for _, i := range passthrough {
		out.Rows = append(out.Rows, in.Rows[i])
	}
	return out, nil
}

// keyOf hashes the key cells of r. It reports false when a key field is
// absent from the row.
func (d DeDup) keyOf(b *strings.Builder, r records.Record) (xxh3.Uint128, bool) {
	b.Reset()
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok {
			return xxh3.Uint128{}, false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if v == nil {
			b.WriteByte('\x00')
			continue
		}
		b.WriteString(records.FormatValue(v))
	}
	return xxh3.HashString128(b.String()), true
}

func completeness(r records.Record) int {
	n := 0
	for _, v := range r {
		if !missing(v) {
			n++
		}
	}
	return n
}
