// Package inspect profiles a raw input before it is cleaned: which years and
// countries it holds, which regions fall outside the known enumeration, how
// many cells are missing and which annotation flags occur. A report can also
// seed a starter pipeline config.
package inspect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"lifeexp/internal/config"
	"lifeexp/internal/country"
	"lifeexp/internal/transformer/builtin"
	"lifeexp/pkg/records"
)

// maxDimensionValues caps the distinct values kept per identifier dimension.
const maxDimensionValues = 20

// flagSuffix matches a trailing annotation such as the "b" in "75.5 b" or
// the "c" in ": c".
var flagSuffix = regexp.MustCompile(`(?:^|[\s:])([a-z]{1,3})\s*$`)

// Report summarizes one input.
type Report struct {
	Source  string   `json:"source"`
	Format  string   `json:"format"`
	Rows    int      `json:"rows"`
	Skipped int      `json:"skipped"`
	Columns []string `json:"columns"`

	// YearColumns lists the year headers of a wide table, in file order.
	YearColumns []string `json:"year_columns,omitempty"`

	// Observations is the number of (row, year) cells, or rows for long input.
	Observations int `json:"observations"`
	MissingCells int `json:"missing_cells"`

	Countries      map[string]int      `json:"countries"`
	UnknownRegions map[string]int      `json:"unknown_regions,omitempty"`
	Flags          map[string]int      `json:"flags,omitempty"`
	Dimensions     map[string][]string `json:"dimensions,omitempty"`
}

// Options selects how a table is read.
type Options struct {
	// Format is "tsv" (wide) or "json" (long).
	Format string

	// CountryColumn names the country column of long input. Empty means
	// "country".
	CountryColumn string
}

// Profile builds a Report for t. Wide tables are melted first so that every
// year cell counts as one observation.
func Profile(source string, t records.Table, skipped int, opt Options) (Report, error) {
	rep := Report{
		Source:         source,
		Format:         strings.ToLower(opt.Format),
		Rows:           t.Len(),
		Skipped:        skipped,
		Columns:        t.Columns,
		Countries:      map[string]int{},
		UnknownRegions: map[string]int{},
		Flags:          map[string]int{},
		Dimensions:     map[string][]string{},
	}

	regionCol := opt.CountryColumn
	if regionCol == "" {
		regionCol = "country"
	}
	long := t
	switch rep.Format {
	case "tsv":
		melted, err := builtin.Unpivot{}.Apply(t)
		if err != nil {
			return Report{}, fmt.Errorf("inspect: %s: %w", source, err)
		}
		long = melted
		rep.YearColumns = append([]string(nil), t.Columns[1:]...)
		regionCol = builtin.ColRegion
	case "json":
	default:
		return Report{}, fmt.Errorf("inspect: unsupported format %q", opt.Format)
	}

	seen := map[string]map[string]bool{}
	for _, r := range long.Rows {
		rep.Observations++

		if region := strings.TrimSpace(records.FormatValue(r[regionCol])); region != "" {
			if c, err := country.Parse(region); err == nil {
				rep.Countries[string(c)]++
			} else {
				rep.UnknownRegions[region]++
			}
		}

		v := r[builtin.ColValue]
		if s, ok := v.(string); ok {
			if m := flagSuffix.FindStringSubmatch(s); m != nil {
				rep.Flags[m[1]]++
			}
		}
		if missing(v) {
			rep.MissingCells++
		}

		for _, dim := range []string{builtin.ColUnit, builtin.ColSex, builtin.ColAge} {
			val := records.FormatValue(r[dim])
			if val == "" {
				continue
			}
			if seen[dim] == nil {
				seen[dim] = map[string]bool{}
			}
			if !seen[dim][val] && len(seen[dim]) < maxDimensionValues {
				seen[dim][val] = true
				rep.Dimensions[dim] = append(rep.Dimensions[dim], val)
			}
		}
	}
	for _, vals := range rep.Dimensions {
		sort.Strings(vals)
	}
	return rep, nil
}

// missing reports a cell the cleaning chain would drop.
func missing(v any) bool {
	return builtin.Decimal(v) == nil
}

// KnownCountries returns the enumerated codes found, sorted.
func (r Report) KnownCountries() []string {
	out := make([]string, 0, len(r.Countries))
	for c := range r.Countries {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// StarterConfig proposes a pipeline for the inspected source: its parser
// kind, every known country it holds, and csv output in outDir.
func (r Report) StarterConfig(outDir string) config.Pipeline {
	p := config.Default()
	p.Countries = r.KnownCountries()
	p.Source.File.Path = r.Source
	p.Parser.Kind = r.Format
	if outDir != "" {
		p.Storage.CSV.Dir = outDir
	}
	return p
}
