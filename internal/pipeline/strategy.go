package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"lifeexp/internal/config"
	"lifeexp/internal/country"
	jsonparser "lifeexp/internal/parser/json"
	"lifeexp/internal/parser/tsv"
	"lifeexp/internal/transformer"
	"lifeexp/internal/transformer/builtin"
	"lifeexp/pkg/records"
)

// ErrUnsupportedFormat reports an input whose extension or configured parser
// kind has no strategy.
var ErrUnsupportedFormat = errors.New("pipeline: unsupported format")

// Strategy loads one input format and cleans it into the output table.
type Strategy interface {
	Name() string

	// Load parses r into a table. The int is the number of input rows the
	// parser skipped.
	Load(ctx context.Context, r io.Reader) (records.Table, int, error)

	// Chain returns the cleaning steps for countries, in order.
	Chain(countries country.Set) transformer.Chain

	// Clean runs Chain(countries) over t.
	Clean(t records.Table, countries country.Set) (records.Table, error)
}

// TSV handles the wide Eurostat export: one row per (unit, sex, age, region)
// and one column per year.
type TSV struct {
	Options tsv.Options
}

// Name implements Strategy.
func (TSV) Name() string { return "tsv" }

// Load implements Strategy.
func (s TSV) Load(ctx context.Context, r io.Reader) (records.Table, int, error) {
	if err := ctx.Err(); err != nil {
		return records.Table{}, 0, err
	}
	return tsv.NewParser(s.Options).Parse(r)
}

// Chain implements Strategy. Rows whose value or year cannot be read as a
// number are dropped.
func (TSV) Chain(countries country.Set) transformer.Chain {
	return transformer.Chain{
		builtin.Unpivot{},
		builtin.Normalize{},
		builtin.Coerce{Types: builtin.DefaultNumericTypes},
		builtin.Require{Fields: []string{builtin.ColValue, builtin.ColYear}},
		builtin.CountryFilter{Column: builtin.ColRegion, Countries: countries},
	}
}

// Clean implements Strategy.
func (s TSV) Clean(t records.Table, countries country.Set) (records.Table, error) {
	return s.Chain(countries).Apply(t)
}

// DefaultCountryColumn is the column the JSON strategy filters on.
const DefaultCountryColumn = "country"

// JSON handles record-oriented input that is already long-form. Empty
// strings become missing values and rows are filtered on CountryColumn.
type JSON struct {
	Options jsonparser.Options

	// CountryColumn defaults to DefaultCountryColumn.
	CountryColumn string

	// Coerce additionally applies decimal-token extraction to year and value
	// and drops rows without a value.
	Coerce bool
}

// Name implements Strategy.
func (JSON) Name() string { return "json" }

// Load implements Strategy.
func (s JSON) Load(ctx context.Context, r io.Reader) (records.Table, int, error) {
	if err := ctx.Err(); err != nil {
		return records.Table{}, 0, err
	}
	return jsonparser.NewParser(s.Options).Parse(r)
}

// Chain implements Strategy.
func (s JSON) Chain(countries country.Set) transformer.Chain {
	col := s.CountryColumn
	if col == "" {
		col = DefaultCountryColumn
	}
	c := transformer.Chain{builtin.MaskEmpty{}}
	if s.Coerce {
		c = append(c,
			builtin.Coerce{Types: builtin.DefaultNumericTypes},
			builtin.Require{Fields: []string{builtin.ColValue}},
		)
	}
	return append(c, builtin.CountryFilter{Column: col, Countries: countries})
}

// Clean implements Strategy.
func (s JSON) Clean(t records.Table, countries country.Set) (records.Table, error) {
	return s.Chain(countries).Apply(t)
}

// Select picks the strategy for name by its extension, ignoring case.
func Select(name string) (Strategy, error) {
	return SelectKind(strings.TrimPrefix(filepath.Ext(name), "."), nil)
}

// SelectKind picks the strategy for a parser kind ("tsv" or "json"),
// configured from opts.
func SelectKind(kind string, opts config.Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tsv":
		return TSV{Options: tsv.Options{
			TrimSpace: opts.Bool("trim_space", false),
			Lenient:   opts.Bool("lenient", false),
		}}, nil
	case "json":
		return JSON{
			Options:       jsonparser.FromConfigOptions(opts),
			CountryColumn: opts.String("country_column", DefaultCountryColumn),
			Coerce:        opts.Bool("coerce", false),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
}

// ForSource resolves the strategy for a source name, preferring an explicit
// parser kind over the extension.
func ForSource(name string, p config.Parser) (Strategy, error) {
	if strings.TrimSpace(p.Kind) != "" {
		return SelectKind(p.Kind, p.Options)
	}
	kind := strings.TrimPrefix(filepath.Ext(name), ".")
	s, err := SelectKind(kind, p.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return s, nil
}
