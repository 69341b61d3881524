package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lifeexp/internal/config"
	"lifeexp/internal/country"
	"lifeexp/internal/parser/tsv"
	"lifeexp/internal/transformer"
	"lifeexp/internal/transformer/builtin"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "data/eu_life_expectancy_raw.tsv", want: "tsv"},
		{name: "EXPORT.TSV", want: "tsv"},
		{name: "records.json", want: "json"},
		{name: "records.Json", want: "json"},
		{name: "table.csv", wantErr: true},
		{name: "noext", wantErr: true},
		{name: "archive.tsv.gz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Select(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, s.Name())
		})
	}
}

/*
TestForSource_KindOverridesExtension verifies a configured parser kind wins
over the file extension, and that its options reach the strategy.
*/
func TestForSource_KindOverridesExtension(t *testing.T) {
	s, err := ForSource("dump.txt", config.Parser{
		Kind:    "JSON",
		Options: config.Options{"country_column": "geo", "coerce": true, "strict": true},
	})
	require.NoError(t, err)
	js, ok := s.(JSON)
	require.True(t, ok, "got %T", s)
	require.Equal(t, "geo", js.CountryColumn)
	require.True(t, js.Coerce)
	require.True(t, js.Options.Strict)

	_, err = ForSource("dump.txt", config.Parser{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.Contains(t, err.Error(), "dump.txt")

	_, err = ForSource("x.tsv", config.Parser{Kind: "xml"})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func chainNames(c transformer.Chain) []string {
	out := make([]string, len(c))
	for i, t := range c {
		out[i] = transformer.NameOf(t)
	}
	return out
}

func TestStrategyChains(t *testing.T) {
	set := country.NewSet(country.PT)

	require.Equal(t,
		[]string{"unpivot", "normalize", "coerce", "require", "filter_country"},
		chainNames(TSV{}.Chain(set)))
	require.Equal(t,
		[]string{"mask_empty", "filter_country"},
		chainNames(JSON{}.Chain(set)))
	require.Equal(t,
		[]string{"mask_empty", "coerce", "require", "filter_country"},
		chainNames(JSON{Coerce: true}.Chain(set)))

	f := JSON{}.Chain(set)[1].(builtin.CountryFilter)
	require.Equal(t, DefaultCountryColumn, f.Column)
}

/*
TestTSVStrategy_LoadAndClean runs the strategy directly, without persistence,
and checks the long-form row count equals rows times year columns before the
value filter.
*/
func TestTSVStrategy_LoadAndClean(t *testing.T) {
	in := "unit,sex,age,geo\\time\t2021 \t2020 \t2019 \n" +
		"YR,F,Y10,PT\t81.0 \t80.9 e\t: \n" +
		"YR,F,Y10,DE\t82.3\t: c\t81.1 b\n"
	s := TSV{}
	tbl, skipped, err := s.Load(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Zero(t, skipped)

	long, err := builtin.Unpivot{}.Apply(tbl)
	require.NoError(t, err)
	require.Equal(t, 2*3, long.Len())

	out, err := s.Clean(tbl, country.Set{})
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	for _, r := range out.Rows {
		require.IsType(t, 0.0, r[builtin.ColValue])
		require.IsType(t, 0, r[builtin.ColYear])
	}

	pt, err := s.Clean(tbl, country.NewSet(country.PT))
	require.NoError(t, err)
	require.Equal(t, 2, pt.Len())
}

func TestStrategyLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := TSV{}.Load(ctx, strings.NewReader("a\tb\n"))
	require.ErrorIs(t, err, context.Canceled)
	_, _, err = JSON{}.Load(ctx, strings.NewReader("[]"))
	require.ErrorIs(t, err, context.Canceled)
}

/*
TestTSVStrategy_RowWidth verifies a short body row fails the load unless the
parser is configured with lenient, which skips and counts it.
*/
func TestTSVStrategy_RowWidth(t *testing.T) {
	in := "unit,sex,age,geo\\time\t2020 \t2019 \n" +
		"YR,F,Y10,PT\t81.0\t80.9\n" +
		"YR,F,Y10,DE\t82.3\n"

	_, _, err := TSV{}.Load(context.Background(), strings.NewReader(in))
	require.ErrorIs(t, err, tsv.ErrRowWidth)

	s, err := ForSource("eu.tsv", config.Parser{Options: config.Options{"lenient": true}})
	require.NoError(t, err)
	tbl, skipped, err := s.Load(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Equal(t, 1, tbl.Len())
}
