package builtin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"lifeexp/internal/country"
	"lifeexp/pkg/records"
)

func regions(tbl records.Table, col string) []any {
	out := make([]any, 0, tbl.Len())
	for _, r := range tbl.Rows {
		out = append(out, r[col])
	}
	return out
}

func TestCountryFilter_KeepsMatchingCaseInsensitive(t *testing.T) {
	set, err := country.ParseList("pt,FR")
	require.NoError(t, err)

	in := records.Table{
		Columns: []string{ColRegion, ColValue},
		Rows: []records.Record{
			{ColRegion: "PT", ColValue: 1.0},
			{ColRegion: "DE", ColValue: 2.0},
			{ColRegion: "fr", ColValue: 3.0},
			{ColRegion: nil, ColValue: 4.0},
			{ColRegion: "EU27_2020", ColValue: 5.0},
		},
	}
	out, err := CountryFilter{Column: ColRegion, Countries: set}.Apply(in)
	require.NoError(t, err)
	require.Equal(t, []any{"PT", "fr"}, regions(out, ColRegion))
}

func TestCountryFilter_EmptySetKeepsAll(t *testing.T) {
	in := records.Table{
		Columns: []string{ColRegion},
		Rows:    []records.Record{{ColRegion: "PT"}, {ColRegion: "XX"}, {ColRegion: nil}},
	}
	out, err := CountryFilter{Column: ColRegion}.Apply(in)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
}

func TestCountryFilter_MissingColumn(t *testing.T) {
	set, err := country.ParseList("PT")
	require.NoError(t, err)

	in := records.Table{Columns: []string{"geo"}, Rows: []records.Record{{"geo": "PT"}}}
	_, err = CountryFilter{Column: "country", Countries: set}.Apply(in)
	require.True(t, errors.Is(err, ErrStructure), "err = %v", err)
}
