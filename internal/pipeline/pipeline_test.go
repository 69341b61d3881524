package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"lifeexp/internal/config"
	"lifeexp/internal/datasource/file"
	"lifeexp/internal/metrics"
	"lifeexp/internal/storage"
	_ "lifeexp/internal/storage/sqlite"
	"lifeexp/internal/transformer/builtin"
)

type stepCall struct {
	step, status string
}

// recorder is a metrics.Backend that keeps step outcomes and row totals.
type recorder struct {
	mu    sync.Mutex
	steps []stepCall
	rows  map[string]float64
}

func (r *recorder) IncCounter(name string, delta float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch name {
	case metrics.StepTotal:
		r.steps = append(r.steps, stepCall{step: l["step"], status: l["status"]})
	case metrics.RowsTotal:
		r.rows[l["kind"]] += delta
	}
}

func (r *recorder) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recorder) Flush() error                                     { return nil }

func installRecorder(t *testing.T) *recorder {
	t.Helper()
	r := &recorder{rows: map[string]float64{}}
	metrics.SetBackend(r)
	t.Cleanup(metrics.Reset)
	return r
}

func csvConfig(dir string, countries ...string) config.Pipeline {
	cfg := config.Default()
	cfg.Countries = countries
	cfg.Storage.CSV.Dir = dir
	return cfg
}

func run(t *testing.T, cfg config.Pipeline, path string) Result {
	t.Helper()
	p, err := New(cfg, file.NewLocal(path))
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	return res
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

/*
TestRun_TSVPortugal covers the whole TSV path for a PT filter: the wide rows
are melted, flagged values reduced to their number, missing values dropped,
other countries removed and the result written to pt_life_expectancy.csv.
*/
func TestRun_TSVPortugal(t *testing.T) {
	rec := installRecorder(t)
	dir := t.TempDir()

	res := run(t, csvConfig(dir, "pt"), "testdata/pt_fr.tsv")

	require.Equal(t, "pt", res.Key)
	require.Equal(t, filepath.Join(dir, "pt_life_expectancy.csv"), res.Destination)
	require.Equal(t, Stats{Loaded: 3, Dropped: 3, Kept: 3, Written: 3}, res.Stats)

	rows, err := NormalizedRows(res.Table)
	require.NoError(t, err)
	require.Equal(t, []NormalizedRow{
		{Unit: "YR", Sex: "F", Age: "Y10", Region: "PT", Year: 2019, Value: 75.5},
		{Unit: "YR", Sex: "F", Age: "Y10", Region: "PT", Year: 2020, Value: 76.2},
		{Unit: "YR", Sex: "M", Age: "Y10", Region: "PT", Year: 2020, Value: 72.3},
	}, rows)

	want := "unit,sex,age,region,year,value\n" +
		"YR,F,Y10,PT,2019,75.5\n" +
		"YR,F,Y10,PT,2020,76.2\n" +
		"YR,M,Y10,PT,2020,72.3\n"
	require.Equal(t, want, readFile(t, res.Destination))

	require.EqualValues(t, 3, rec.rows["loaded"])
	require.EqualValues(t, 3, rec.rows["dropped"])
	require.EqualValues(t, 3, rec.rows["written"])
	require.Contains(t, rec.steps, stepCall{step: "transform:unpivot", status: "success"})
	require.Contains(t, rec.steps, stepCall{step: "save", status: "success"})
}

/*
TestRun_TSVNoFilter verifies an empty country set keeps every country and
writes under the "eu" key.
*/
func TestRun_TSVNoFilter(t *testing.T) {
	dir := t.TempDir()

	res := run(t, csvConfig(dir), "testdata/pt_fr.tsv")

	require.Equal(t, "eu", res.Key)
	require.EqualValues(t, 4, res.Stats.Kept)
	content := readFile(t, filepath.Join(dir, "eu_life_expectancy.csv"))
	require.Contains(t, content, "YR,F,Y10,FR,2020,80.1\n")
	require.NotContains(t, content, "2019,\n")
}

func TestRun_TSVMultipleCountriesKey(t *testing.T) {
	dir := t.TempDir()

	res := run(t, csvConfig(dir, "FR", "PT", "fr"), "testdata/pt_fr.tsv")

	require.Equal(t, "fr-pt", res.Key)
	require.EqualValues(t, 4, res.Stats.Kept)
	_, err := os.Stat(filepath.Join(dir, "fr-pt_life_expectancy.csv"))
	require.NoError(t, err)
}

/*
TestRun_JSONMasking verifies the record variant: empty strings read as
missing, the country filter is case-insensitive, and masked values survive as
empty CSV fields because no coercion runs by default.
*/
func TestRun_JSONMasking(t *testing.T) {
	dir := t.TempDir()

	res := run(t, csvConfig(dir, "PT"), "testdata/records.json")

	require.EqualValues(t, 5, res.Stats.Loaded)
	require.EqualValues(t, 3, res.Stats.Kept)
	require.Nil(t, res.Table.Rows[1][builtin.ColValue])

	want := "unit,sex,age,country,year,value,flag\n" +
		"YR,F,Y65,PT,2021,21.7,\n" +
		"YR,M,Y65,pt,2021,,e\n" +
		"YR,T,Y65,PT,2020,0,\n"
	require.Equal(t, want, readFile(t, res.Destination))
}

/*
TestRun_JSONCoerceDropsMissing verifies opt-in coercion of records: the
masked value is dropped while a present zero survives as a number.
*/
func TestRun_JSONCoerceDropsMissing(t *testing.T) {
	cfg := csvConfig(t.TempDir(), "PT")
	cfg.Parser.Options = config.Options{"coerce": true}

	res := run(t, cfg, "testdata/records.json")

	require.EqualValues(t, 2, res.Stats.Kept)
	require.Equal(t, 21.7, res.Table.Rows[0][builtin.ColValue])
	require.Equal(t, 2021, res.Table.Rows[0][builtin.ColYear])
	require.Equal(t, 0.0, res.Table.Rows[1][builtin.ColValue])
	require.Equal(t, 2020, res.Table.Rows[1][builtin.ColYear])
	require.Contains(t, readFile(t, res.Destination), "YR,T,Y65,PT,2020,0,\n")
}

func TestRun_ExtraTransforms(t *testing.T) {
	cfg := csvConfig(t.TempDir(), "PT")
	cfg.Transform = []config.Transform{{
		Kind:    "dedupe",
		Options: config.Options{"keys": []any{"region", "year"}, "policy": "keep-first"},
	}}

	res := run(t, cfg, "testdata/pt_fr.tsv")

	// F and M share (PT, 2020); the first one wins.
	require.EqualValues(t, 2, res.Stats.Kept)
	require.Equal(t, "F", res.Table.Rows[1][builtin.ColSex])
}

/*
TestRun_StructureError verifies a malformed wide header aborts the run with
ErrStructure, records a failed clean step and writes nothing.
*/
func TestRun_StructureError(t *testing.T) {
	rec := installRecorder(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.tsv")
	require.NoError(t, os.WriteFile(src, []byte("geo\t2019\nPT\t1.5\n"), 0o644))

	p, err := New(csvConfig(dir), file.NewLocal(src))
	require.NoError(t, err)
	_, err = p.Run(context.Background())

	require.ErrorIs(t, err, builtin.ErrStructure)
	require.Contains(t, rec.steps, stepCall{step: "clean", status: "failure"})
	_, statErr := os.Stat(filepath.Join(dir, "eu_life_expectancy.csv"))
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_MissingSource(t *testing.T) {
	p, err := New(csvConfig(t.TempDir()), file.NewLocal(filepath.Join(t.TempDir(), "nope.tsv")))
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "pipeline: load")
}

func TestRun_RepositoryError(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })
	boom := errors.New("boom")
	newRepository = func(context.Context, storage.Config) (storage.Repository, error) { return nil, boom }

	p, err := New(csvConfig(t.TempDir(), "PT"), file.NewLocal("testdata/pt_fr.tsv"))
	require.NoError(t, err)
	res, err := p.Run(context.Background())

	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "pipeline: save pt")
	require.EqualValues(t, 3, res.Stats.Kept)
	require.Zero(t, res.Stats.Written)
}

func TestRun_KeyPrefix(t *testing.T) {
	dir := t.TempDir()
	p, err := New(csvConfig(dir, "PT"), file.NewLocal("testdata/pt_fr.tsv"))
	require.NoError(t, err)
	p.KeyPrefix = "pt_fr"

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "pt_fr_pt_life_expectancy.csv"), res.Destination)
}

/*
TestRun_SQLiteAutoCreate persists into a file-backed SQLite database with an
auto-created table keyed on the normalized identifiers.
*/
func TestRun_SQLiteAutoCreate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "lifeexp.db")
	cfg := config.Default()
	cfg.Countries = []string{"PT"}
	cfg.Storage = config.Storage{
		Kind: "sqlite",
		DB: config.DBConfig{
			DSN:             dsn,
			Table:           "life_expectancy",
			KeyColumns:      []string{"unit", "sex", "age", "region", "year"},
			AutoCreateTable: true,
		},
	}

	res := run(t, cfg, "testdata/pt_fr.tsv")
	require.Equal(t, "life_expectancy", res.Destination)
	require.EqualValues(t, 3, res.Stats.Written)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var n int
	var sum float64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(value) FROM life_expectancy WHERE region = 'PT'`).Scan(&n, &sum))
	require.Equal(t, 3, n)
	require.InDelta(t, 75.5+76.2+72.3, sum, 1e-9)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Pipeline)
		source string
		want   error
	}{
		{
			name:   "unknown country",
			mutate: func(p *config.Pipeline) { p.Countries = []string{"PT", "US"} },
			source: "x.tsv",
		},
		{
			name:   "unsupported extension",
			mutate: func(*config.Pipeline) {},
			source: "x.csv",
			want:   ErrUnsupportedFormat,
		},
		{
			name: "unknown transform",
			mutate: func(p *config.Pipeline) {
				p.Transform = []config.Transform{{Kind: "pivot"}}
			},
			source: "x.tsv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			_, err := New(cfg, file.NewLocal(tt.source))
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNormalizedRows_RejectsUncleanRows(t *testing.T) {
	res := run(t, csvConfig(t.TempDir(), "PT"), "testdata/pt_fr.tsv")
	tbl := res.Table
	tbl.Rows = append(tbl.Rows[:1:1], tbl.Rows[0].Clone())
	tbl.Rows[1][builtin.ColValue] = nil

	_, err := NormalizedRows(tbl)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "row 1"))
}
