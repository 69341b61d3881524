// Package pipeline runs one input through load, clean and save.
//
// A Strategy is picked per input (by parser kind or file extension). The TSV
// strategy reshapes the wide export into long form, extracts numeric values
// and filters countries; the JSON strategy masks empty strings and filters.
// The cleaned table is persisted through the storage registry under a key
// derived from the country set.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifeexp/internal/config"
	"lifeexp/internal/country"
	"lifeexp/internal/datasource"
	"lifeexp/internal/logging"
	"lifeexp/internal/metrics"
	"lifeexp/internal/storage"
	"lifeexp/internal/storage/csvfile"
	"lifeexp/internal/transformer"
	"lifeexp/pkg/records"
)

// newRepository is a test seam.
var newRepository = storage.New

// Pipeline is one configured run over a single source.
type Pipeline struct {
	Job       string
	Source    datasource.Source
	Strategy  Strategy
	Countries country.Set

	// Extra runs after the strategy's cleaning chain.
	Extra transformer.Chain

	// Storage is the destination. Key and, when empty, Columns are filled
	// in by Run.
	Storage         storage.Config
	AutoCreateTable bool
	BatchSize       int

	// KeyPrefix is prepended to the country key, joined by "_". It keeps
	// outputs of several sources apart.
	KeyPrefix string
}

// Stats counts rows through one run.
//
// Loaded and Skipped are input rows as the parser saw them. Dropped counts
// rows removed by cleaning steps, Kept the rows of the final table and
// Written the rows the destination accepted.
type Stats struct {
	Loaded  int64
	Skipped int64
	Dropped int64
	Kept    int64
	Written int64
}

// Result is the outcome of Run.
type Result struct {
	Table records.Table
	Stats Stats

	// Key is the destination key, Destination the file path or table name.
	Key         string
	Destination string
}

// New builds a Pipeline for src from cfg.
func New(cfg config.Pipeline, src datasource.Source) (*Pipeline, error) {
	countries, err := country.ParseCodes(cfg.Countries)
	if err != nil {
		return nil, fmt.Errorf("pipeline: countries: %w", err)
	}
	strategy, err := ForSource(src.Name(), cfg.Parser)
	if err != nil {
		return nil, err
	}
	extra, err := BuildTransformers(cfg.Transform)
	if err != nil {
		return nil, err
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.Storage.Kind))
	if kind == "" {
		kind = csvfile.Kind
	}
	return &Pipeline{
		Job:       cfg.Job,
		Source:    src,
		Strategy:  strategy,
		Countries: countries,
		Extra:     extra,
		Storage: storage.Config{
			Kind:       kind,
			DSN:        cfg.Storage.DB.DSN,
			Table:      cfg.Storage.DB.Table,
			Columns:    cfg.Storage.DB.Columns,
			KeyColumns: cfg.Storage.DB.KeyColumns,
			Types:      columnTypes(cfg.Transform),
			Dir:        cfg.Storage.CSV.Dir,
		},
		AutoCreateTable: cfg.Storage.DB.AutoCreateTable,
		BatchSize:       cfg.Runtime.BatchSize,
	}, nil
}

// Key returns the destination key: the country set key, prefixed with
// KeyPrefix when set.
func (p *Pipeline) Key() string {
	key := p.Countries.Key()
	if p.KeyPrefix != "" {
		key = p.KeyPrefix + "_" + key
	}
	return key
}

// Run loads, cleans and saves. Each step is timed into the metrics backend.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{Key: p.Key()}
	name := p.Source.Name()
	log := logging.WithFields(ctx, "job", p.Job, "source", name, "strategy", p.Strategy.Name())

	start := time.Now()
	tbl, skipped, err := p.load(ctx)
	metrics.RecordStep(p.Job, "load", err, time.Since(start))
	if err != nil {
		return res, fmt.Errorf("pipeline: load %s: %w", name, err)
	}
	res.Stats.Loaded = int64(tbl.Len())
	res.Stats.Skipped = int64(skipped)
	metrics.RecordRow(p.Job, "loaded", res.Stats.Loaded)
	metrics.RecordRow(p.Job, "skipped", res.Stats.Skipped)
	log.Info("loaded", "rows", res.Stats.Loaded, "skipped", res.Stats.Skipped)

	start = time.Now()
	chain := append(p.Strategy.Chain(p.Countries), p.Extra...)
	out, err := observe(p.Job, chain, &res.Stats).Apply(tbl)
	metrics.RecordStep(p.Job, "clean", err, time.Since(start))
	if err != nil {
		return res, fmt.Errorf("pipeline: clean %s: %w", name, err)
	}
	res.Table = out
	res.Stats.Kept = int64(out.Len())
	metrics.RecordRow(p.Job, "dropped", res.Stats.Dropped)
	metrics.RecordRow(p.Job, "kept", res.Stats.Kept)
	log.Info("cleaned", "rows", res.Stats.Kept, "dropped", res.Stats.Dropped, "countries", p.Countries.String())

	start = time.Now()
	written, dest, err := p.save(ctx, res.Key, out)
	metrics.RecordStep(p.Job, "save", err, time.Since(start))
	res.Stats.Written = written
	res.Destination = dest
	if err != nil {
		return res, fmt.Errorf("pipeline: save %s: %w", res.Key, err)
	}
	metrics.RecordRow(p.Job, "written", written)
	log.Info("saved", "rows", written, "kind", p.Storage.Kind, "destination", dest)

	return res, nil
}

func (p *Pipeline) load(ctx context.Context) (records.Table, int, error) {
	rc, err := p.Source.Open(ctx)
	if err != nil {
		return records.Table{}, 0, err
	}
	defer rc.Close()
	return p.Strategy.Load(ctx, rc)
}

func (p *Pipeline) save(ctx context.Context, key string, t records.Table) (int64, string, error) {
	cfg := p.Storage
	cfg.Key = key
	if len(cfg.Columns) == 0 {
		cfg.Columns = t.Columns
	}

	dest := cfg.Table
	if cfg.Kind == csvfile.Kind {
		dir := cfg.Dir
		if dir == "" {
			dir = "."
		}
		dest = csvfile.Path(dir, key)
	}

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return 0, dest, err
	}
	defer repo.Close()

	if p.AutoCreateTable && cfg.Kind != csvfile.Kind {
		if err := storage.EnsureTable(ctx, cfg, repo); err != nil {
			return 0, dest, err
		}
	}

	n, err := storage.LoadRows(ctx, repo, p.Job, cfg.Columns, t.Values(cfg.Columns), p.BatchSize)
	return n, dest, err
}

// observed wraps a cleaning step to time it and count the rows it drops.
type observed struct {
	inner transformer.Transformer
	job   string
	stats *Stats
}

func observe(job string, c transformer.Chain, stats *Stats) transformer.Chain {
	out := make(transformer.Chain, 0, len(c))
	for _, t := range c {
		if t == nil {
			continue
		}
		out = append(out, observed{inner: t, job: job, stats: stats})
	}
	return out
}

func (o observed) Name() string { return transformer.NameOf(o.inner) }

func (o observed) Apply(in records.Table) (records.Table, error) {
	start := time.Now()
	out, err := o.inner.Apply(in)
	metrics.RecordStep(o.job, "transform:"+o.Name(), err, time.Since(start))
	if err == nil && out.Len() < in.Len() {
		o.stats.Dropped += int64(in.Len() - out.Len())
	}
	return out, err
}
