package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lifeexp/internal/config"
	"lifeexp/internal/datasource"
	"lifeexp/internal/datasource/file"
	"lifeexp/internal/datasource/httpds"
	"lifeexp/internal/logging"
	"lifeexp/internal/pipeline"
)

// newHTTPClient is a test seam.
var newHTTPClient = func() *httpds.Client {
	return httpds.NewClient(httpds.Config{MaxRetries: 3})
}

// sourcePaths gathers inputs from -source, then -source-list, then the
// config file, then DefaultSource.
func sourcePaths(o options, cfg config.Pipeline) ([]string, error) {
	paths := append([]string(nil), o.sources...)
	if o.sourceList != "" {
		listed, err := file.ReadList(o.sourceList)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 && strings.TrimSpace(cfg.Source.File.Path) != "" {
		paths = append(paths, cfg.Source.File.Path)
	}
	if len(paths) == 0 {
		paths = append(paths, DefaultSource)
	}
	return paths, nil
}

func buildSources(paths []string) []datasource.Source {
	var client *httpds.Client
	out := make([]datasource.Source, 0, len(paths))
	for _, p := range paths {
		if httpds.IsURL(p) {
			if client == nil {
				client = newHTTPClient()
			}
			out = append(out, httpds.NewSource(client, p))
			continue
		}
		out = append(out, file.NewLocal(p))
	}
	return out
}

// buildRuns resolves one pipeline per source. With more than one source each
// output key gets the source's file stem as a prefix.
func buildRuns(cfg config.Pipeline, srcs []datasource.Source) ([]*pipeline.Pipeline, error) {
	runs := make([]*pipeline.Pipeline, 0, len(srcs))
	seen := map[string]string{}
	for _, src := range srcs {
		p, err := pipeline.New(cfg, src)
		if err != nil {
			return nil, err
		}
		if len(srcs) > 1 {
			p.KeyPrefix = stem(src.Name())
		}
		if prev, dup := seen[p.Key()]; dup {
			return nil, fmt.Errorf("sources %s and %s both write key %q", prev, src.Name(), p.Key())
		}
		seen[p.Key()] = src.Name()
		runs = append(runs, p)
	}
	return runs, nil
}

// stem returns the base name of p without its extension.
func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// execute runs every pipeline, at most cfg.Runtime.Concurrency at a time.
// The first failure cancels the runs still in flight.
func execute(ctx context.Context, cfg config.Pipeline, runs []*pipeline.Pipeline) error {
	ctx = logging.WithRunID(ctx, uuid.NewString())
	log := logging.WithFields(ctx, "job", cfg.Job)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Runtime.Concurrency > 0 {
		g.SetLimit(cfg.Runtime.Concurrency)
	}
	results := make([]pipeline.Result, len(runs))
	for i, p := range runs {
		i, p := i, p
		g.Go(func() error {
			res, err := p.Run(gctx)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var loaded, written int64
	for _, res := range results {
		loaded += res.Stats.Loaded
		written += res.Stats.Written
		log.Info("output",
			"key", res.Key,
			"destination", res.Destination,
			"rows", humanize.Comma(res.Stats.Written),
		)
	}
	log.Info("run complete",
		"sources", len(runs),
		"rows_loaded", humanize.Comma(loaded),
		"rows_written", humanize.Comma(written),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	log.Debug("run finished", "started", humanize.Time(start))
	return nil
}
