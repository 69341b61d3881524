package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"lifeexp/internal/inspect"
	"lifeexp/internal/pipeline"
)

// inspectSources profiles every source and writes the reports to w as a JSON
// array. With starter set it writes a YAML pipeline config for the first
// source instead.
func inspectSources(ctx context.Context, runs []*pipeline.Pipeline, outDir string, starter bool, w io.Writer) error {
	reports := make([]inspect.Report, 0, len(runs))
	for _, p := range runs {
		rep, err := profile(ctx, p)
		if err != nil {
			return err
		}
		reports = append(reports, rep)
	}

	if starter {
		b, err := yaml.Marshal(reports[0].StarterConfig(outDir))
		if err != nil {
			return fmt.Errorf("encode starter config: %w", err)
		}
		_, err = w.Write(b)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func profile(ctx context.Context, p *pipeline.Pipeline) (inspect.Report, error) {
	name := p.Source.Name()
	rc, err := p.Source.Open(ctx)
	if err != nil {
		return inspect.Report{}, err
	}
	defer rc.Close()

	tbl, skipped, err := p.Strategy.Load(ctx, rc)
	if err != nil {
		return inspect.Report{}, fmt.Errorf("load %s: %w", name, err)
	}
	opt := inspect.Options{Format: p.Strategy.Name()}
	if js, ok := p.Strategy.(pipeline.JSON); ok {
		opt.CountryColumn = js.CountryColumn
	}
	return inspect.Profile(name, tbl, skipped, opt)
}
