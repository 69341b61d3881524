package pipeline

import (
	"fmt"
	"strings"

	"lifeexp/internal/config"
	"lifeexp/internal/country"
	"lifeexp/internal/transformer"
	"lifeexp/internal/transformer/builtin"
)

// BuildTransformers turns configured transform steps into a Chain, in order.
func BuildTransformers(ts []config.Transform) (transformer.Chain, error) {
	chain := make(transformer.Chain, 0, len(ts))
	for i, t := range ts {
		tr, err := buildTransformer(t)
		if err != nil {
			return nil, fmt.Errorf("pipeline: transform[%d]: %w", i, err)
		}
		chain = append(chain, tr)
	}
	return chain, nil
}

func buildTransformer(t config.Transform) (transformer.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(t.Kind)) {
	case "unpivot":
		return builtin.Unpivot{}, nil
	case "normalize":
		return builtin.Normalize{}, nil
	case "coerce":
		types := t.Options.StringMap("types")
		if len(types) == 0 {
			types = builtin.DefaultNumericTypes
		}
		return builtin.Coerce{Types: types}, nil
	case "require":
		return builtin.Require{Fields: t.Options.StringSlice("fields")}, nil
	case "mask_empty":
		return builtin.MaskEmpty{}, nil
	case "filter_country":
		set, err := country.ParseCodes(t.Options.StringSlice("countries"))
		if err != nil {
			return nil, err
		}
		return builtin.CountryFilter{
			Column:    t.Options.String("column", builtin.ColRegion),
			Countries: set,
		}, nil
	case "dedupe":
		return builtin.DeDup{
			Keys:   t.Options.StringSlice("keys"),
			Policy: t.Options.String("policy", "keep-last"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown transform kind %q", t.Kind)
	}
}

// columnTypes collects the coerce type map of ts layered over the default
// numeric types. It drives column types for auto-created tables.
func columnTypes(ts []config.Transform) map[string]string {
	out := make(map[string]string, len(builtin.DefaultNumericTypes))
	for k, v := range builtin.DefaultNumericTypes {
		out[k] = v
	}
	for _, t := range ts {
		if strings.EqualFold(t.Kind, "coerce") {
			for k, v := range t.Options.StringMap("types") {
				out[k] = v
			}
		}
	}
	return out
}
