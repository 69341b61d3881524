// Package config defines the serializable configuration model for lifeexp
// pipelines. Pipelines can be loaded from JSON or YAML files and are then
// overridden by CLI flags and environment variables.
//
// Example (trimmed):
//
//	{
//	  "job":       "life_expectancy",
//	  "countries": ["PT", "FR"],
//	  "source":    { "kind": "file", "file": { "path": "data/eu_life_expectancy_raw.tsv" } },
//	  "parser":    { "kind": "tsv" },
//	  "transform": [ { "kind": "dedupe", "options": { "keys": ["region", "year"] } } ],
//	  "storage":   { "kind": "csv", "csv": { "dir": "out" } }
//	}
//
// When "transform" is empty the parser kind's default cleaning chain is used.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline describes a full lifeexp run. It is the top-level object decoded
// from a pipeline file.
type Pipeline struct {
	// Job names the run for metrics labeling.
	Job string `json:"job" yaml:"job"`

	// Countries is the allow-list of country codes. Empty means no filter.
	Countries []string `json:"countries" yaml:"countries"`

	// Source describes where input data comes from (e.g., local file).
	Source Source `json:"source" yaml:"source"`

	// Parser configures how raw bytes are turned into a table. An empty kind
	// selects the parser from the source file extension.
	Parser Parser `json:"parser" yaml:"parser"`

	// Transform lists extra transformations applied after the parser kind's
	// cleaning chain, in order.
	Transform []Transform `json:"transform" yaml:"transform"`

	// Storage describes where the cleaned table is written.
	Storage Storage       `json:"storage" yaml:"storage"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// RuntimeConfig controls batching and multi-source concurrency.
type RuntimeConfig struct {
	// BatchSize is the number of rows handed to a repository per CopyFrom.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Concurrency caps the number of sources processed at once.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// Source identifies the data source. Current kind: "file".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" yaml:"path"`
}

// Parser selects how to parse the raw source ("tsv" or "json").
type Parser struct {
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser implementation. The JSON parser
	// reads "strict", "coerce" (bool) and "country_column"; the TSV parser
	// reads "trim_space" and "lenient" (bool).
	Options Options `json:"options" yaml:"options"`
}

// Transform defines a single transformation step.
type Transform struct {
	// Kind selects the transform implementation (e.g., "normalize", "coerce",
	// "require", "mask_empty", "filter_country", "dedupe", "unpivot").
	Kind string `json:"kind" yaml:"kind"`

	// Options is a free-form map interpreted by the selected transform.
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the sink used to persist the cleaned table.
type Storage struct {
	// Kind selects the storage implementation: "csv" (default), "sqlite",
	// "postgres", "mssql" or "mysql".
	Kind string `json:"kind" yaml:"kind"`

	CSV CSVConfig `json:"csv" yaml:"csv"`
	DB  DBConfig  `json:"db" yaml:"db"`
}

// CSVConfig configures the "csv" storage kind.
type CSVConfig struct {
	// Dir is the output directory. Files are named <key>_life_expectancy.csv.
	Dir string `json:"dir" yaml:"dir"`
}

// DBConfig configures the SQL sinks.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table name (e.g., "public.life_expectancy").
	Table string `json:"table" yaml:"table"`

	// Columns enumerates the destination columns in COPY/INSERT order. Empty
	// means the normalized columns.
	Columns []string `json:"columns" yaml:"columns"`

	// KeyColumns identifies the logical key at the table's grain. It is used
	// for the primary key when the table is auto-created.
	KeyColumns []string `json:"key_columns" yaml:"key_columns"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Default returns the pipeline used when no config file is given.
func Default() Pipeline {
	return Pipeline{
		Job:     "life_expectancy",
		Source:  Source{Kind: "file"},
		Storage: Storage{Kind: "csv", CSV: CSVConfig{Dir: "."}},
		Runtime: RuntimeConfig{BatchSize: 5000, Concurrency: 4},
	}
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unset fields keep the values from Default.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(b, filepath.Ext(path))
}

// Decode decodes b as YAML when ext is ".yaml" or ".yml" and as JSON
// otherwise.
func Decode(b []byte, ext string) (Pipeline, error) {
	p := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("config: decode json: %w", err)
		}
	}
	return p, nil
}

// Options is a small helper to fetch typed values from free-form option
// maps. It performs only minimal type coercion and returns the provided
// default when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64 and yaml.v3 as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object decodes to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
