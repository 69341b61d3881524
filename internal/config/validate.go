package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"lifeexp/internal/country"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "countries[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Known kinds. Keep in sync with the builders in internal/pipeline and the
// backends registered by internal/storage/all.
var (
	SourceKinds    = []string{"file"}
	ParserKinds    = []string{"tsv", "json"}
	TransformKinds = []string{"unpivot", "normalize", "coerce", "require", "mask_empty", "filter_country", "dedupe"}
	StorageKinds   = []string{"csv", "sqlite", "postgres", "mssql", "mysql"}
)

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics for the run",
		})
	}
	issues = append(issues, validateCountries(p.Countries)...)
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser, p.Source)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateCountries(codes []string) []Issue {
	var issues []Issue
	for i, c := range codes {
		if _, err := country.Parse(c); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("countries[%d]", i),
				Message:  fmt.Sprintf("unknown country code %q; valid codes: %s", c, strings.Join(country.Strings(), ",")),
			})
		}
	}
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	}
	if !known(SourceKinds, s.Kind) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q", s.Kind),
		})
	}
	if s.Kind == "file" && strings.TrimSpace(s.File.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file.path",
			Message:  "file source requires a non-empty path",
		})
	}
	return issues
}

func validateParser(p Parser, s Source) []Issue {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))
	if kind == "" {
		// Sniffed from the extension at run time; flag the obvious miss early.
		ext := strings.ToLower(filepath.Ext(s.File.Path))
		if s.File.Path != "" && ext != ".tsv" && ext != ".json" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "parser.kind",
				Message:  fmt.Sprintf("parser.kind is empty and extension %q is not supported (want .tsv or .json)", ext),
			}}
		}
		return nil
	}
	if !known(ParserKinds, kind) {
		return []Issue{{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; supported: %s", p.Kind, strings.Join(ParserKinds, ",")),
		}}
	}
	return nil
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue

	for i, t := range ts {
		path := fmt.Sprintf("transform[%d].kind", i)
		if strings.TrimSpace(t.Kind) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "transform kind must not be empty",
			})
			continue
		}
		if !known(TransformKinds, t.Kind) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("unknown transform kind %q", t.Kind),
			})
			continue
		}

		opts := fmt.Sprintf("transform[%d].options", i)
		switch t.Kind {
		case "require", "dedupe":
			key := "fields"
			if t.Kind == "dedupe" {
				key = "keys"
			}
			if len(t.Options.StringSlice(key)) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     opts + "." + key,
					Message:  fmt.Sprintf("%s has no %s; it will pass every row through", t.Kind, key),
				})
			}
		case "coerce":
			for field, typ := range t.Options.StringMap("types") {
				if typ != "int" && typ != "float" {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Path:     opts + ".types." + field,
						Message:  fmt.Sprintf("unsupported coerce type %q (want int or float)", typ),
					})
				}
			}
		case "filter_country":
			for j, c := range t.Options.StringSlice("countries") {
				if _, err := country.Parse(c); err != nil {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Path:     fmt.Sprintf("%s.countries[%d]", opts, j),
						Message:  fmt.Sprintf("unknown country code %q", c),
					})
				}
			}
		}
	}

	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	}
	if !known(StorageKinds, kind) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unsupported storage kind %q; supported: %s", kind, strings.Join(StorageKinds, ",")),
		})
	}

	if kind == "csv" {
		if strings.TrimSpace(s.CSV.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.csv.dir",
				Message:  "storage.csv.dir is empty; output goes to the working directory",
			})
		}
		return issues
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	for i, k := range db.KeyColumns {
		if len(db.Columns) > 0 && !known(db.Columns, k) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("storage.db.key_columns[%d]", i),
				Message:  fmt.Sprintf("key column %q is not in storage.db.columns", k),
			})
		}
	}

	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the loader default will be used", r.BatchSize),
		})
	}
	if r.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.concurrency",
			Message:  "concurrency must not be negative",
		})
	}

	return issues
}

func known(set []string, s string) bool {
	for _, k := range set {
		if strings.EqualFold(k, s) {
			return true
		}
	}
	return false
}

// SortIssues orders issues errors first, then by path.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity == SeverityError
		}
		return issues[i].Path < issues[j].Path
	})
}
