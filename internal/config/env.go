package config

import (
	"os"
	"strings"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvCountries = "LIFEEXP_COUNTRIES"
	EnvOutDir    = "LIFEEXP_OUT_DIR"
	EnvStorage   = "LIFEEXP_STORAGE"
	EnvDSN       = "LIFEEXP_DSN"
)

// lookupEnv is a test seam.
var lookupEnv = os.LookupEnv

// ApplyEnv overlays environment variables onto p. Only set, non-blank
// variables override; flags applied afterwards take precedence over both.
func ApplyEnv(p *Pipeline) {
	if v, ok := env(EnvCountries); ok {
		p.Countries = SplitList(v)
	}
	if v, ok := env(EnvOutDir); ok {
		p.Storage.CSV.Dir = v
	}
	if v, ok := env(EnvStorage); ok {
		p.Storage.Kind = v
	}
	if v, ok := env(EnvDSN); ok {
		p.Storage.DB.DSN = v
	}
}

func env(key string) (string, bool) {
	v, ok := lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// SplitList splits a comma-separated list, trimming entries and dropping
// blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
