// Command lifeexp reshapes the Eurostat life-expectancy export into a tidy
// long-form table, filtered to the requested countries.
//
//	lifeexp -countries PT,FR -source data/eu_life_expectancy_raw.tsv -out-dir out
//
// -inspect profiles the inputs instead of cleaning them. A pipeline file
// (-config, JSON or YAML) supplies defaults; LIFEEXP_* env
// vars (optionally from a .env file) override it and flags override both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"lifeexp/internal/config"
	"lifeexp/internal/logging"

	// register all backends with the storage factory.
	_ "lifeexp/internal/storage/all"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// DefaultSource is read when neither flags nor the config name an input.
const DefaultSource = "data/eu_life_expectancy_raw.tsv"

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// options are the parsed command-line flags.
type options struct {
	cfgPath        string
	envFile        string
	countries      string
	sources        listFlag
	sourceList     string
	outDir         string
	storageKind    string
	dsn            string
	table          string
	autoCreate     bool
	metricsBackend string
	pushGatewayURL string
	ddAddr         string
	validate       bool
	inspect        bool
	starter        bool
	verbose        bool
	logFormat      string

	// set records which flags were given explicitly.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	flags := flag.NewFlagSet("lifeexp", flag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVar(&o.cfgPath, "config", "", "pipeline config path (.json, .yaml or .yml)")
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before reading LIFEEXP_* variables")
	flags.StringVar(&o.countries, "countries", "", "comma-separated country codes, e.g. PT,FR (empty keeps all)")
	flags.Var(&o.sources, "source", "input path or http(s) URL; repeatable")
	flags.StringVar(&o.sourceList, "source-list", "", "file listing one input path or URL per line")
	flags.StringVar(&o.outDir, "out-dir", "", "output directory for csv storage")
	flags.StringVar(&o.storageKind, "storage", "", "storage kind: csv, sqlite, postgres, mssql or mysql")
	flags.StringVar(&o.dsn, "dsn", "", "database DSN for SQL storage kinds")
	flags.StringVar(&o.table, "table", "", "destination table for SQL storage kinds")
	flags.BoolVar(&o.autoCreate, "auto-create", false, "create the destination table if it does not exist")
	flags.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides env METRICS_BACKEND)")
	flags.StringVar(&o.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flags.StringVar(&o.ddAddr, "dd-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	flags.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	flags.BoolVar(&o.inspect, "inspect", false, "profile the sources as JSON instead of running the pipeline")
	flags.BoolVar(&o.starter, "starter-config", false, "with -inspect, print a starter YAML pipeline config for the first source")
	flags.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	flags.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")

	if err := flags.Parse(args); err != nil {
		return o, err
	}
	if flags.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	o.set = map[string]bool{}
	flags.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, for tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "lifeexp: %v\n", err)
		return exitConfig
	}

	level := "info"
	if o.verbose {
		level = "debug"
	}
	logging.Setup(level, o.logFormat)

	if err := loadEnvFile(o.envFile, o.set["env-file"]); err != nil {
		fmt.Fprintf(stderr, "lifeexp: load env file: %v\n", err)
		return exitConfig
	}

	cfg, err := resolveConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "lifeexp: %v\n", err)
		return exitConfig
	}

	paths, err := sourcePaths(o, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "lifeexp: %v\n", err)
		return exitConfig
	}
	srcs := buildSources(paths)
	cfg.Source.File.Path = srcs[0].Name()

	issues := config.ValidatePipeline(cfg)
	config.SortIssues(issues)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		slog.Error("configuration is invalid", "config", o.cfgPath)
		return exitConfig
	}

	runs, err := buildRuns(cfg, srcs)
	if err != nil {
		fmt.Fprintf(stderr, "lifeexp: %v\n", err)
		return exitConfig
	}

	if o.validate {
		slog.Info("configuration is valid", "config", o.cfgPath, "sources", len(srcs))
		return exitOK
	}

	if o.inspect {
		if err := inspectSources(ctx, runs, cfg.Storage.CSV.Dir, o.starter, stdout); err != nil {
			fmt.Fprintf(stderr, "lifeexp: inspect: %v\n", err)
			return exitFailed
		}
		return exitOK
	}

	flush := setupMetrics(o, cfg.Job)
	defer flush()

	if err := execute(ctx, cfg, runs); err != nil {
		slog.Error("run failed", "err", err)
		return exitFailed
	}
	return exitOK
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is only an error when the
// path was given explicitly.
func loadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfig layers defaults, the config file, the environment and
// explicit flags, in that order.
func resolveConfig(o options) (config.Pipeline, error) {
	cfg := config.Default()
	if o.cfgPath != "" {
		var err error
		if cfg, err = config.Load(o.cfgPath); err != nil {
			return config.Pipeline{}, err
		}
	}
	config.ApplyEnv(&cfg)

	if o.set["countries"] {
		cfg.Countries = config.SplitList(o.countries)
	}
	if o.set["out-dir"] {
		cfg.Storage.CSV.Dir = o.outDir
	}
	if o.set["storage"] {
		cfg.Storage.Kind = o.storageKind
	}
	if o.set["dsn"] {
		cfg.Storage.DB.DSN = o.dsn
	}
	if o.set["table"] {
		cfg.Storage.DB.Table = o.table
	}
	if o.set["auto-create"] {
		cfg.Storage.DB.AutoCreateTable = o.autoCreate
	}
	return cfg, nil
}
