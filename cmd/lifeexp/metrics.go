package main

import (
	"log/slog"
	"os"
	"strings"

	"lifeexp/internal/metrics"
	"lifeexp/internal/metrics/datadog"
	"lifeexp/internal/metrics/prompush"
)

const (
	defaultPushGatewayURL = "http://localhost:9091"
	defaultDDAddr         = "127.0.0.1:8125"
)

// setupMetrics installs the backend chosen by flag, then env
// METRICS_BACKEND. The returned func flushes it and is always safe to call.
func setupMetrics(o options, job string) func() {
	name := firstNonEmpty(o.metricsBackend, os.Getenv("METRICS_BACKEND"))

	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(name) {
	case "pushgateway":
		url := firstNonEmpty(o.pushGatewayURL, os.Getenv("PUSHGATEWAY_URL"), defaultPushGatewayURL)
		b, err = prompush.NewBackend(job, url)
		slog.Debug("metrics: pushgateway", "url", url, "job", job)
	case "datadog":
		addr := firstNonEmpty(o.ddAddr, os.Getenv("DD_AGENT_ADDR"), defaultDDAddr)
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      addr,
			Namespace: "lifeexp.",
			Tags:      []string{"job:" + job},
		})
		slog.Debug("metrics: datadog", "addr", addr, "job", job)
	case "", "none":
		slog.Debug("metrics: disabled")
		return func() {}
	default:
		slog.Warn("metrics: unknown backend; metrics disabled", "backend", name)
		return func() {}
	}
	if err != nil {
		slog.Warn("metrics: backend init failed; using nop", "backend", name, "err", err)
		return func() {}
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			slog.Warn("metrics: flush failed", "backend", name, "err", err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
