package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"typedcsv/internal/config"
	"typedcsv/internal/logging"
	"typedcsv/internal/metrics"
	"typedcsv/internal/metrics/datadog"
	"typedcsv/internal/metrics/prompush"
)

// main is the entry point for the typedcsv binary. It loads the pipeline
// config, optionally initializes a metrics backend, parses the input, and
// writes records to the configured sink.
func main() {
	var (
		cfgPath           string
		inPath            string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		logLevel          string
		logFormat         string
		skipLog           string
		workers           int
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config JSON path")
	flag.StringVar(&inPath, "in", "", "input CSV path, '-' for stdin (overrides source in the config)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.StringVar(&skipLog, "skip-log", "", "CSV file receiving dropped rows (overrides runtime.skip_log)")
	flag.IntVar(&workers, "workers", 0, "parallel workers (overrides runtime.workers)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs (same as -log-level debug)")

	flag.Parse()

	// A .env file fills in variables the environment does not already set.
	envErr := godotenv.Load()

	if *verbose {
		logLevel = "debug"
	}
	logging.Setup(os.Stderr, logLevel, logFormat)
	if envErr == nil {
		slog.Debug("loaded .env file")
	}

	p, err := loadPipeline(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	applyOverrides(&p, inPath, skipLog, workers)
	applyEnv(&p)

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		slog.Error("configuration is invalid", "config", cfgPath)
		os.Exit(1)
	}
	if validate {
		slog.Info("configuration is valid", "config", cfgPath)
		os.Exit(0)
	}

	if flush := setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, statsdAddrFlg); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := run(ctx, p, os.Stdout); err != nil {
		slog.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}
	slog.Debug("completed", "elapsed", time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics installs the selected backend: flag, then env METRICS_BACKEND.
// It returns the flush to defer, or nil when metrics stay disabled.
func setupMetrics(job, backendName, gwURL, statsdAddr string) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = defaultJob
	}

	var (
		b   metrics.Backend
		err error
	)
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(job, gwURL)
		slog.Debug("metrics: pushgateway", "url", gwURL, "job", job)
	case "datadog":
		if statsdAddr == "" {
			statsdAddr = os.Getenv("DD_DOGSTATSD_ADDR")
		}
		if statsdAddr == "" {
			statsdAddr = "127.0.0.1:8125"
		}
		b, err = datadog.NewBackend(datadog.Config{Addr: statsdAddr})
		slog.Debug("metrics: dogstatsd", "addr", statsdAddr, "job", job)
	case "", "none":
		return nil
	default:
		slog.Warn("metrics: unknown backend; metrics disabled", "backend", backendName)
		return nil
	}
	if err != nil {
		slog.Warn("metrics: failed to init backend; using nop", "backend", backendName, "err", err)
		return nil
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			slog.Warn("metrics: flush error", "err", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
