// SPDX-License-Identifier: MIT

// mora is the command-line client for the video-to-code backend: it creates
// conversion sessions, follows their event streams, executes generated code
// and keeps a local history of past runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/telemetry"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mora [flags] <command> [command flags]

Commands:
  convert   create a session and follow it to completion
  run       execute generated code in a sandbox
  status    show a session's current state (cache-first)
  history   list or inspect archived sessions
  demo      serve a scripted mock backend
  version   print version information

Global flags:
  -config path   YAML config file (default: $MORA_DATA/config.yaml)
`)
}

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Printf("mora %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}

	// Safe defaults until config is loaded.
	log.Configure(log.Config{Level: "info", Service: "mora", Version: version})
	logger := log.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "mora", Version: version})

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    "mora",
		ServiceVersion: version,
		Environment:    config.ParseString("MORA_ENV", "development"),
		ExporterType:   cfg.OTELExporter,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRate:   cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	ctx = log.ContextWithRequestID(ctx, uuid.NewString())

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsListen != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsListen)
		})
	}

	g.Go(func() error {
		defer stop() // command finished; release the metrics listener
		return dispatch(gctx, cfg, args[0], args[1:])
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", "cli.failed").Msg("command failed")
		fmt.Fprintf(os.Stderr, "mora: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg config.Config, command string, args []string) error {
	switch command {
	case "convert":
		return runConvert(ctx, cfg, args)
	case "run":
		return runExec(ctx, cfg, args)
	case "status":
		return runStatus(ctx, cfg, args)
	case "history":
		return runHistory(ctx, cfg, args)
	case "demo":
		return runDemo(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// serveMetrics exposes /metrics and /healthz until the context is canceled.
func serveMetrics(ctx context.Context, addr string) error {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger := log.WithComponent("metrics")
	logger.Info().
		Str("event", "metrics.listen").
		Str("addr", addr).
		Msg("metrics endpoint up")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
