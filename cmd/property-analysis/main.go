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

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/property-analysis/internal/completion"
	"github.com/joelkehle/property-analysis/internal/config"
	"github.com/joelkehle/property-analysis/internal/httpapi"
	"github.com/joelkehle/property-analysis/internal/jobs"
	"github.com/joelkehle/property-analysis/internal/logging"
	"github.com/joelkehle/property-analysis/internal/report"
	"github.com/joelkehle/property-analysis/internal/telemetry"
)

var version = "dev"

func main() {
	var (
		configPath = flag.String("config", "", "Optional YAML config file")
		envFile    = flag.String("env-file", ".env", "Optional .env file; ignored when missing")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
	)
	flag.Parse()

	if err := run(*configPath, *envFile, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "property-analysis:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, addr string) error {
	cfg, err := config.Load(config.Sources{File: configPath, DotEnv: envFile})
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log, logCloser, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, tracing, err := telemetry.Setup(ctx, "property-analysis", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("flush traces")
		}
	}()

	requester, err := completion.New(cfg.Completion.Provider, cfg.Completion.Settings())
	if err != nil {
		return err
	}
	requester = completion.NewLimited(requester, cfg.Completion.RPM, cfg.Completion.Burst)
	if cfg.Completion.APIKey == "" {
		log.WithField("provider", cfg.Completion.Provider).Warn("no completion API key configured; analyses will fail until one is set")
	}

	var (
		store      jobs.Store
		unfinished []jobs.Job
	)
	switch cfg.Jobs.Store {
	case config.StoreSQLite:
		sqlStore, err := jobs.NewSQLiteStore(cfg.Jobs.DBPath)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		if unfinished, err = sqlStore.Unfinished(ctx); err != nil {
			return fmt.Errorf("load unfinished jobs: %w", err)
		}
		store = sqlStore
	default:
		store = jobs.NewMemoryStore()
	}

	svc := jobs.NewService(store, requester, jobs.Config{
		Logger:      log,
		MaxAttempts: cfg.Jobs.MaxAttempts,
	})
	defer svc.Close()
	svc.Resume(unfinished)

	var pdf report.PDFRenderer
	if cfg.Report.PDF {
		renderer := report.NewChromiumPDFRenderer(cfg.Report.ChromePath)
		if renderer.Available() {
			pdf = renderer
		} else {
			log.Warn("no Chromium binary found; PDF export disabled")
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewServer(svc, pdf, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":     cfg.Server.Addr,
		"provider": cfg.Completion.Provider,
		"api_key":  cfg.Completion.MaskedAPIKey(),
		"store":    cfg.Jobs.Store,
		"tracing":  tracing,
		"version":  version,
	}).Info("property-analysis listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	log.Info("property-analysis stopped")
	return err
}
