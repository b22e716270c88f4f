package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tummy-tracker/internal/api"
	"tummy-tracker/internal/cfg"
	"tummy-tracker/internal/metrics"
	"tummy-tracker/internal/ml"
	"tummy-tracker/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store, err := storage.NewWithMetrics(c.DataPath, mw)
	if err != nil {
		log.Fatal().Err(err).Str("data_path", c.DataPath).Msg("storage initialization failed")
	}
	defer store.Close()

	registry := initializeRegistry(c, mw)
	warmEngines(store, registry)

	var wg sync.WaitGroup
	startMetricsServer(ctx, &wg, c, cancel)
	startAPIServer(ctx, &wg, c, cancel, api.NewServer(store, registry, mw, api.Config{
		RequestTimeout: c.RequestTimeout,
		SymptomWindow:  c.SymptomWindow,
	}))

	waitForShutdown(ctx, cancel, &wg)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warn().Str("level", c.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// initializeRegistry builds the per-user engine registry from settings.
func initializeRegistry(c cfg.Settings, mw *metrics.MetricsWrapper) *ml.Registry {
	trainer := ml.DefaultTrainerConfig()
	trainer.MinExamples = c.MinMealsForML

	return ml.NewRegistry(c.ModelPath, ml.EngineConfig{
		Trainer:                  trainer,
		PredictionsEnabled:       c.EnablePredictions,
		FeatureImportanceEnabled: c.EnableFeatureImportance,
	}, mw)
}

// warmEngines loads persisted bundles for every user already on disk.
func warmEngines(store *storage.Store, registry *ml.Registry) {
	users, err := store.Users()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list users, engines load lazily")
		return
	}
	for _, u := range users {
		if _, err := registry.Engine(u); err != nil {
			log.Warn().Err(err).Str("user", u).Msg("skipping engine")
		}
	}
	log.Info().Int("users", len(users)).Msg("engines loaded")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, cancel context.CancelFunc) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, wg, "metrics", &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, cancel)
}

func startAPIServer(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, cancel context.CancelFunc, srv *api.Server) {
	// Training runs inside the request, so the write timeout leaves room
	// beyond the per-request timeout.
	serve(ctx, wg, "api", &http.Server{
		Addr:              fmt.Sprintf(":%d", c.APIPort),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      c.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}, cancel)
}

// serve runs server until ctx is done. A listen failure cancels ctx.
func serve(ctx context.Context, wg *sync.WaitGroup, name string, server *http.Server, cancel context.CancelFunc) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("server", name).Msg("failed to shutdown server")
		}
	}()

	go func() {
		log.Info().Str("server", name).Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("server", name).Msg("server failed")
			cancel()
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all servers stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
