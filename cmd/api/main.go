package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/api"
	"github.com/zenspend/zenspend/internal/config"
	"github.com/zenspend/zenspend/internal/expenses"
	"github.com/zenspend/zenspend/internal/jobs"
	"github.com/zenspend/zenspend/internal/jobs/inmemory"
	"github.com/zenspend/zenspend/internal/logger"
	"github.com/zenspend/zenspend/internal/metrics"
)

const (
	AppName = "zenspend"
	AppDesc = "Conversational expense tracker API"
)

var cli struct {
	config.Core      `embed:""`
	config.Server    `embed:""`
	config.Notion    `embed:""`
	config.Export    `embed:""`
	config.Assistant `embed:""`
}

func main() {
	kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
	)

	log, err := cli.Logger()
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Extraction and storage
	ex, err := cli.Extractor()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extractor")
	}

	repo, err := cli.Open(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open expense storage")
	}
	defer repo.Close()

	// Optional collaborators
	responder, err := cli.Responder(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create assistant")
	}

	opts := expenses.Options{
		Extractor: ex,
		Repo:      repo,
		Responder: responder,
	}

	syncer, err := cli.Syncer()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Notion configuration")
	}
	if syncer != nil {
		opts.Syncer = syncer
	} else {
		log.Info().Msg("No Notion token configured - Notion sync is disabled")
	}

	exporter, exportCloser, err := cli.Exporter(ctx, repo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create export storage client")
	}
	defer exportCloser.Close()
	if exporter != nil {
		opts.Exporter = exporter
	} else {
		log.Warn().Msg("No GCS bucket configured - exports are disabled")
	}

	// Metrics
	reg := metrics.NewRegistry(AppName)
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}
	reg.MustRegister(metrics.NewCategoryCollector(repo, log))
	opts.Metrics = m

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cli.QueueSize, jobStore,
		inmemory.WithWorkers(cli.Workers),
		inmemory.WithLogger(log),
		inmemory.WithObserver(func(job *jobs.Job) {
			m.ObserveJob(string(job.Type), string(job.Status))
		}),
	)
	opts.Publisher = jobQueue
	opts.Jobs = jobStore

	svc, err := expenses.NewService(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create expense service")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if err := jobQueue.Start(workerCtx, svc.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	handler, err := api.NewRouter(svc, log, api.Options{
		AllowedOrigins: cli.AllowedOrigins,
		Extra: func(mux *http.ServeMux) {
			mountTelemetry(mux, reg, log)
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create router")
	}

	server := &http.Server{
		Addr:         cli.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("address", cli.ListenAddress).
			Str("metrics_path", cli.MetricsPath).
			Str("storage", cli.Backend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting jobs and wait for in-flight ones, then cancel the rest.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// mountTelemetry adds the metrics endpoint and, unless metrics live at the
// root, the landing page.
func mountTelemetry(mux *http.ServeMux, reg *prometheus.Registry, log zerolog.Logger) {
	if cli.MetricsPath == "" {
		return
	}
	mux.Handle("GET "+cli.MetricsPath, metrics.Handler(reg))
	if cli.MetricsPath == "/" {
		return
	}
	landingPage, err := metrics.LandingPage(AppName, AppDesc, cli.MetricsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build landing page")
	}
	mux.Handle("GET /{$}", landingPage)
}
