package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deusflow/newspulse/internal/config"
	"github.com/deusflow/newspulse/internal/feed"
	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/media"
	"github.com/deusflow/newspulse/internal/metrics"
	"github.com/deusflow/newspulse/internal/pipeline"
	"github.com/deusflow/newspulse/internal/retry"
	"github.com/deusflow/newspulse/internal/rewrite"
	"github.com/deusflow/newspulse/internal/scheduler"
	"github.com/deusflow/newspulse/internal/scraper"
	"github.com/deusflow/newspulse/internal/state"
	"github.com/deusflow/newspulse/internal/telegram"
)

const jobTimeout = 10 * time.Minute

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	if err := run(cfg); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	sources, err := feed.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load feed sources: %w", err)
	}
	readers := feed.NewRegistry(sources, cfg.NewsMaxAge, cfg.RequestTimeout)
	if len(readers) == 0 {
		return fmt.Errorf("no usable feed sources configured")
	}

	entries, err := config.LoadSchedule(cfg.ScheduleConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load publishing schedule: %w", err)
	}

	gen, err := rewrite.NewGeminiGenerator(
		context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel,
		cfg.Temperature, cfg.MaxTokens, rewrite.NewBudget(cfg.MaxGenRequests))
	if err != nil {
		return err
	}
	defer gen.Close()
	engine := rewrite.NewEngine(gen, cfg.NewsTextMaxLength, cfg.MaxRewriteTries)

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load publish state: %w", err)
	}

	retryCfg := retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}
	poster, err := telegram.NewPoster(cfg.TelegramToken, cfg.TargetChannels, cfg.ServiceChannels, retryCfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tmp dir: %w", err)
	}

	pipe := pipeline.New(
		readers, engine, store, poster,
		scraper.New(cfg.RequestTimeout),
		media.NewPreparer(cfg.RequestTimeout, cfg.TmpDir),
		jobTimeout,
	)

	sched := scheduler.New(
		func(jobID string, err error) {
			metrics.Global.SetError(err.Error())
			poster.SendReport(context.Background(), fmt.Sprintf("❌ job %s failed: %v", jobID, err))
			metrics.Global.IncrementReportsSent()
		},
		func(jobID string, delay time.Duration) {
			metrics.Global.IncrementMissedFires()
		},
	)

	registerJobs(sched, readers, entries, pipe)

	sched.Start()
	logger.Info("newspulse started")
	logger.Info(sched.Report())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	sched.Shutdown()
	return nil
}

// registerJobs arms one job per (source, category, time) triple. Entries for
// unknown sources are skipped with a logged error; the rest of the schedule
// still loads.
func registerJobs(sched *scheduler.Scheduler, readers map[string]feed.Reader, entries []config.ScheduleEntry, pipe *pipeline.Pipeline) {
	for _, entry := range entries {
		if _, ok := readers[entry.Source]; !ok {
			logger.Error("schedule entry references unknown source, skipping", "source", entry.Source, "category", entry.Category)
			continue
		}
		source, category := entry.Source, entry.Category
		for _, t := range entry.Times {
			jobID := fmt.Sprintf("%s:%s:%s", source, category, t)
			err := sched.Schedule(jobID, t.Hour, t.Minute, func(ctx context.Context) error {
				return pipe.RunJob(ctx, source, category)
			})
			if err != nil {
				logger.Error("failed to schedule job", "job_id", jobID, "error", err)
			}
		}
	}
}

func newStore(cfg *config.Config) (state.Store, error) {
	if cfg.StateBackend == "postgres" {
		return state.NewPostgresStore(cfg.PostgresDSN)
	}
	return state.NewFileStore(cfg.StateFilePath), nil
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
