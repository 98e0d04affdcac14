package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	"github.com/kirillkom/mediscan/internal/bootstrap"
	"github.com/kirillkom/mediscan/internal/config"
	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/observability/logging"
	"github.com/kirillkom/mediscan/internal/observability/metrics"
)

const serviceName = "mediscan-worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(cfg.BackfillSweepMinutes).Minutes().Do(func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		filled, err := app.BackfillUC.Sweep(sweepCtx)
		workerMetrics.FinishSweep(serviceName, err)
		workerMetrics.AddSweepFilled(serviceName, filled)
		if err != nil {
			slog.Error("backfill_sweep_failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("sweep_schedule_failed", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisCompleted(ctx, func(handlerCtx context.Context, event domain.AnalysisCompleted) error {
		workerMetrics.StartEvent()
		start := time.Now()

		backfillCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()
		err := app.BackfillUC.BackfillRecord(backfillCtx, event)

		workerMetrics.FinishEvent(serviceName, time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func startMetricsServer(port string, workerMetrics *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	return server
}
