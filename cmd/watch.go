package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/teemow/invoiceflow/internal/config"
	"github.com/teemow/invoiceflow/internal/instrumentation"
	"github.com/teemow/invoiceflow/internal/logging"
)

func newWatchCmd() *cobra.Command {
	var (
		scheduleHours int
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run processing cycles on a schedule",
		Long: `Run a processing cycle immediately, then repeat on the configured
interval until interrupted. A Prometheus metrics endpoint is served on a
dedicated port for the lifetime of the watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("schedule-hours") {
				cfg.ScheduleHours = scheduleHours
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runWatch(cfg)
		},
	}

	cmd.Flags().IntVar(&scheduleHours, "schedule-hours", 3, "Hours between processing cycles. Can also use INVOICEFLOW_SCHEDULE_HOURS env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use INVOICEFLOW_METRICS_ADDR env var.")

	return cmd
}

func runWatch(cfg *config.Config) error {
	logger := logging.Setup(cfg.LogLevel)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := instrumentation.NewProvider(ctx, "invoiceflow", version)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	processor, err := buildProcessor(ctx, cfg, logger, provider.Metrics())
	if err != nil {
		return err
	}

	metricsServer, err := instrumentation.NewMetricsServer(cfg.MetricsAddr, provider)
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	runCycle := func() {
		if n, err := processor.RunCycle(ctx); err != nil {
			logger.Error("processing cycle failed", logging.Err(err))
		} else {
			logger.Info("cycle finished", slog.Int(logging.KeyProcessed, n))
		}
	}

	// First cycle runs immediately; the scheduler handles the rest.
	runCycle()

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dh", cfg.ScheduleHours)
	if _, err := scheduler.AddFunc(spec, runCycle); err != nil {
		return fmt.Errorf("failed to schedule processing cycles: %w", err)
	}
	scheduler.Start()
	logger.Info("watcher started", slog.Int("interval_hours", cfg.ScheduleHours))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-metricsErr:
		if err != nil {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}

	// Let an in-flight cycle finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for in-flight cycle")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", logging.Err(err))
	}

	return nil
}
