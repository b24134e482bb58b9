package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-odds/internal/api"
	"github.com/yourusername/race-odds/internal/config"
	"github.com/yourusername/race-odds/internal/health"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hs, err := openHistory(ctx, cfg, appLog)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer hs.Close()

		eng, err := buildEngine(cfg, hs, appLog)
		if err != nil {
			return err
		}

		checker := health.NewChecker(cfg.App.Name, Version, GitCommit)
		var matcher api.HistoryMatcher
		if hs.enabled() {
			checker.Register("history", hs.source)
			matcher = hs.fuzzy
		}

		sched, err := newMaintenanceScheduler(cfg, hs, appLog)
		if err != nil {
			return err
		}
		if sched != nil {
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := sched.Stop(stopCtx); err != nil {
					appLog.WithError(err).Warn("Scheduler did not stop cleanly")
				}
			}()
		}

		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}
		server := api.NewServer(api.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			MetricsPath:    metricsPath,
		}, eng, matcher, checker, appLog)

		checker.SetReady(true)
		return server.ListenAndServe(ctx, cfg.ServerAddress())
	},
}

// newMaintenanceScheduler registers the cache flush and history probe jobs. It
// returns nil when neither is configured.
func newMaintenanceScheduler(cfg *config.Config, hs *historyStack, log *logrus.Logger) (*scheduler.Scheduler, error) {
	if !hs.enabled() {
		return nil, nil
	}

	sched := scheduler.NewScheduler(log)
	if hs.cache != nil && cfg.History.Cache.FlushSchedule != "" {
		if err := sched.ScheduleCacheFlush(cfg.History.Cache.FlushSchedule, hs.cache); err != nil {
			return nil, err
		}
	}
	if cfg.History.ProbeSchedule != "" {
		if err := sched.ScheduleFunc("history_probe", cfg.History.ProbeSchedule, probeHistory(hs.source)); err != nil {
			return nil, err
		}
	}

	if sched.JobCount() == 0 {
		return nil, nil
	}
	return sched, nil
}

// probeHistory pings the history source and publishes the result as the
// history_source_up gauge.
func probeHistory(source health.Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		err := source.Ping(ctx)
		metrics.UpdateHistorySourceUp(err == nil)
		if err != nil {
			return fmt.Errorf("history source probe failed: %w", err)
		}
		return nil
	}
}
