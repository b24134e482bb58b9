// Package scheduler runs the periodic maintenance jobs of the prediction service.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-odds/internal/logger"
	"github.com/yourusername/race-odds/internal/metrics"
)

// FlushableCache is the history cache as seen by the flush job.
type FlushableCache interface {
	Flush()
	ItemCount() int
	Stats() (hits, misses uint64, ratio float64)
}

// Scheduler manages scheduled maintenance jobs
type Scheduler struct {
	cron       *cron.Cron
	logger     *logrus.Entry
	audit      *logger.AuditLogger
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
}

// NewScheduler creates a new scheduler running in UTC
func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		logger:     log.WithField("component", "scheduler"),
		audit:      logger.NewAuditLogger(log),
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 5 * time.Minute,
	}
}

// ScheduleCacheFlush empties the history cache on the given cron schedule so
// that newly imported starts become visible.
func (s *Scheduler) ScheduleCacheFlush(cronExpression string, cache FlushableCache) error {
	return s.addJob("history_cache_flush", cronExpression, func(context.Context) {
		FlushCache(cache, "schedule", s.audit)
	})
}

// ScheduleFunc registers an arbitrary job. fn receives a context bounded by the
// scheduler's job timeout.
func (s *Scheduler) ScheduleFunc(name, cronExpression string, fn func(ctx context.Context) error) error {
	return s.addJob(name, cronExpression, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		}
	})
}

func (s *Scheduler) addJob(name, cronExpression string, job func(context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		start := time.Now()
		job(ctx)
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start).String(),
		}).Debug("Scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": cronExpression,
	}).Info("Scheduled job")

	return nil
}

// FlushCache empties cache and records the flush in metrics and the audit log.
func FlushCache(cache FlushableCache, trigger string, audit *logger.AuditLogger) {
	_, _, ratio := cache.Stats()
	items := cache.ItemCount()

	cache.Flush()
	metrics.RecordHistoryCacheFlush()
	if audit != nil {
		audit.LogCacheFlush(trigger, items, ratio)
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}

	return nextRun
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobIDs)
}
