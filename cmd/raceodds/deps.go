package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-odds/internal/config"
	"github.com/yourusername/race-odds/internal/database"
	"github.com/yourusername/race-odds/internal/engine"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/logger"
	"github.com/yourusername/race-odds/internal/repository"
	"github.com/yourusername/race-odds/internal/scoring"
)

// historyStack is the history store assembled for the configured backend:
// source, then fuzzy matching, then the optional cache.
type historyStack struct {
	backend string
	source  repository.HistoryRepository
	writer  repository.HistoryWriter
	fuzzy   *history.FuzzyStore
	cache   *history.CachedStore
	store   history.Store
	closeFn func()
}

func (hs *historyStack) Close() {
	if hs.closeFn != nil {
		hs.closeFn()
	}
}

// enabled reports whether any history backend is configured.
func (hs *historyStack) enabled() bool {
	return hs.store != nil
}

func openHistory(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*historyStack, error) {
	hs := &historyStack{backend: cfg.History.Backend}

	switch cfg.History.Backend {
	case config.BackendNone:
		return hs, nil

	case config.BackendFile:
		records, err := history.LoadRecordsFile(cfg.History.File)
		if err != nil {
			return nil, err
		}
		hs.source = history.NewMemorySource(records)

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSQLHistoryRepository(db)
		hs.source, hs.writer = repo, repo
		hs.closeFn = func() { _ = db.Close() }

	case config.BackendPostgres:
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresHistoryRepository(db)
		hs.source, hs.writer = repo, repo
		hs.closeFn = db.Close

	case config.BackendHTTP:
		httpCfg := repository.DefaultHTTPClientConfig()
		if cfg.Remote.TimeoutSeconds > 0 {
			httpCfg.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
		}
		httpCfg.MaxRetries = cfg.Remote.MaxRetries
		httpCfg.RateLimit = cfg.Remote.RateLimit
		httpCfg.Burst = cfg.Remote.Burst

		client := repository.NewRateLimitedHTTPClient(httpCfg, log)
		hs.source = repository.NewHTTPHistoryClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, client)
		hs.closeFn = func() { _ = client.Close() }

	default:
		return nil, fmt.Errorf("unsupported history backend %q", cfg.History.Backend)
	}

	hs.fuzzy = history.NewFuzzyStore(hs.source, cfg.History.Matching)
	hs.store = hs.fuzzy
	if cfg.History.Cache.Enabled {
		hs.cache = history.NewCachedStore(hs.fuzzy, cfg.History.Cache.TTL, cfg.History.Cache.MaxSize)
		hs.store = hs.cache
	}

	log.WithFields(logrus.Fields{
		"backend": hs.backend,
		"cached":  hs.cache != nil,
	}).Info("History store ready")

	return hs, nil
}

// buildEngine wires the scorer and, when a store exists, the history adjuster.
func buildEngine(cfg *config.Config, hs *historyStack, log *logrus.Logger) (*engine.Engine, error) {
	var adjuster engine.HistoryAdjuster
	if hs.enabled() {
		adjuster = history.NewAdjuster(hs.store, cfg.History.Adjuster, log)
	}

	eng, err := engine.New(cfg.Engine, scoring.NewScorer(cfg.Scoring), adjuster, log)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Engine.Models))
	weights := make([]float64, 0, len(cfg.Engine.Models))
	for _, m := range cfg.Engine.Models {
		names = append(names, m.Name)
		weights = append(weights, m.MixingWeight)
	}
	logger.NewAuditLogger(log).LogModelsLoaded(names, weights, configFile)

	return eng, nil
}
