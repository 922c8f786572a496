// Package app assembles the analysis core from a Config: cache backend, AI
// collaborator, audit log and speculation coordinator.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ericksa/keiyakucheck/internal/ai"
	"github.com/ericksa/keiyakucheck/internal/audit"
	"github.com/ericksa/keiyakucheck/internal/cache"
	"github.com/ericksa/keiyakucheck/internal/config"
	"github.com/ericksa/keiyakucheck/internal/job"
	"github.com/ericksa/keiyakucheck/internal/sink"
	"github.com/ericksa/keiyakucheck/internal/speculative"
)

// connectTimeout bounds the startup checks against external stores.
const connectTimeout = 10 * time.Second

type App struct {
	Coordinator *speculative.Coordinator
	Auditor     *audit.Auditor
	Cache       *cache.Cache
	Sink        *sink.PostgresSink

	cfg     *config.Config
	closers []func()
}

// New wires the components. An unreachable cache backend falls back to memory
// and an unreachable sink is skipped, both with a warning; nothing optional
// stops the process from starting.
func New(cfg *config.Config, extra ...speculative.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		log.Printf("Warning: cache backend %s unavailable, using memory: %v", cfg.Cache.Backend, err)
		store = cache.NewMemoryStore()
	}
	if s, ok := store.(*cache.SQLiteStore); ok {
		a.closers = append(a.closers, func() { s.Close() })
	}
	a.Cache = cache.New(store, cfg.Cache.Capacity)

	if cfg.Audit.Enabled {
		a.Auditor = audit.NewAuditor(cfg.Audit.Path)
		a.closers = append(a.closers, a.Auditor.Close)
	}

	opts := []speculative.Option{
		speculative.WithCache(a.Cache),
		speculative.WithTTL(cfg.Analysis.SpeculationTTL),
	}
	if cfg.Sink.PostgresURL != "" {
		s, err := sink.NewPostgresSink(ctx, cfg.Sink.PostgresURL)
		if err != nil {
			log.Printf("Warning: report sink unavailable, reports will not be stored: %v", err)
		} else {
			a.Sink = s
			a.closers = append(a.closers, func() { s.Close() })
			opts = append(opts, speculative.WithSink(s))
		}
	}
	if cfg.LLM.Enabled {
		opts = append(opts,
			speculative.WithAnalyzer(ai.NewChatAnalyzer(ai.ChatConfig{
				BaseURL:   cfg.LLM.Endpoint,
				Model:     cfg.LLM.Model,
				APIKey:    cfg.LLM.APIKey,
				MaxTokens: cfg.LLM.MaxTokens,
				Timeout:   cfg.LLM.Timeout,
			})),
			speculative.WithTimeout(cfg.LLM.Timeout),
		)
	}
	a.Coordinator = speculative.NewCoordinator(append(opts, extra...)...)
	return a, nil
}

// StartHousekeeping prunes expired speculations on the configured schedule
// until Close.
func (a *App) StartHousekeeping() error {
	c, err := job.StartPruneJob(a.Coordinator, a.cfg.Analysis.PruneSchedule)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { c.Stop() })
	return nil
}

func openStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return cache.OpenSQLite(cfg.Path)
	case "minio":
		return cache.OpenMinIO(ctx, cache.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Prefix:    cfg.MinIO.Prefix,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	default:
		return cache.NewMemoryStore(), nil
	}
}

// Close releases the databases in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
