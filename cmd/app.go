package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohit242-bit/Newshub/internal/cache"
	"github.com/Mohit242-bit/Newshub/internal/config"
	"github.com/Mohit242-bit/Newshub/internal/diversity"
	"github.com/Mohit242-bit/Newshub/internal/fallback"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/provider"
	"github.com/Mohit242-bit/Newshub/internal/ratelimit"
	"github.com/Mohit242-bit/Newshub/internal/scheduler"
	"github.com/Mohit242-bit/Newshub/internal/store"
)

// app wires the engine together for a command invocation.
type app struct {
	cfg    *config.Config
	store  *store.Store
	cache  *cache.Manager
	orch   *fallback.Orchestrator
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

func buildApp(configPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// A broken durable store degrades the cache to memory-only.
	st, err := store.Open(config.CachePath())
	if err != nil {
		logger.Warn("durable cache unavailable", "path", config.CachePath(), "error", err)
		st = nil
	}

	mgr := cache.New(st, logger)
	orch := fallback.New(mgr, ratelimit.New(), fallback.Config{
		MaxRetries:     cfg.GetMaxRetries(),
		RetryDelay:     cfg.RetryTimeoutDuration(),
		AttemptTimeout: cfg.FetchTimeoutDuration(),
		RateRequests:   cfg.RateLimitRequests(),
		RateWindow:     cfg.RateLimitWindow(),
	}, logger)

	providers := buildProviders(cfg)
	if len(providers) == 0 {
		logger.Warn("no enabled sources; every read will serve cache or placeholder")
	}

	sched := scheduler.New(providers, orch, mgr, diversity.New(), scheduler.Options{
		FeedSize:     cfg.GetFeedSize(),
		TTL:          cfg.CacheTTLDuration(),
		FetchTimeout: cfg.FetchTimeoutDuration(),
		Stagger:      cfg.PreloadStagger(),
		RefreshEvery: cfg.RefreshInterval(),
		Categories:   preloadCategories(cfg),
	}, logger)

	return &app{cfg: cfg, store: st, cache: mgr, orch: orch, sched: sched, logger: logger}, nil
}

func (a *app) close() {
	a.sched.Shutdown()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing durable cache", "error", err)
		}
	}
}

func buildProviders(cfg *config.Config) []provider.Provider {
	var out []provider.Provider
	for _, src := range cfg.EnabledSources() {
		switch src.Type {
		case "rest":
			out = append(out, provider.NewREST(src.Name, src.URL))
		default:
			out = append(out, provider.NewRSS(src.Name, src.URL))
		}
	}
	return out
}

func preloadCategories(cfg *config.Config) []model.Category {
	var out []model.Category
	for _, raw := range cfg.Preload.Categories {
		if c, ok := model.ParseCategory(raw); ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = []model.Category{model.All}
	}
	return out
}
