// Package fallback executes fetch operations through an ordered chain of
// providers, retries, cache tiers, and a synthetic floor, guaranteeing the
// caller a renderable result no matter what fails.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/cache"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/ratelimit"
)

// errEmptyResult marks a structurally valid but empty batch, which counts as
// a failure for fallback purposes.
var errEmptyResult = errors.New("provider returned no articles")

// maxFailureRecords bounds the in-memory diagnostic ring.
const maxFailureRecords = 100

// Operation produces a batch for one fallback tier.
type Operation func(ctx context.Context) (model.Batch, error)

// Tier is one entry in a fallback chain: an operation plus the provider
// label used for rate limiting and diagnostics.
type Tier struct {
	Label string
	Op    Operation
}

// Call describes one orchestrated fetch: a primary tier, ordered fallbacks,
// and the cache key the result lands under.
type Call struct {
	Primary   Tier
	Fallbacks []Tier
	CacheKey  string
	TTL       time.Duration
}

// FailureRecord is one retained failure for diagnostics.
type FailureRecord struct {
	Label   string
	At      time.Time
	Attempt int
	Err     error
}

// Config tunes the orchestrator.
type Config struct {
	MaxRetries     int           // attempts after the first, per tier
	RetryDelay     time.Duration // delay before the first retry
	AttemptTimeout time.Duration // timeout applied to each attempt
	RateRequests   int           // rate limit slots per provider window
	RateWindow     time.Duration
}

// Orchestrator runs fallback chains. Safe for concurrent use across
// independent cache keys.
type Orchestrator struct {
	cache   *cache.Manager
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *slog.Logger
	clock   func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	failures []FailureRecord
	next     int
}

func New(cacheMgr *cache.Manager, limiter *ratelimit.Limiter, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 400 * time.Millisecond
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 6 * time.Second
	}
	return &Orchestrator{
		cache:   cacheMgr,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		clock:   time.Now,
		sleep:   sleepWithContext,
	}
}

// Execute runs the chain and never returns an error: fresh fetch, then each
// fallback, then the fresh cache, then any stale cache (memory or durable),
// and finally a synthetic placeholder. Every successful fetch is cached
// before it is returned.
func (o *Orchestrator) Execute(ctx context.Context, call Call) model.Batch {
	tiers := append([]Tier{call.Primary}, call.Fallbacks...)

	for _, tier := range tiers {
		if tier.Op == nil {
			continue
		}
		if !o.allow(tier.Label) {
			o.logger.Debug("provider skipped by rate limit", "provider", tier.Label)
			continue
		}

		batch, err := o.attemptTier(ctx, tier)
		if err != nil {
			continue
		}

		if batch.ProviderLabel == "" {
			batch.ProviderLabel = tier.Label
		}
		if o.cache != nil && call.CacheKey != "" {
			o.cache.Set(call.CacheKey, batch, call.TTL)
		}
		return batch
	}

	return o.degraded(call)
}

// attemptTier runs one tier with its retry budget. Retries are sequential;
// the second and later retries wait ~2.5x the base delay.
func (o *Orchestrator) attemptTier(ctx context.Context, tier Tier) (model.Batch, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := o.cfg.RetryDelay
			if attempt > 1 {
				delay = o.cfg.RetryDelay * 5 / 2
			}
			if err := o.sleep(ctx, delay); err != nil {
				o.recordFailure(tier.Label, attempt, err)
				return model.Batch{}, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		batch, err := tier.Op(attemptCtx)
		cancel()

		if err == nil && len(batch.Articles) == 0 {
			err = errEmptyResult
		}
		if err == nil {
			return batch, nil
		}

		lastErr = err
		o.recordFailure(tier.Label, attempt+1, err)
		o.logger.Warn("fetch attempt failed",
			"provider", tier.Label,
			"attempt", attempt+1,
			"error", err,
		)

		if ctx.Err() != nil {
			return model.Batch{}, ctx.Err()
		}
	}
	return model.Batch{}, fmt.Errorf("%s: all attempts failed: %w", tier.Label, lastErr)
}

// degraded serves the cache tiers and, past those, the synthetic floor.
func (o *Orchestrator) degraded(call Call) model.Batch {
	if o.cache != nil && call.CacheKey != "" {
		if entry, ok := o.cache.Get(call.CacheKey); ok {
			batch := entry.Payload
			batch.ProviderLabel = batch.ProviderLabel + " (cached)"
			return batch
		}
		if entry, ok := o.cache.GetEvenIfExpired(call.CacheKey); ok {
			batch := entry.Payload
			batch.ProviderLabel = batch.ProviderLabel + " (offline)"
			return batch
		}
	}

	o.logger.Error("all fallback tiers exhausted, serving placeholder",
		"cache_key", call.CacheKey)
	return Placeholder(o.clock())
}

// Failures returns the retained failure records, oldest first.
func (o *Orchestrator) Failures() []FailureRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]FailureRecord, 0, len(o.failures))
	if len(o.failures) == maxFailureRecords {
		out = append(out, o.failures[o.next:]...)
		out = append(out, o.failures[:o.next]...)
		return out
	}
	return append(out, o.failures...)
}

func (o *Orchestrator) recordFailure(label string, attempt int, err error) {
	rec := FailureRecord{Label: label, At: o.clock(), Attempt: attempt, Err: err}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.failures) < maxFailureRecords {
		o.failures = append(o.failures, rec)
		return
	}
	o.failures[o.next] = rec
	o.next = (o.next + 1) % maxFailureRecords
}

func (o *Orchestrator) allow(label string) bool {
	if o.limiter == nil || o.cfg.RateRequests <= 0 {
		return true
	}
	return o.limiter.Allow(label, o.cfg.RateRequests, o.cfg.RateWindow)
}

// Placeholder is the synthetic last-resort batch: real, renderable articles
// telling the reader the feed is temporarily unavailable.
func Placeholder(now time.Time) model.Batch {
	return model.Batch{
		Articles: []model.Article{
			{
				ID:          "placeholder-unavailable",
				Title:       "News is taking a short break",
				Description: "None of the configured providers could be reached and nothing was cached. The feed will refill automatically on the next refresh.",
				URL:         "https://github.com/Mohit242-bit/Newshub",
				Source:      "Newshub",
				PublishedAt: now,
				Category:    model.All,
			},
			{
				ID:          "placeholder-check-connection",
				Title:       "Check your connection or try again shortly",
				Description: "If this keeps happening, verify the source URLs in your configuration file.",
				URL:         "https://github.com/Mohit242-bit/Newshub",
				Source:      "Newshub",
				PublishedAt: now,
				Category:    model.All,
			},
		},
		ProviderLabel: "Newshub (placeholder)",
		RetrievedAt:   now,
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
