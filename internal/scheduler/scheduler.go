// Package scheduler keeps category feeds warm: it preloads configured
// categories at startup, refreshes them periodically, and answers reads
// cache-first with a synchronous fill on miss.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Mohit242-bit/Newshub/internal/cache"
	"github.com/Mohit242-bit/Newshub/internal/diversity"
	"github.com/Mohit242-bit/Newshub/internal/fallback"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/provider"
	"github.com/Mohit242-bit/Newshub/internal/rank"
)

// Options carries the tunables the scheduler needs from configuration.
type Options struct {
	FeedSize     int
	TTL          time.Duration
	FetchTimeout time.Duration
	Stagger      time.Duration
	RefreshEvery time.Duration
	Categories   []model.Category
}

// Status describes the cache state of one category feed.
type Status struct {
	Category model.Category
	Items    int
	Age      time.Duration
	Fresh    bool
	Source   string
}

// Scheduler owns the background warm-up lifecycle and the read path. All
// background goroutines are tracked and joined on Shutdown.
type Scheduler struct {
	providers []provider.Provider
	orch      *fallback.Orchestrator
	cache     *cache.Manager
	merger    *diversity.Engine
	logger    *slog.Logger
	opts      Options

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sleep func(ctx context.Context, d time.Duration) error
}

func New(providers []provider.Provider, orch *fallback.Orchestrator, cacheMgr *cache.Manager, merger *diversity.Engine, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FeedSize <= 0 {
		opts.FeedSize = 20
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 6 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		providers: providers,
		orch:      orch,
		cache:     cacheMgr,
		merger:    merger,
		logger:    logger,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		sleep:     sleepWithContext,
	}
}

// CacheKey returns the cache key for a category feed.
func CacheKey(category model.Category) string {
	return "feed:" + strings.ToLower(string(category))
}

// Start launches the staggered preload of the configured categories and the
// periodic background refresh. It returns immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Preload(s.ctx)
	}()

	if s.opts.RefreshEvery > 0 {
		s.cron = cron.New()
		spec := fmt.Sprintf("@every %s", s.opts.RefreshEvery)
		if _, err := s.cron.AddFunc(spec, func() { s.refreshWarm() }); err != nil {
			s.logger.Error("refresh schedule rejected", "spec", spec, "error", err)
		} else {
			s.cron.Start()
		}
	}
}

// Get answers a category read. A fresh cache entry is served as-is; on a miss
// the category is fetched, ranked and cached synchronously. The call never
// fails: degraded tiers inside the orchestrator guarantee a batch.
func (s *Scheduler) Get(ctx context.Context, category model.Category) model.Batch {
	if entry, ok := s.cache.Get(CacheKey(category)); ok {
		return entry.Payload
	}
	return s.fetch(ctx, category)
}

// Refresh discards whatever is cached for the category and refetches it.
func (s *Scheduler) Refresh(ctx context.Context, category model.Category) model.Batch {
	s.cache.ClearPrefix(CacheKey(category))
	return s.fetch(ctx, category)
}

// PreloadRelated warms the categories adjacent to the one just read, in the
// background. Each warm-up is tracked and cancelled on Shutdown.
func (s *Scheduler) PreloadRelated(category model.Category) {
	for _, related := range model.RelatedCategories(category) {
		if s.cache.Fresh(CacheKey(related)) {
			continue
		}
		related := related
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fetch(s.ctx, related)
		}()
	}
}

// Status reports the cache state for one category.
func (s *Scheduler) Status(category model.Category) Status {
	st := Status{Category: category}
	entry, ok := s.cache.GetEvenIfExpired(CacheKey(category))
	if !ok {
		return st
	}
	st.Items = len(entry.Payload.Articles)
	st.Source = entry.Payload.ProviderLabel
	st.Fresh = s.cache.Fresh(CacheKey(category))
	if age, ok := s.cache.Age(CacheKey(category)); ok {
		st.Age = age
	}
	return st
}

// StatusAll reports every known category, warm or cold.
func (s *Scheduler) StatusAll() []Status {
	categories := model.AllCategories()
	out := make([]Status, 0, len(categories))
	for _, c := range categories {
		out = append(out, s.Status(c))
	}
	return out
}

// Wait blocks until the currently tracked background work finishes, without
// cancelling it. One-shot callers use it to let related-category warm-ups
// land in the durable cache before exit.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Shutdown cancels background work and waits for every tracked goroutine and
// pending cache write to finish.
func (s *Scheduler) Shutdown() {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.cache.Flush()
}

// fetch runs the full pipeline for one category: parallel fan-out as the
// primary tier, each provider alone as a fallback tier, merged for diversity
// and ordered by popularity before caching.
func (s *Scheduler) fetch(ctx context.Context, category model.Category) model.Batch {
	call := fallback.Call{
		Primary: fallback.Tier{
			Label: s.fanOutLabel(),
			Op: func(ctx context.Context) (model.Batch, error) {
				return s.fanOut(ctx, category)
			},
		},
		CacheKey: CacheKey(category),
		TTL:      s.opts.TTL,
	}
	for _, p := range s.providers {
		p := p
		call.Fallbacks = append(call.Fallbacks, fallback.Tier{
			Label: p.Name(),
			Op: func(ctx context.Context) (model.Batch, error) {
				return s.fetchOne(ctx, p, category)
			},
		})
	}
	return s.orch.Execute(ctx, call)
}

// fanOut queries every provider in parallel and merges whatever came back.
// It fails only when no provider produced anything.
func (s *Scheduler) fanOut(ctx context.Context, category model.Category) (model.Batch, error) {
	result := provider.FetchAll(ctx, s.providers, category, s.opts.FeedSize, s.opts.FetchTimeout)
	for _, err := range result.Errors {
		s.logger.Warn("provider failed during fan-out", "category", category, "error", err)
	}
	if len(result.Batches) == 0 {
		return model.Batch{}, fmt.Errorf("category %s: no provider responded", category)
	}
	return s.finish(result.Batches, category), nil
}

// fetchOne queries a single provider, used for the per-provider fallback
// tiers. The merge still runs so duplicates within one feed collapse.
func (s *Scheduler) fetchOne(ctx context.Context, p provider.Provider, category model.Category) (model.Batch, error) {
	batch, err := p.Fetch(ctx, category, s.opts.FeedSize)
	if err != nil {
		return model.Batch{}, err
	}
	return s.finish([]model.Batch{batch}, category), nil
}

// finish merges the raw batches and reorders the articles by popularity.
func (s *Scheduler) finish(batches []model.Batch, category model.Category) model.Batch {
	merged := s.merger.Merge(batches, s.opts.FeedSize)
	scored := rank.Rank(merged.Articles, category, time.Now())
	ordered := make([]model.Article, len(scored))
	for i, sc := range scored {
		ordered[i] = sc.Article
	}
	merged.Articles = ordered
	return merged
}

// Preload warms the configured categories one by one with a stagger between
// them, so startup does not burst every provider at once. It blocks until
// every category is warm or ctx is cancelled.
func (s *Scheduler) Preload(ctx context.Context) {
	for i, category := range s.opts.Categories {
		if i > 0 && s.opts.Stagger > 0 {
			if err := s.sleep(ctx, s.opts.Stagger); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if s.cache.Fresh(CacheKey(category)) {
			continue
		}
		batch := s.fetch(ctx, category)
		s.logger.Info("category preloaded",
			"category", category,
			"articles", len(batch.Articles),
			"source", batch.ProviderLabel,
		)
	}
}

// refreshWarm refetches every category that already has a cache entry, warm
// or stale, keeping the working set bounded to what was actually read.
func (s *Scheduler) refreshWarm() {
	for _, category := range model.AllCategories() {
		if s.ctx.Err() != nil {
			return
		}
		if _, ok := s.cache.Age(CacheKey(category)); !ok {
			continue
		}
		s.Refresh(s.ctx, category)
	}
}

func (s *Scheduler) fanOutLabel() string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, " + ")
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
