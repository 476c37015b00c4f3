package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Mohit242-bit/Newshub/internal/cache"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/ratelimit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrchestrator(c *cache.Manager, l *ratelimit.Limiter, cfg Config) *Orchestrator {
	o := New(c, l, cfg, discardLogger())
	// Tests never wait on real retry delays.
	o.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return o
}

func okBatch(label string, count int) model.Batch {
	articles := make([]model.Article, count)
	for i := range articles {
		articles[i] = model.Article{
			ID:          fmt.Sprintf("%s-%d", label, i),
			Title:       fmt.Sprintf("%s headline number %d", label, i),
			URL:         fmt.Sprintf("https://%s.example.com/%d", label, i),
			Source:      label,
			PublishedAt: time.Now(),
		}
	}
	return model.Batch{Articles: articles, RetrievedAt: time.Now()}
}

func succeed(label string, count int) Operation {
	return func(ctx context.Context) (model.Batch, error) {
		return okBatch(label, count), nil
	}
}

func fail(err error) Operation {
	return func(ctx context.Context) (model.Batch, error) {
		return model.Batch{}, err
	}
}

func TestPrimarySuccessIsCached(t *testing.T) {
	mgr := cache.New(nil, discardLogger())
	o := newOrchestrator(mgr, nil, Config{MaxRetries: 2})

	got := o.Execute(context.Background(), Call{
		Primary:  Tier{Label: "primary", Op: succeed("primary", 3)},
		CacheKey: "feed:technology",
		TTL:      time.Minute,
	})

	if got.ProviderLabel != "primary" {
		t.Errorf("expected primary label, got %q", got.ProviderLabel)
	}
	if len(got.Articles) != 3 {
		t.Errorf("expected 3 articles, got %d", len(got.Articles))
	}
	entry, ok := mgr.Get("feed:technology")
	if !ok {
		t.Fatal("successful result should have been cached")
	}
	if len(entry.Payload.Articles) != 3 {
		t.Errorf("cached batch has %d articles, want 3", len(entry.Payload.Articles))
	}
}

func TestFallbackAfterPrimaryExhausted(t *testing.T) {
	o := newOrchestrator(cache.New(nil, discardLogger()), nil, Config{MaxRetries: 2})

	primaryCalls := 0
	got := o.Execute(context.Background(), Call{
		Primary: Tier{Label: "primary", Op: func(ctx context.Context) (model.Batch, error) {
			primaryCalls++
			return model.Batch{}, errors.New("connection refused")
		}},
		Fallbacks: []Tier{{Label: "backup", Op: succeed("backup", 2)}},
		CacheKey:  "feed:all",
		TTL:       time.Minute,
	})

	if primaryCalls != 3 {
		t.Errorf("primary should be tried 1 + 2 retries = 3 times, got %d", primaryCalls)
	}
	if got.ProviderLabel != "backup" {
		t.Errorf("expected the fallback's label, got %q", got.ProviderLabel)
	}
}

func TestRetryRecoversWithinBudget(t *testing.T) {
	o := newOrchestrator(nil, nil, Config{MaxRetries: 2})

	calls := 0
	got := o.Execute(context.Background(), Call{
		Primary: Tier{Label: "flaky", Op: func(ctx context.Context) (model.Batch, error) {
			calls++
			if calls < 3 {
				return model.Batch{}, errors.New("transient")
			}
			return okBatch("flaky", 1), nil
		}},
	})

	if calls != 3 {
		t.Errorf("expected success on the third attempt, got %d calls", calls)
	}
	if got.ProviderLabel != "flaky" {
		t.Errorf("expected the recovered provider's label, got %q", got.ProviderLabel)
	}
}

func TestEmptyBatchCountsAsFailure(t *testing.T) {
	o := newOrchestrator(nil, nil, Config{MaxRetries: 0})

	got := o.Execute(context.Background(), Call{
		Primary: Tier{Label: "empty", Op: func(ctx context.Context) (model.Batch, error) {
			return model.Batch{}, nil
		}},
		Fallbacks: []Tier{{Label: "backup", Op: succeed("backup", 1)}},
	})

	if got.ProviderLabel != "backup" {
		t.Errorf("an empty batch must trigger the fallback, got %q", got.ProviderLabel)
	}
}

func TestServesFreshCacheOnExhaustion(t *testing.T) {
	mgr := cache.New(nil, discardLogger())
	mgr.Set("feed:world", okBatch("earlier", 2), time.Hour)

	o := newOrchestrator(mgr, nil, Config{MaxRetries: 0})
	got := o.Execute(context.Background(), Call{
		Primary:  Tier{Label: "down", Op: fail(errors.New("unreachable"))},
		CacheKey: "feed:world",
		TTL:      time.Hour,
	})

	if !strings.HasSuffix(got.ProviderLabel, "(cached)") {
		t.Errorf("expected a cached-annotated label, got %q", got.ProviderLabel)
	}
	if len(got.Articles) != 2 {
		t.Errorf("expected the cached articles, got %d", len(got.Articles))
	}
}

func TestServesStaleCacheOnExhaustion(t *testing.T) {
	mgr := cache.New(nil, discardLogger())
	// TTL 0 expires immediately, leaving only the stale tier.
	mgr.Set("feed:world", okBatch("earlier", 2), 0)

	o := newOrchestrator(mgr, nil, Config{MaxRetries: 0})
	got := o.Execute(context.Background(), Call{
		Primary:  Tier{Label: "down", Op: fail(errors.New("unreachable"))},
		CacheKey: "feed:world",
		TTL:      time.Hour,
	})

	if !strings.HasSuffix(got.ProviderLabel, "(offline)") {
		t.Errorf("expected an offline-annotated label, got %q", got.ProviderLabel)
	}
}

func TestPlaceholderFloor(t *testing.T) {
	o := newOrchestrator(cache.New(nil, discardLogger()), nil, Config{MaxRetries: 0})

	got := o.Execute(context.Background(), Call{
		Primary:   Tier{Label: "down", Op: fail(errors.New("unreachable"))},
		Fallbacks: []Tier{{Label: "also-down", Op: fail(errors.New("unreachable"))}},
		CacheKey:  "feed:empty",
	})

	if len(got.Articles) == 0 {
		t.Fatal("the placeholder must carry renderable articles")
	}
	for _, a := range got.Articles {
		if a.Title == "" || a.URL == "" {
			t.Errorf("placeholder article %q missing title or url", a.ID)
		}
	}
	if !strings.Contains(got.ProviderLabel, "placeholder") {
		t.Errorf("expected a placeholder label, got %q", got.ProviderLabel)
	}
}

func TestRateLimitedTierIsSkipped(t *testing.T) {
	limiter := ratelimit.New()
	cfg := Config{MaxRetries: 2, RateRequests: 1, RateWindow: time.Minute}
	o := newOrchestrator(nil, limiter, cfg)

	// Drain the primary's only slot.
	limiter.Allow("primary", 1, time.Minute)

	primaryCalls := 0
	got := o.Execute(context.Background(), Call{
		Primary: Tier{Label: "primary", Op: func(ctx context.Context) (model.Batch, error) {
			primaryCalls++
			return okBatch("primary", 1), nil
		}},
		Fallbacks: []Tier{{Label: "backup", Op: succeed("backup", 1)}},
	})

	if primaryCalls != 0 {
		t.Errorf("a rate-limited tier must not be attempted, got %d calls", primaryCalls)
	}
	if got.ProviderLabel != "backup" {
		t.Errorf("expected the backup to serve, got %q", got.ProviderLabel)
	}
}

func TestFailureRingIsBounded(t *testing.T) {
	o := newOrchestrator(nil, nil, Config{MaxRetries: 0})

	for i := 0; i < maxFailureRecords+20; i++ {
		o.recordFailure("p", 1, fmt.Errorf("failure %d", i))
	}

	failures := o.Failures()
	if len(failures) != maxFailureRecords {
		t.Fatalf("expected the ring to hold %d records, got %d", maxFailureRecords, len(failures))
	}
	// Oldest retained record is number 20; the first 20 were overwritten.
	if got := failures[0].Err.Error(); got != "failure 20" {
		t.Errorf("expected the oldest retained failure first, got %q", got)
	}
	if got := failures[len(failures)-1].Err.Error(); got != fmt.Sprintf("failure %d", maxFailureRecords+19) {
		t.Errorf("expected the newest failure last, got %q", got)
	}
}

func TestFailuresAreRecordedPerAttempt(t *testing.T) {
	o := newOrchestrator(nil, nil, Config{MaxRetries: 2})

	o.Execute(context.Background(), Call{
		Primary: Tier{Label: "down", Op: fail(errors.New("boom"))},
	})

	failures := o.Failures()
	if len(failures) != 3 {
		t.Fatalf("expected one record per attempt, got %d", len(failures))
	}
	for i, f := range failures {
		if f.Label != "down" {
			t.Errorf("record %d has label %q, want down", i, f.Label)
		}
		if f.Attempt != i+1 {
			t.Errorf("record %d has attempt %d, want %d", i, f.Attempt, i+1)
		}
	}
}

func TestCancelledContextStopsRetries(t *testing.T) {
	o := New(nil, nil, Config{MaxRetries: 5, RetryDelay: time.Millisecond}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	got := o.Execute(ctx, Call{
		Primary: Tier{Label: "down", Op: func(c context.Context) (model.Batch, error) {
			calls++
			cancel()
			return model.Batch{}, errors.New("boom")
		}},
	})

	if calls != 1 {
		t.Errorf("a cancelled context must stop the retry loop, got %d calls", calls)
	}
	if len(got.Articles) == 0 {
		t.Error("even under cancellation the caller gets a renderable batch")
	}
}

func TestSleepWithContext(t *testing.T) {
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("zero delay should return immediately: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
