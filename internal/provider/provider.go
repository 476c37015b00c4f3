// Package provider defines the adapter contract for upstream content
// sources and the adapters for RSS feeds and REST APIs.
package provider

import (
	"context"
	"sync"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/model"
)

// Provider fetches raw article batches for one upstream source. A failed
// fetch returns an *Error rather than malformed data.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, category model.Category, limit int) (model.Batch, error)
}

// FanOutResult collects the outcome of a parallel multi-provider fetch.
type FanOutResult struct {
	Batches []model.Batch
	Errors  []error
}

// FetchAll queries every provider in parallel and fans in once all calls
// complete or hit their individual timeout. A failing provider never affects
// its siblings.
func FetchAll(ctx context.Context, providers []Provider, category model.Category, limit int, timeout time.Duration) FanOutResult {
	var (
		mu     sync.Mutex
		result FanOutResult
		wg     sync.WaitGroup
	)

	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			batch, err := p.Fetch(callCtx, category, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err)
				return
			}
			result.Batches = append(result.Batches, batch)
		}(p)
	}

	wg.Wait()
	return result
}
