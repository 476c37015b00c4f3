package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/model"
)

func restServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestRESTFetch(t *testing.T) {
	published := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	server := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("category"); got != "technology" {
			t.Errorf("expected category=technology, got %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(restResponse{
			Articles: []restArticle{
				{Title: "API Headline", URL: "https://example.com/api/1", Description: "<p>desc</p>", Author: "Jo", PublishedAt: published},
				{Title: "", URL: "https://example.com/api/untitled"},
			},
			Total:   40,
			HasMore: true,
		})
	})

	p := NewREST("NewsAPI", server.URL, WithAPIKey("secret"))
	batch, err := p.Fetch(context.Background(), model.Technology, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(batch.Articles) != 1 {
		t.Fatalf("expected the untitled article to be dropped, got %d articles", len(batch.Articles))
	}
	a := batch.Articles[0]
	if a.Title != "API Headline" || a.Author != "Jo" || a.Description != "desc" {
		t.Errorf("unexpected article: %+v", a)
	}
	if !a.PublishedAt.Equal(published) {
		t.Errorf("expected published %v, got %v", published, a.PublishedAt)
	}
	if batch.TotalAvailable != 40 || !batch.HasMore {
		t.Errorf("pagination fields not carried: %+v", batch)
	}
}

func TestRESTFetchIgnoresUnexpectedFields(t *testing.T) {
	server := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[{"title":"T","url":"https://e.com/1","surprise_field":42}],"total":1,"new_top_level":"x"}`))
	})

	p := NewREST("NewsAPI", server.URL)
	batch, err := p.Fetch(context.Background(), model.All, 10)
	if err != nil {
		t.Fatalf("unexpected fields should not break parsing: %v", err)
	}
	if len(batch.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(batch.Articles))
	}
}

func TestRESTFetchRateLimited(t *testing.T) {
	server := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	p := NewREST("NewsAPI", server.URL)
	_, err := p.Fetch(context.Background(), model.All, 10)
	if !IsKind(err, KindRateLimited) {
		t.Errorf("expected rate-limited error, got %v", err)
	}
}

func TestRESTFetchMalformedBody(t *testing.T) {
	server := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	p := NewREST("NewsAPI", server.URL)
	_, err := p.Fetch(context.Background(), model.All, 10)
	if !IsKind(err, KindMalformed) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestRESTFetchTimeout(t *testing.T) {
	server := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	p := NewREST("NewsAPI", server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx, model.All, 10)
	if !IsKind(err, KindTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestFetchAllFansOut(t *testing.T) {
	okServer := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[{"title":"T","url":"https://e.com/1"}]}`))
	})
	badServer := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	providers := []Provider{
		NewREST("Good", okServer.URL),
		NewREST("Bad", badServer.URL),
	}

	result := FetchAll(context.Background(), providers, model.All, 10, time.Second)
	if len(result.Batches) != 1 {
		t.Fatalf("expected 1 successful batch, got %d", len(result.Batches))
	}
	if result.Batches[0].ProviderLabel != "Good" {
		t.Errorf("unexpected batch label %q", result.Batches[0].ProviderLabel)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	var pe *Error
	if !errors.As(result.Errors[0], &pe) || pe.Provider != "Bad" {
		t.Errorf("error should identify the failing provider: %v", result.Errors[0])
	}
}

func TestFetchAllBoundedByTimeout(t *testing.T) {
	slowServer := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	start := time.Now()
	result := FetchAll(context.Background(),
		[]Provider{NewREST("Slow", slowServer.URL)},
		model.All, 10, 100*time.Millisecond)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fan-out should respect the per-call timeout, took %v", elapsed)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected the slow provider to fail, got %+v", result)
	}
	if !IsKind(result.Errors[0], KindTimeout) {
		t.Errorf("expected timeout classification, got %v", result.Errors[0])
	}
}
