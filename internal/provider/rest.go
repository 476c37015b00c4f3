package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/model"
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// REST fetches articles from a JSON HTTP API exposing
// GET {base}/articles?category={c}&limit={n}.
type REST struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	clock      func() time.Time
}

// RESTOption configures the REST provider.
type RESTOption func(*REST)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) RESTOption {
	return func(r *REST) {
		r.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(base string) RESTOption {
	return func(r *REST) {
		r.baseURL = base
	}
}

// WithAPIKey attaches an API key to every request.
func WithAPIKey(key string) RESTOption {
	return func(r *REST) {
		r.apiKey = key
	}
}

func NewREST(name, baseURL string, opts ...RESTOption) *REST {
	r := &REST{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *REST) Name() string {
	return r.name
}

type restArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Tags        []string  `json:"tags"`
}

type restResponse struct {
	Articles []restArticle `json:"articles"`
	Total    int           `json:"total"`
	HasMore  bool          `json:"has_more"`
}

func (r *REST) Fetch(ctx context.Context, category model.Category, limit int) (model.Batch, error) {
	endpoint := fmt.Sprintf("%s/articles?category=%s&limit=%d",
		r.baseURL, url.QueryEscape(string(category)), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Batch{}, WrapError(r.name, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-Api-Key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return model.Batch{}, WrapError(r.name, fmt.Errorf("calling api: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.Batch{}, &Error{Provider: r.name, Kind: KindRateLimited,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return model.Batch{}, &Error{Provider: r.name, Kind: KindNetwork,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.Batch{}, WrapError(r.name, fmt.Errorf("reading body: %w", err))
	}

	var parsed restResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Batch{}, &Error{Provider: r.name, Kind: KindMalformed,
			Err: fmt.Errorf("decoding response: %w", err)}
	}

	now := r.clock()
	articles := make([]model.Article, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		id := a.ID
		if id == "" {
			id = articleID(a.URL)
		}
		pub := a.PublishedAt
		if pub.IsZero() {
			pub = now
		}
		articles = append(articles, model.Article{
			ID:          id,
			Title:       a.Title,
			Description: truncate(stripHTML(a.Description), 300),
			URL:         a.URL,
			ImageURL:    a.ImageURL,
			Author:      a.Author,
			Source:      r.name,
			PublishedAt: pub,
			Category:    category,
			Tags:        a.Tags,
			ReadMinutes: estimateReadMinutes(a.Description),
		})
	}

	return model.Batch{
		Articles:       articles,
		ProviderLabel:  r.name,
		RetrievedAt:    now,
		HasMore:        parsed.HasMore,
		TotalAvailable: parsed.Total,
	}, nil
}
