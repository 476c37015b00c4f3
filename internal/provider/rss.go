package provider

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/mmcdole/gofeed"
)

// RSS fetches articles from an RSS or Atom feed.
type RSS struct {
	name    string
	feedURL string
	// categoryURLs overrides feedURL for specific categories; feeds that
	// publish one stream per topic register their topic URLs here.
	categoryURLs map[model.Category]string
	parser       *gofeed.Parser
	maxAge       time.Duration
	clock        func() time.Time
}

// RSSOption configures an RSS provider.
type RSSOption func(*RSS)

// WithCategoryURL maps a category to its dedicated feed URL.
func WithCategoryURL(cat model.Category, url string) RSSOption {
	return func(r *RSS) {
		r.categoryURLs[cat] = url
	}
}

// WithMaxAge drops items older than age at fetch time.
func WithMaxAge(age time.Duration) RSSOption {
	return func(r *RSS) {
		if age > 0 {
			r.maxAge = age
		}
	}
}

func NewRSS(name, feedURL string, opts ...RSSOption) *RSS {
	r := &RSS{
		name:         name,
		feedURL:      feedURL,
		categoryURLs: make(map[model.Category]string),
		parser:       gofeed.NewParser(),
		maxAge:       7 * 24 * time.Hour,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RSS) Name() string {
	return r.name
}

func (r *RSS) Fetch(ctx context.Context, category model.Category, limit int) (model.Batch, error) {
	url := r.feedURL
	if u, ok := r.categoryURLs[category]; ok {
		url = u
	}

	feed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return model.Batch{}, WrapError(r.name, fmt.Errorf("fetching feed: %w", err))
	}

	now := r.clock()
	oldest := now.Add(-r.maxAge)
	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(articles) >= limit {
			break
		}
		if item.Title == "" || item.Link == "" {
			continue
		}

		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		if pub.Before(oldest) {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = truncate(stripHTML(desc), 300)

		article := model.Article{
			ID:          articleID(item.Link),
			Title:       strings.TrimSpace(item.Title),
			Description: desc,
			URL:         item.Link,
			Source:      r.name,
			PublishedAt: pub,
			Category:    category,
			Tags:        item.Categories,
			ReadMinutes: estimateReadMinutes(desc),
		}
		if item.Image != nil {
			article.ImageURL = item.Image.URL
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			article.Author = item.Authors[0].Name
		}
		articles = append(articles, article)
	}

	return model.Batch{
		Articles:       articles,
		ProviderLabel:  r.name,
		RetrievedAt:    now,
		HasMore:        limit > 0 && len(feed.Items) > limit,
		TotalAvailable: len(feed.Items),
	}, nil
}

func articleID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// estimateReadMinutes extrapolates full-article reading time from the
// description at 200 words per minute.
func estimateReadMinutes(desc string) int {
	words := len(strings.Fields(desc))
	minutes := (words * 3) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
