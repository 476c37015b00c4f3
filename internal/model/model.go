// Package model holds the value types that flow through the aggregation
// pipeline: articles, the batches providers return, and the category space.
package model

import "time"

// Article is a single piece of short-form content from any provider.
// Title and URL are non-empty for every article surfaced to a caller.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Author      string    `json:"author,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags,omitempty"`
	ReadMinutes int       `json:"read_minutes,omitempty"`
}

// Batch is the unit of exchange between providers and every pipeline stage.
// Each stage consumes one or more batches and produces another.
type Batch struct {
	Articles      []Article `json:"articles"`
	ProviderLabel string    `json:"provider_label"`
	RetrievedAt   time.Time `json:"retrieved_at"`
	HasMore       bool      `json:"has_more"`
	// TotalAvailable is the provider-reported total when known, 0 otherwise.
	TotalAvailable int `json:"total_available,omitempty"`
}

// Category identifies a topical view of the feed.
type Category string

const (
	All           Category = "all"
	World         Category = "world"
	Business      Category = "business"
	Technology    Category = "technology"
	Science       Category = "science"
	Health        Category = "health"
	Sports        Category = "sports"
	Entertainment Category = "entertainment"
)

// AllCategories returns every valid category in canonical order.
func AllCategories() []Category {
	return []Category{All, World, Business, Technology, Science, Health, Sports, Entertainment}
}

// related maps each category to its topically adjacent categories, used by
// the ranking engine and by related-category preloading.
var related = map[Category][]Category{
	World:         {Business},
	Business:      {World, Technology},
	Technology:    {Science, Business},
	Science:       {Technology, Health},
	Health:        {Science},
	Sports:        {Entertainment},
	Entertainment: {Sports},
}

// RelatedCategories returns the categories adjacent to cat, never including
// cat itself or the catch-all view.
func RelatedCategories(cat Category) []Category {
	out := make([]Category, len(related[cat]))
	copy(out, related[cat])
	return out
}

// IsRelated reports whether a and b are topically adjacent.
func IsRelated(a, b Category) bool {
	for _, c := range related[a] {
		if c == b {
			return true
		}
	}
	return false
}

// ParseCategory resolves a user-supplied string to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
