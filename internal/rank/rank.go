// Package rank scores articles for popularity and orders a category feed.
package rank

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Mohit242-bit/Newshub/internal/model"
)

// Metrics shows how each component contributed to the final score. Every
// component lies in [0, 1].
type Metrics struct {
	Recency           float64
	Engagement        float64
	SourceCredibility float64
	Trending          float64
	CategoryRelevance float64
	Overall           float64
}

const (
	weightRecency    = 0.25
	weightEngagement = 0.20
	weightSource     = 0.15
	weightTrending   = 0.25
	weightCategory   = 0.15
)

// Scored is an article with its popularity metrics attached. The metrics are
// a ranking artifact, not part of the article's identity.
type Scored struct {
	model.Article
	Metrics Metrics
}

// Rank scores every article against the target category and returns them in
// descending overall-score order. Ties keep recency order: the input is
// pre-sorted by publish time and the final sort is stable.
func Rank(articles []model.Article, target model.Category, now time.Time) []Scored {
	ordered := make([]model.Article, len(articles))
	copy(ordered, articles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PublishedAt.After(ordered[j].PublishedAt)
	})

	scored := make([]Scored, len(ordered))
	for i, a := range ordered {
		scored[i] = Scored{Article: a, Metrics: Score(a, target, now)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Metrics.Overall > scored[j].Metrics.Overall
	})
	return scored
}

// Score computes the popularity metrics for one article.
func Score(a model.Article, target model.Category, now time.Time) Metrics {
	m := Metrics{
		Recency:           recencyScore(a.PublishedAt, now),
		Engagement:        engagementScore(a),
		SourceCredibility: credibilityScore(a.Source),
		Trending:          trendingScore(a, target),
		CategoryRelevance: relevanceScore(a.Category, target),
	}
	m.Overall = m.Recency*weightRecency +
		m.Engagement*weightEngagement +
		m.SourceCredibility*weightSource +
		m.Trending*weightTrending +
		m.CategoryRelevance*weightCategory
	return m
}

// recencyScore is a step function of article age.
func recencyScore(published, now time.Time) float64 {
	age := now.Sub(published)
	switch {
	case age <= 2*time.Hour:
		return 1.0
	case age <= 12*time.Hour:
		return 0.8
	case age <= 24*time.Hour:
		return 0.6
	case age <= 72*time.Hour:
		return 0.4
	case age <= 168*time.Hour:
		return 0.2
	default:
		return 0.1
	}
}

// engagementKeywords are terms that correlate with reader pull.
var engagementKeywords = []string{
	"breaking", "exclusive", "revealed", "major", "record", "historic",
	"crisis", "surge", "collapse", "wins", "launch", "warning",
	"investigation", "landmark", "unprecedented",
}

func engagementScore(a model.Article) float64 {
	score := 0.5

	text := strings.ToLower(a.Title + " " + a.Description)
	for _, kw := range engagementKeywords {
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	if l := len([]rune(a.Title)); l >= 40 && l <= 80 {
		score += 0.2
	}
	if a.ImageURL != "" {
		score += 0.1
	}
	if a.Author != "" {
		score += 0.1
	}
	return clamp(score)
}

// sourceCredibility maps known source names to a credibility constant.
// Unknown sources sit at 0.5.
var sourceCredibility = map[string]float64{
	"Reuters":          0.95,
	"Associated Press": 0.95,
	"BBC News":         0.90,
	"The Guardian":     0.85,
	"Al Jazeera":       0.80,
	"TechCrunch":       0.80,
	"Ars Technica":     0.80,
	"The Verge":        0.75,
	"Hacker News":      0.75,
	"Wired":            0.75,
	"Reddit":           0.70,
}

func credibilityScore(source string) float64 {
	if w, ok := sourceCredibility[source]; ok {
		return w
	}
	return 0.5
}

// trendingKeywords holds the curated hot-topic terms per category.
var trendingKeywords = map[model.Category][]string{
	model.World:         {"election", "summit", "ceasefire", "sanctions", "treaty", "refugee"},
	model.Business:      {"earnings", "merger", "inflation", "layoffs", "startup", "ipo", "rates"},
	model.Technology:    {"ai", "chip", "quantum", "privacy", "cybersecurity", "opensource", "robot"},
	model.Science:       {"climate", "vaccine", "telescope", "genome", "fusion", "discovery"},
	model.Health:        {"outbreak", "vaccine", "trial", "mental", "nutrition", "cancer"},
	model.Sports:        {"final", "transfer", "championship", "olympics", "injury", "record"},
	model.Entertainment: {"premiere", "boxoffice", "award", "sequel", "streaming", "chart"},
	model.All:           {"breaking", "election", "ai", "climate", "crisis", "record"},
}

func trendingScore(a model.Article, target model.Category) float64 {
	keywords := trendingKeywords[target]
	if len(keywords) == 0 {
		return 0
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a.Title + " " + a.Description)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words[w] = true
		}
	}

	matched := 0
	for _, kw := range keywords {
		if words[kw] {
			matched++
		}
	}
	score := float64(matched) * 0.15
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func relevanceScore(articleCat, target model.Category) float64 {
	switch {
	case articleCat == target:
		return 1.0
	case target == model.All:
		return 0.8
	case model.IsRelated(target, articleCat):
		return 0.6
	default:
		return 0.1
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
