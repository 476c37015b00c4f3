// Package diversity merges article batches from multiple providers into one
// deduplicated, source-interleaved sequence.
package diversity

import (
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Mohit242-bit/Newshub/internal/model"
)

// similarityThreshold is the word-set similarity above which two titles are
// considered the same story. Similarity is the intersection measured against
// the smaller of the two normalized word sets, so a title that merely swaps
// one word ("Begins" for "Commences") still registers as a duplicate.
const similarityThreshold = 0.70

// Engine merges and remixes batches. The zero retained state is the rand
// source used only by Remix.
type Engine struct {
	rng *rand.Rand
}

func New() *Engine {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed fixes the shuffle seed; used by tests for determinism.
func NewWithSeed(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

// tagged pairs an article with its originating provider, which may differ
// from Article.Source when a provider aggregates several outlets.
type tagged struct {
	article  model.Article
	provider string
}

// Merge flattens the batches, removes near-duplicate titles, sorts by
// recency, and interleaves providers round-robin so no single provider
// dominates the head of the list. The output is capped at target articles
// (unlimited when target <= 0). Merge is deterministic.
func (e *Engine) Merge(batches []model.Batch, target int) model.Batch {
	var flat []tagged
	retrieved := time.Time{}
	for _, b := range batches {
		for _, a := range b.Articles {
			if a.Title == "" || a.URL == "" {
				continue
			}
			flat = append(flat, tagged{article: a, provider: b.ProviderLabel})
		}
		if b.RetrievedAt.After(retrieved) {
			retrieved = b.RetrievedAt
		}
	}

	unique := dedupe(flat)

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].article.PublishedAt.After(unique[j].article.PublishedAt)
	})

	interleaved := interleave(unique, target)

	label := mergedLabel(batches)
	return model.Batch{
		Articles:      interleaved,
		ProviderLabel: label,
		RetrievedAt:   retrieved,
	}
}

// Remix partitions articles into a recent head (~70% of target) kept
// up front and a randomized tail, then shuffles the concatenation once for
// presentation. It does not deduplicate; callers remix Merge output.
func (e *Engine) Remix(articles []model.Article, target int) []model.Article {
	if target <= 0 || target > len(articles) {
		target = len(articles)
	}
	out := make([]model.Article, len(articles))
	copy(out, articles)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	recentCount := target * 70 / 100
	if recentCount > len(out) {
		recentCount = len(out)
	}
	pool := out[recentCount:]
	e.shuffle(pool)

	out = out[:target]
	e.shuffle(out)
	return out
}

// shuffle is a uniform in-place Fisher-Yates shuffle.
func (e *Engine) shuffle(articles []model.Article) {
	e.rng.Shuffle(len(articles), func(i, j int) {
		articles[i], articles[j] = articles[j], articles[i]
	})
}

// dedupe drops articles whose normalized title is similar to an already
// accepted one. On a duplicate pair the article with the longer description
// survives.
func dedupe(articles []tagged) []tagged {
	var accepted []tagged
	var acceptedWords []map[string]bool

	for _, candidate := range articles {
		words := titleWords(candidate.article.Title)

		dupIndex := -1
		for i, existing := range acceptedWords {
			if similarity(words, existing) >= similarityThreshold {
				dupIndex = i
				break
			}
		}

		if dupIndex < 0 {
			accepted = append(accepted, candidate)
			acceptedWords = append(acceptedWords, words)
			continue
		}
		if len(candidate.article.Description) > len(accepted[dupIndex].article.Description) {
			accepted[dupIndex] = candidate
			acceptedWords[dupIndex] = words
		}
	}
	return accepted
}

// interleave groups articles by provider and emits one per provider in
// round-robin order until the queues drain or target is reached. Provider
// order follows first appearance in the recency-sorted input, so the head of
// the output is both recent and diverse.
func interleave(articles []tagged, target int) []model.Article {
	if target <= 0 {
		target = len(articles)
	}

	var order []string
	queues := make(map[string][]model.Article)
	for _, t := range articles {
		if _, seen := queues[t.provider]; !seen {
			order = append(order, t.provider)
		}
		queues[t.provider] = append(queues[t.provider], t.article)
	}

	out := make([]model.Article, 0, min(target, len(articles)))
	for len(out) < target {
		emitted := false
		for _, provider := range order {
			q := queues[provider]
			if len(q) == 0 {
				continue
			}
			out = append(out, q[0])
			queues[provider] = q[1:]
			emitted = true
			if len(out) >= target {
				break
			}
		}
		if !emitted {
			break
		}
	}
	return out
}

// titleWords normalizes a title into its significant word set: lowercase,
// punctuation stripped, words of length <= 3 dropped.
func titleWords(title string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) <= 3 {
			continue
		}
		words[w] = true
	}
	return words
}

func similarity(a, b map[string]bool) float64 {
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	if smaller == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	return float64(intersection) / float64(smaller)
}

func mergedLabel(batches []model.Batch) string {
	var labels []string
	for _, b := range batches {
		if b.ProviderLabel != "" && len(b.Articles) > 0 {
			labels = append(labels, b.ProviderLabel)
		}
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels, " + ")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
