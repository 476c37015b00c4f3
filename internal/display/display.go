// Package display renders feeds and status views for the terminal.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mohit242-bit/Newshub/internal/fallback"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/scheduler"
)

var (
	// Adaptive colors for dark/light terminals
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#C98A00", Dark: "#E5C07B"}

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	descStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			PaddingLeft(4)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			PaddingLeft(1)

	degradedStyle = lipgloss.NewStyle().
			Foreground(colorWarn).
			Bold(true)

	freshStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	staleStyle = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// Feed renders a category feed as a numbered list with source and age per
// row. The provider label is shown in the header; degraded labels (cached,
// offline, placeholder) are highlighted so the reader knows the feed is not
// live.
func Feed(category model.Category, batch model.Batch, now time.Time) string {
	var b strings.Builder

	label := batch.ProviderLabel
	if isDegraded(label) {
		label = degradedStyle.Render(label)
	} else {
		label = sourceStyle.Render(label)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s · %s", category, label)))
	b.WriteString("\n\n")

	for i, a := range batch.Articles {
		b.WriteString(fmt.Sprintf(" %2d. %s\n", i+1, titleStyle.Render(a.Title)))
		meta := fmt.Sprintf("%s · %s",
			sourceStyle.Render(a.Source),
			timeStyle.Render(relativeAge(now.Sub(a.PublishedAt))),
		)
		if a.ReadMinutes > 0 {
			meta += timeStyle.Render(fmt.Sprintf(" · %d min read", a.ReadMinutes))
		}
		b.WriteString("     " + meta + "\n")
		if a.Description != "" {
			b.WriteString(descStyle.Render(a.Description) + "\n")
		}
	}

	if batch.HasMore {
		b.WriteString("\n" + timeStyle.Render(" more articles available upstream") + "\n")
	}
	return b.String()
}

// StatusTable renders one line per category: item count, entry age, and
// whether the cache entry is still fresh.
func StatusTable(statuses []scheduler.Status, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("category feeds"))
	b.WriteString("\n\n")

	for _, st := range statuses {
		state := timeStyle.Render("cold")
		age := ""
		if st.Items > 0 {
			if st.Fresh {
				state = freshStyle.Render("fresh")
			} else {
				state = staleStyle.Render("stale")
			}
			age = relativeAge(st.Age)
		}
		b.WriteString(fmt.Sprintf(" %-14s %-6s %3d articles  %s\n",
			strings.ToLower(string(st.Category)), state, st.Items, timeStyle.Render(age)))
	}
	return b.String()
}

// Failures renders the retained provider failures, newest last.
func Failures(records []fallback.FailureRecord) string {
	if len(records) == 0 {
		return freshStyle.Render(" no recorded provider failures") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("recent provider failures (%d)", len(records))))
	b.WriteString("\n\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf(" %s  %s attempt %d: %v\n",
			timeStyle.Render(r.At.Format("15:04:05")),
			sourceStyle.Render(r.Label),
			r.Attempt,
			r.Err,
		))
	}
	return b.String()
}

func isDegraded(label string) bool {
	return strings.Contains(label, "(cached)") ||
		strings.Contains(label, "(offline)") ||
		strings.Contains(label, "(placeholder)")
}

// relativeAge formats a duration the way feed readers do.
func relativeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
