package summarizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

const (
	maxBodyChars      = 500
	maxPromptComments = 5

	summarySystemPrompt = "You are a market research analyst. Summarize the scraped social media content: " +
		"recurring themes, audience sentiment, and standout posts. Answer in the language of the content."

	compareSystemPrompt = "You are a market research analyst. Compare the provided projects: shared themes, " +
		"differences in audience sentiment, and what each project can learn from the others."

	visionPrompt = "Describe what these images communicate about the product or content: " +
		"visual style, mood, and the intent behind them. Be concise."
)

func buildSummaryPrompt(spec model.FilterSpec, items []model.RawItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s, query %q, %s to %s.\n\n",
		spec.Platform, spec.Target,
		spec.TimeRangeStart.Format("2006-01-02"), spec.TimeRangeEnd.Format("2006-01-02"))

	for i, item := range items {
		fmt.Fprintf(&b, "### Post %d: %s\n", i+1, item.Title)
		fmt.Fprintf(&b, "Author: %s | Score: %d | Comments: %d\n", item.Author, item.PopularityScore, item.NumComments)
		if item.BodyText != "" {
			fmt.Fprintln(&b, truncate(item.BodyText, maxBodyChars))
		}
		if item.Transcript != "" {
			fmt.Fprintln(&b, "Transcript:", truncate(item.Transcript, maxBodyChars))
		}
		comments := item.TopComments
		if len(comments) > maxPromptComments {
			comments = comments[:maxPromptComments]
		}
		for _, c := range comments {
			fmt.Fprintf(&b, "- %s (%d): %s\n", c.Author, c.Score, c.Body)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildComparePrompt(sections []CompareSection) string {
	var b strings.Builder
	for i, s := range sections {
		fmt.Fprintf(&b, "## Project %d: %s\n%s\n\n", i+1, s.ProjectName, s.Context)
	}
	return b.String()
}

// truncate cuts s to at most n bytes, backing up to a rune boundary so a
// multi-byte character is never split mid-sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
