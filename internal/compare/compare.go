// Package compare builds cross-material comparison reports.
package compare

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/storage"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/summarizer"
)

const (
	maxContextTitles = 10
	maxSectionChars  = 4000
)

// Engine resolves saved materials and synthesizes a comparison across them.
type Engine struct {
	repo         storage.Repository
	summarizer   summarizer.Summarizer
	defaultModel string
}

// NewEngine creates a comparison engine.
func NewEngine(repo storage.Repository, s summarizer.Summarizer, defaultModel string) *Engine {
	return &Engine{repo: repo, summarizer: s, defaultModel: defaultModel}
}

// Compare loads the requested materials and produces a report. All
// materials must resolve before anything is sent to the language model; a
// single missing ID fails the whole call. MaterialIDs in the report keep
// the caller's order.
func (e *Engine) Compare(ctx context.Context, materialIDs []string, opts summarizer.Options) (*model.ComparisonReport, error) {
	if len(materialIDs) < 2 {
		return nil, fmt.Errorf("%w: got %d", model.ErrInsufficientMaterials, len(materialIDs))
	}

	materials := make([]*model.Material, len(materialIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range materialIDs {
		g.Go(func() error {
			m, err := e.repo.Get(gctx, id)
			if err != nil {
				return err
			}
			materials[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make([]summarizer.CompareSection, len(materials))
	for i, m := range materials {
		sections[i] = summarizer.CompareSection{
			ProjectName: m.ProjectName,
			Context:     sectionContext(m),
		}
	}

	text, err := e.summarizer.Compare(ctx, sections, opts)
	if err != nil {
		return nil, err
	}

	modelUsed := opts.Model
	if modelUsed == "" {
		modelUsed = e.defaultModel
	}
	return &model.ComparisonReport{
		MaterialIDs: append([]string(nil), materialIDs...),
		ReportText:  text,
		GeneratedAt: time.Now().UTC(),
		ModelUsed:   modelUsed,
	}, nil
}

// SaveReport persists a comparison report as a material of its own so it
// shows up in the library next to the scrapes it was built from. The
// report's source material IDs and model carry over as provenance.
func (e *Engine) SaveReport(ctx context.Context, report *model.ComparisonReport, projectName string, tags []string) (*model.Material, error) {
	m := model.Material{
		ProjectName:       projectName,
		Tags:              append([]string(nil), tags...),
		Kind:              model.KindReport,
		ReportText:        report.ReportText,
		SourceMaterialIDs: append([]string(nil), report.MaterialIDs...),
		ModelUsed:         report.ModelUsed,
	}
	if err := e.repo.Save(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// sectionContext prefers the material's stored summary; without one it
// falls back to a digest of the top item titles so an unsummarized scrape
// still contributes.
func sectionContext(m *model.Material) string {
	if m.Summary != nil && m.Summary.Text != "" {
		ctx := m.Summary.Text
		if m.Summary.VisualIntent != "" {
			ctx += "\nVisuals: " + m.Summary.VisualIntent
		}
		return truncate(ctx, maxSectionChars)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s %q. Top posts:\n", m.FilterSpec.Platform, m.FilterSpec.Target)
	for i, item := range m.RawItems {
		if i == maxContextTitles {
			break
		}
		fmt.Fprintf(&b, "- %s (score %d)\n", item.Title, item.PopularityScore)
	}
	return truncate(b.String(), maxSectionChars)
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
