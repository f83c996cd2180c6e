// Package summarizer generates AI digests of scraped content through
// OpenAI-compatible chat completion backends.
package summarizer

import (
	"context"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

// Options selects the model and optional capabilities for one call.
type Options struct {
	Model         string
	VisionEnabled bool
}

// CompareSection is one material's contribution to a comparison prompt,
// prepared by the caller.
type CompareSection struct {
	ProjectName string
	Context     string
}

// Summarizer is the narrow capability the rest of the application depends
// on. Implementations must not retain the item slice.
type Summarizer interface {
	Summarize(ctx context.Context, spec model.FilterSpec, items []model.RawItem, opts Options) (*model.Summary, error)
	Compare(ctx context.Context, sections []CompareSection, opts Options) (string, error)
}
