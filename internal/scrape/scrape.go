// Package scrape orchestrates one scrape run: validate the filter, fetch
// from the platform, apply the filter engine, optionally summarize, and
// persist the result as the session's new working state.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/fetch"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/filter"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/session"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/summarizer"
)

// Options controls the optional AI stage of a run.
type Options struct {
	Summarize bool
	AI        summarizer.Options
}

// Orchestrator runs scrapes end to end. A run is idempotent from the
// session's point of view: re-running the same filter fully replaces the
// previous working state rather than merging into it.
type Orchestrator struct {
	fetchers   *fetch.Registry
	summarizer summarizer.Summarizer
	sessions   *session.Store
	limit      int
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator. limit caps how many items one
// run may bring back from a platform.
func NewOrchestrator(fetchers *fetch.Registry, s summarizer.Summarizer, sessions *session.Store, limit int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		fetchers:   fetchers,
		summarizer: s,
		sessions:   sessions,
		limit:      limit,
		logger:     logger,
	}
}

// Run executes one scrape for the session and returns the stored state.
//
// An empty result after filtering is a success, not an error. A summarizer
// failure never discards fetched items: the state is stored without a
// summary and its Warning explains what happened. A canceled context aborts
// before the session is written, leaving the previous state intact.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, spec model.FilterSpec, opts Options) (*model.SessionState, error) {
	if err := filter.Validate(spec); err != nil {
		return nil, err
	}

	fetcher, ok := o.fetchers.Fetcher(spec.Platform)
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for platform %q", model.ErrInvalidFilter, spec.Platform)
	}

	o.logger.Info("scrape started",
		"session_id", sessionID,
		"platform", spec.Platform,
		"target", spec.Target)

	raw, err := fetcher.Fetch(ctx, spec, o.limit)
	if err != nil {
		return nil, err
	}
	items := filter.Apply(raw, spec)
	o.logger.Info("scrape fetched", "session_id", sessionID, "fetched", len(raw), "kept", len(items))

	state := &model.SessionState{
		SessionID:  sessionID,
		FilterSpec: spec,
		RawItems:   items,
		UpdatedAt:  time.Now().UTC(),
	}

	if opts.Summarize && len(items) > 0 {
		summary, sErr := o.summarizer.Summarize(ctx, spec, items, opts.AI)
		if sErr != nil {
			o.logger.Warn("summarization failed, keeping items", "session_id", sessionID, "error", sErr)
			state.Warning = fmt.Sprintf("summary unavailable: %v", sErr)
		} else {
			state.Summary = summary
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.sessions.Put(sessionID, state)
	return state, nil
}
