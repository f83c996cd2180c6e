// Package filter implements filter spec validation and the client-side
// item matching engine.
package filter

import (
	"fmt"
	"strings"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

// Validate checks that a filter spec is well-formed. A failing spec is a
// caller error (model.ErrInvalidFilter), never an upstream one.
func Validate(spec model.FilterSpec) error {
	if !spec.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", model.ErrInvalidFilter, spec.Platform)
	}
	if strings.TrimSpace(spec.Target) == "" {
		return fmt.Errorf("%w: target is empty", model.ErrInvalidFilter)
	}
	if spec.TimeRangeStart.IsZero() || spec.TimeRangeEnd.IsZero() {
		return fmt.Errorf("%w: time range is not set", model.ErrInvalidFilter)
	}
	if !spec.TimeRangeEnd.After(spec.TimeRangeStart) {
		return fmt.Errorf("%w: time range end %s is not after start %s",
			model.ErrInvalidFilter,
			spec.TimeRangeEnd.Format("2006-01-02"),
			spec.TimeRangeStart.Format("2006-01-02"))
	}
	if spec.MinPopularity < 0 {
		return fmt.Errorf("%w: min popularity %d is negative", model.ErrInvalidFilter, spec.MinPopularity)
	}
	return nil
}

// Apply keeps only the items that satisfy the spec's popularity threshold
// and time range. It is pure and deterministic: the same (items, spec) pair
// always yields the same result, regardless of what the upstream adapter
// already filtered.
func Apply(items []model.RawItem, spec model.FilterSpec) []model.RawItem {
	var kept []model.RawItem
	for _, item := range items {
		if !Matches(item, spec) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// Matches reports whether a single item satisfies the spec.
func Matches(item model.RawItem, spec model.FilterSpec) bool {
	if item.PopularityScore < spec.MinPopularity {
		return false
	}
	if item.CreatedAt.Before(spec.TimeRangeStart) {
		return false
	}
	if item.CreatedAt.After(spec.TimeRangeEnd) {
		return false
	}
	return true
}
