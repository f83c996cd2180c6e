package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller mistakes. Wrap with %w to attach detail.
var (
	// ErrInvalidFilter means the filter spec is malformed; fix the input.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInsufficientMaterials means a comparison was requested over fewer
	// than two materials.
	ErrInsufficientMaterials = errors.New("at least two materials required")
)

// FetchError reports an upstream platform failure. Retryable by re-running
// the scrape; never folded into an empty result.
type FetchError struct {
	Platform Platform
	Reason   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %s", e.Platform, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SummarizerError reports a language-model backend failure. Already-fetched
// items are never lost because of it.
type SummarizerError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *SummarizerError) Error() string {
	return fmt.Sprintf("summarizer %s failed: %s", e.Backend, e.Reason)
}

func (e *SummarizerError) Unwrap() error { return e.Err }

// StorageError reports that the material repository itself failed. Fatal to
// the operation, never to the process.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MaterialNotFoundError identifies which requested material is missing.
type MaterialNotFoundError struct {
	MaterialID string
}

func (e *MaterialNotFoundError) Error() string {
	return fmt.Sprintf("material %s not found", e.MaterialID)
}

// IsNotFound reports whether err is a missing-material outcome.
func IsNotFound(err error) bool {
	var nf *MaterialNotFoundError
	return errors.As(err, &nf)
}
