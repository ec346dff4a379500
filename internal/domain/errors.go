package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrSourceNotFound means no document exists for a source on the run
	// date. It is recorded as a missing source, not treated as a failure.
	ErrSourceNotFound = errors.New("source document not found")

	// ErrEmptyDocument means the retrieved body is too short to carry news.
	ErrEmptyDocument = errors.New("document too short to extract from")

	// ErrMalformedResponse means the text-understanding service returned a
	// structure that could not be parsed. Never retried.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrAllSourcesFailed aborts the run when no source produced a result.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrNoRankableItems is returned by ranking when the caller required a
	// non-empty digest and there is nothing to rank.
	ErrNoRankableItems = errors.New("no items to rank")
)

// ExtractionError marks a source whose extraction failed as a whole.
// Partial extraction is never surfaced; a source either contributes its
// full candidate list or fails.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MergeError marks a cluster that could not produce a canonical item.
type MergeError struct {
	ClusterID string
	Err       error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %v", e.ClusterID, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// DeliveryError marks a digest or notification that could not be sent.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver digest: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
