// Package classify defines the emotion-classifier boundary. The classifier
// itself is an opaque sidecar service; this package holds its contract and an
// HTTP client for it.
package classify

import (
	"context"
	"errors"
)

// ErrModelNotLoaded is returned when the classifier artifact is not yet
// available on the sidecar.
var ErrModelNotLoaded = errors.New("emotion model not loaded")

// Score is one (label, probability) pair of a ranked classification.
type Score struct {
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

// Result is a classification outcome: the top label, its probability, and
// the top-k ranked list sorted by descending probability (ties keep the
// classifier's original index order).
type Result struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Ranked      []Score `json:"top_k"`
}

// Classifier labels the emotion of a short text.
type Classifier interface {
	Classify(ctx context.Context, text string, topK int) (Result, error)
}
