// Package signals implements the quality detectors that run over a
// preference dataset, and the severity classifier their output is
// normalized with.
package signals

import (
	"context"

	"github.com/prefaudit/prefaudit/pkg/models"
)

// Signal type names as persisted in the detections table.
const (
	SignalLengthRatio       = "length_ratio"
	SignalReadability       = "readability_mismatch"
	SignalRefusalBias       = "refusal_bias"
	SignalRepetition        = "repetition"
	SignalUnsafePrompt      = "unsafe_prompt"
	SignalSemanticDuplicate = "semantic_duplicate"
)

// Finding is the raw output of a detector for one row (or one row pair),
// before normalization into a persisted detection.
type Finding struct {
	// RowID is the primary row the finding is about.
	RowID string

	// RelatedID is set for two-row findings (semantic duplicates).
	RelatedID string

	// Flagged marks the finding as an actual quality problem. Detectors
	// only emit flagged findings; the field is kept explicit so callers
	// never have to guess.
	Flagged bool

	// Score is the normalized [0,1] severity for detectors with a
	// continuous signal. Nil for boolean-only detectors.
	Score *float64

	// Evidence carries detector-specific fields, serialized into the
	// detection's metadata.
	Evidence map[string]any
}

// Detector is the capability every quality signal implements. Detectors are
// stateless across calls (thresholds are fixed at construction), never mutate
// rows, and are safe to run concurrently with each other.
type Detector interface {
	// Name returns the persisted signal type.
	Name() string

	// Analyze runs the detector over the full row set and returns its
	// flagged findings.
	Analyze(ctx context.Context, rows []models.PreferenceRow) ([]Finding, error)
}

func score(v float64) *float64 {
	return &v
}
