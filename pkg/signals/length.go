package signals

import (
	"context"
	"log/slog"

	"github.com/prefaudit/prefaudit/pkg/models"
)

// LengthRatioMaxDefault is the default symmetric bound on the
// chosen/rejected length ratio.
const LengthRatioMaxDefault = 3.0

// LengthRatio flags rows where one response is disproportionately longer
// than the other.
type LengthRatio struct {
	maxRatio float64
}

// NewLengthRatio creates the detector. A non-positive maxRatio falls back to
// the default.
func NewLengthRatio(maxRatio float64) *LengthRatio {
	if maxRatio <= 0 {
		maxRatio = LengthRatioMaxDefault
	}
	return &LengthRatio{maxRatio: maxRatio}
}

func (d *LengthRatio) Name() string {
	return SignalLengthRatio
}

// Analyze flags rows where ratio > maxRatio or ratio < 1/maxRatio.
// A zero-length response always flags, with a null ratio in the evidence.
func (d *LengthRatio) Analyze(_ context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	findings := make([]Finding, 0)
	for _, row := range rows {
		if len(row.Chosen) == 0 || len(row.Rejected) == 0 {
			slog.Warn("empty response in row", "row", row.RowID)
			findings = append(findings, Finding{
				RowID:    row.RowID,
				Flagged:  true,
				Evidence: map[string]any{"ratio": nil},
			})
			continue
		}

		ratio := float64(len(row.Chosen)) / float64(len(row.Rejected))
		if ratio > d.maxRatio || ratio < 1/d.maxRatio {
			findings = append(findings, Finding{
				RowID:    row.RowID,
				Flagged:  true,
				Evidence: map[string]any{"ratio": ratio},
			})
		}
	}
	return findings, nil
}
