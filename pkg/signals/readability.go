package signals

import (
	"context"
	"log/slog"
	"math"

	"github.com/prefaudit/prefaudit/pkg/models"
	"github.com/prefaudit/prefaudit/pkg/readability"
)

// ReadabilityMaxDiffDefault is the default tolerated grade-level gap
// between the two responses.
const ReadabilityMaxDiffDefault = 5.0

// Readability flags rows whose responses sit at very different grade levels,
// which usually means the pair is not an apples-to-apples comparison.
type Readability struct {
	maxDiff float64
	score   readability.ScoreFunc
}

// NewReadability creates the detector with the given scorer collaborator.
func NewReadability(maxDiff float64, score readability.ScoreFunc) *Readability {
	if maxDiff <= 0 {
		maxDiff = ReadabilityMaxDiffDefault
	}
	if score == nil {
		score = readability.Grade
	}
	return &Readability{maxDiff: maxDiff, score: score}
}

func (d *Readability) Name() string {
	return SignalReadability
}

// Analyze flags rows where |chosen_grade - rejected_grade| > maxDiff.
// The score is the diff normalized so the flag threshold maps to 0.5 and
// twice the threshold saturates at 1.0.
func (d *Readability) Analyze(_ context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	findings := make([]Finding, 0)
	for _, row := range rows {
		chosenGrade := d.score(row.Chosen)
		rejectedGrade := d.score(row.Rejected)
		diff := math.Abs(chosenGrade - rejectedGrade)

		if diff > d.maxDiff {
			findings = append(findings, Finding{
				RowID:   row.RowID,
				Flagged: true,
				Score:   score(math.Min(1.0, diff/(2*d.maxDiff))),
				Evidence: map[string]any{
					"chosen_grade":   chosenGrade,
					"rejected_grade": rejectedGrade,
				},
			})
		}
	}
	return findings, nil
}
