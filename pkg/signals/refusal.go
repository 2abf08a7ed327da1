package signals

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prefaudit/prefaudit/pkg/models"
)

var refusalPhrases = []string{
	"i can't help",
	"i cannot help",
	"i'm not able to",
	"i am not able to",
	"i won't be able to",
	"i'm unable to",
	"i cannot provide",
	"i will not provide",
	"i will not help",
	"i must decline",
	"i cannot assist",
	"i will not assist",
}

// RefusalBias flags rows where the labeler preferred a refusal over a
// substantive answer.
type RefusalBias struct{}

func NewRefusalBias() *RefusalBias {
	return &RefusalBias{}
}

func (d *RefusalBias) Name() string {
	return SignalRefusalBias
}

// Analyze flags a row iff chosen is a refusal and rejected is not.
func (d *RefusalBias) Analyze(_ context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	findings := make([]Finding, 0)
	for _, row := range rows {
		if isRefusal(row.Chosen) && !isRefusal(row.Rejected) {
			findings = append(findings, Finding{
				RowID:   row.RowID,
				Flagged: true,
				Evidence: map[string]any{
					"reason": "preferred response is a refusal while the rejected one is not",
				},
			})
		}
	}
	return findings, nil
}

func isRefusal(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
