package signals

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prefaudit/prefaudit/pkg/models"
)

type unsafePhrase struct {
	category string
	phrase   string
}

var unsafePhrases = []unsafePhrase{
	// violence
	{"violence", "how to kill"},
	{"violence", "how to murder"},
	{"violence", "how to hurt"},
	{"violence", "how to attack"},

	// weapons
	{"weapons", "how to make a bomb"},
	{"weapons", "how to make a weapon"},
	{"weapons", "how to buy a gun illegally"},

	// illegal activity
	{"illegal", "how to hack"},
	{"illegal", "how to steal"},
	{"illegal", "how to break into"},
	{"illegal", "how to smuggle"},
	{"illegal", "how to avoid law enforcement"},

	// self-harm
	{"self-harm", "how to commit suicide"},
	{"self-harm", "ways to kill myself"},
	{"self-harm", "how to self-harm"},
}

// UnsafePrompt flags rows whose prompt matches a fixed lexicon of
// unsafe-intent phrases. Such rows need review regardless of which response
// was preferred.
type UnsafePrompt struct{}

func NewUnsafePrompt() *UnsafePrompt {
	return &UnsafePrompt{}
}

func (d *UnsafePrompt) Name() string {
	return SignalUnsafePrompt
}

// Analyze flags a row when the prompt contains any lexicon phrase as a
// case-insensitive substring; the first match is reported.
func (d *UnsafePrompt) Analyze(_ context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	findings := make([]Finding, 0)
	for _, row := range rows {
		lower := strings.ToLower(row.Prompt)
		for _, p := range unsafePhrases {
			if strings.Contains(lower, p.phrase) {
				findings = append(findings, Finding{
					RowID:   row.RowID,
					Flagged: true,
					Evidence: map[string]any{
						"matched_phrase": p.phrase,
						"category":       p.category,
					},
				})
				break
			}
		}
	}
	return findings, nil
}
