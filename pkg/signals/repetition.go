package signals

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/prefaudit/prefaudit/pkg/models"
)

// RepetitionMinDefault is the default number of consecutive identical words
// that counts as degenerate repetition.
const RepetitionMinDefault = 3

var wordRegex = regexp.MustCompile(`\w+`)

// Repetition flags responses containing the same word repeated several times
// in a row, a common decoding-failure artifact.
type Repetition struct {
	minRepeats int
}

// NewRepetition creates the detector. A single occurrence is not a repeat,
// so any minRepeats below 2 falls back to the default.
func NewRepetition(minRepeats int) *Repetition {
	if minRepeats < 2 {
		minRepeats = RepetitionMinDefault
	}
	return &Repetition{minRepeats: minRepeats}
}

func (d *Repetition) Name() string {
	return SignalRepetition
}

// Analyze emits one finding per (row, field) with a repeated-word run.
// Matching is case-insensitive on word-boundary tokens; chosen and rejected
// are scanned independently.
func (d *Repetition) Analyze(_ context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	findings := make([]Finding, 0)
	for _, row := range rows {
		for _, f := range []struct{ field, text string }{
			{"chosen", row.Chosen},
			{"rejected", row.Rejected},
		} {
			field, text := f.field, f.text
			if text == "" {
				continue
			}
			if words := d.repeatedWords(text); len(words) > 0 {
				findings = append(findings, Finding{
					RowID:   row.RowID,
					Flagged: true,
					Evidence: map[string]any{
						"field":         field,
						"matched_words": words,
					},
				})
			}
		}
	}
	return findings, nil
}

// repeatedWords returns the distinct words that appear minRepeats or more
// times consecutively, in order of first occurrence.
func (d *Repetition) repeatedWords(text string) []string {
	tokens := wordRegex.FindAllString(strings.ToLower(text), -1)

	var words []string
	seen := make(map[string]bool)

	run := 1
	for i := 1; i <= len(tokens); i++ {
		if i < len(tokens) && tokens[i] == tokens[i-1] {
			run++
			continue
		}
		if run >= d.minRepeats && !seen[tokens[i-1]] {
			seen[tokens[i-1]] = true
			words = append(words, tokens[i-1])
		}
		run = 1
	}
	return words
}
