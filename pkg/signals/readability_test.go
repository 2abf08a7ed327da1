package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefaudit/prefaudit/pkg/models"
)

// fixed scorer keyed by text keeps the test independent of the default
// grade implementation
func scorerFor(grades map[string]float64) func(string) float64 {
	return func(text string) float64 { return grades[text] }
}

func TestReadability_Flagged(t *testing.T) {
	d := NewReadability(5.0, scorerFor(map[string]float64{
		"simple": 3.0,
		"dense":  12.0,
	}))

	rows := []models.PreferenceRow{row(t, "r1", "p", "simple", "dense")}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "r1", f.RowID)
	assert.InDelta(t, 3.0, f.Evidence["chosen_grade"].(float64), 1e-9)
	assert.InDelta(t, 12.0, f.Evidence["rejected_grade"].(float64), 1e-9)

	// diff 9.0 with maxDiff 5.0 normalizes to 0.9
	require.NotNil(t, f.Score)
	assert.InDelta(t, 0.9, *f.Score, 1e-9)
}

func TestReadability_BelowThreshold(t *testing.T) {
	d := NewReadability(5.0, scorerFor(map[string]float64{
		"a": 4.0,
		"b": 8.0,
	}))

	rows := []models.PreferenceRow{row(t, "r1", "p", "a", "b")}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReadability_ScoreSaturates(t *testing.T) {
	d := NewReadability(5.0, scorerFor(map[string]float64{
		"a": 0.0,
		"b": 50.0,
	}))

	rows := []models.PreferenceRow{row(t, "r1", "p", "a", "b")}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.InDelta(t, 1.0, *findings[0].Score, 1e-9)
}

func TestReadability_Defaults(t *testing.T) {
	d := NewReadability(0, nil)
	assert.InDelta(t, ReadabilityMaxDiffDefault, d.maxDiff, 1e-9)
	assert.NotNil(t, d.score)
	assert.Equal(t, SignalReadability, d.Name())
}
