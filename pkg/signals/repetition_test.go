package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefaudit/prefaudit/pkg/models"
)

func TestRepetition_Flagged(t *testing.T) {
	d := NewRepetition(3)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "the answer is yes yes yes definitely", "a normal response"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "chosen", findings[0].Evidence["field"])
	assert.Equal(t, []string{"yes"}, findings[0].Evidence["matched_words"])
}

func TestRepetition_BothFields(t *testing.T) {
	d := NewRepetition(3)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "go go go now", "stop stop stop stop it"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "chosen", findings[0].Evidence["field"])
	assert.Equal(t, "rejected", findings[1].Evidence["field"])
}

func TestRepetition_CaseInsensitive(t *testing.T) {
	d := NewRepetition(3)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "No NO no way", "fine"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"no"}, findings[0].Evidence["matched_words"])
}

func TestRepetition_TwoRepeatsNotEnough(t *testing.T) {
	d := NewRepetition(3)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "well well that is fine", "ok ok sure"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestRepetition_NonAdjacentNotCounted(t *testing.T) {
	d := NewRepetition(3)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "the cat and the dog and the bird", "fine"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestRepetition_Defaults(t *testing.T) {
	// below-2 values are meaningless and take the default floor
	assert.Equal(t, RepetitionMinDefault, NewRepetition(0).minRepeats)
	assert.Equal(t, RepetitionMinDefault, NewRepetition(1).minRepeats)
	assert.Equal(t, 2, NewRepetition(2).minRepeats)
}

func TestRepeatedWords_Distinct(t *testing.T) {
	d := NewRepetition(3)
	words := d.repeatedWords("no no no, maybe maybe maybe, no no no")
	assert.Equal(t, []string{"no", "maybe"}, words)
}
