package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreferenceRow(t *testing.T) {
	r, err := NewPreferenceRow("hh-rlhf-train-0", "What is Go?", "A programming language.", "No idea.")
	require.NoError(t, err)
	assert.Equal(t, "hh-rlhf-train-0", r.RowID)
	assert.Equal(t, "What is Go?", r.Prompt)
}

func TestNewPreferenceRow_Invalid(t *testing.T) {
	tests := []struct {
		name                              string
		rowID, prompt, chosen, rejected   string
	}{
		{"empty row id", "", "p", "c", "r"},
		{"empty prompt", "id", "", "c", "r"},
		{"empty chosen", "id", "p", "", "r"},
		{"empty rejected", "id", "p", "c", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPreferenceRow(tc.rowID, tc.prompt, tc.chosen, tc.rejected)
			assert.Error(t, err)
		})
	}
}
