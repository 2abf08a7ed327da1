package models

import (
	"github.com/pkg/errors"
)

// PreferenceRow is a single labeled preference pair: a prompt, the response
// the labeler preferred, and the one they rejected. Rows are built once by a
// loader and treated as read-only from there on.
type PreferenceRow struct {
	RowID    string `json:"row_id"`
	Prompt   string `json:"prompt"`
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`
}

// NewPreferenceRow validates and constructs a PreferenceRow.
// Validation is fail-fast: the first empty field is an error.
func NewPreferenceRow(rowID, prompt, chosen, rejected string) (PreferenceRow, error) {
	switch {
	case rowID == "":
		return PreferenceRow{}, errors.New("row_id is empty")
	case prompt == "":
		return PreferenceRow{}, errors.Errorf("prompt is missing for row: %s", rowID)
	case chosen == "":
		return PreferenceRow{}, errors.Errorf("chosen is missing for row: %s", rowID)
	case rejected == "":
		return PreferenceRow{}, errors.Errorf("rejected is missing for row: %s", rowID)
	}

	return PreferenceRow{
		RowID:    rowID,
		Prompt:   prompt,
		Chosen:   chosen,
		Rejected: rejected,
	}, nil
}
