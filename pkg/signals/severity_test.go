package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		severity float64
		want     Level
	}{
		{0.90, LevelCritical},
		{1.0, LevelCritical},
		{0.899999, LevelHigh},
		{0.70, LevelHigh},
		{0.69999, LevelMedium},
		{0.50, LevelMedium},
		{0.49999, LevelLow},
		{0.0, LevelLow},
	}

	for _, tc := range tests {
		got, err := Classify(tc.severity)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "severity %f", tc.severity)
	}
}

func TestClassify_OutOfRange(t *testing.T) {
	for _, severity := range []float64{-0.01, 1.01, 100} {
		_, err := Classify(severity)
		assert.Error(t, err, "severity %f", severity)
	}
}
