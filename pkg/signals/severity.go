package signals

import (
	"github.com/pkg/errors"
)

// Level is an ordinal severity bucket.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
)

// Classify maps a severity in [0.0, 1.0] to its bucket:
// >= 0.90 critical, >= 0.70 high, >= 0.50 medium, else low.
// Input outside [0,1] is a contract violation, not clamped.
func Classify(severity float64) (Level, error) {
	if severity < 0.0 || severity > 1.0 {
		return "", errors.Errorf("severity must be between 0.0 and 1.0, got %f", severity)
	}

	switch {
	case severity >= 0.90:
		return LevelCritical, nil
	case severity >= 0.70:
		return LevelHigh, nil
	case severity >= 0.50:
		return LevelMedium, nil
	default:
		return LevelLow, nil
	}
}
