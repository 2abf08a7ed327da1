package data

import (
	"github.com/pkg/errors"
)

const (
	countBySignalSQL = `SELECT signal_type, COUNT(*) as count
		FROM detections
		GROUP BY signal_type
		ORDER BY count DESC, signal_type
	`

	signalStatsSQL = `SELECT signal_type, COUNT(*) as count, AVG(severity) as avg_severity
		FROM detections
		GROUP BY signal_type
	`

	severityHistogramSQL = `SELECT
			COUNT(CASE WHEN severity >= 0.9 THEN 1 END) as critical,
			COUNT(CASE WHEN severity >= 0.7 AND severity < 0.9 THEN 1 END) as high,
			COUNT(CASE WHEN severity >= 0.5 AND severity < 0.7 THEN 1 END) as medium,
			COUNT(CASE WHEN severity < 0.5 THEN 1 END) as low
		FROM detections
	`
)

// SignalStats summarizes one signal type's detections.
type SignalStats struct {
	Count       int     `json:"count" yaml:"count"`
	AvgSeverity float64 `json:"avg_severity" yaml:"avg_severity"`
}

// SeverityHistogram buckets detections by the severity classifier boundaries.
type SeverityHistogram struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

// Stats is the store-wide detection summary.
type Stats struct {
	TotalPairs      int                     `json:"total_pairs" yaml:"total_pairs"`
	TotalDetections int                     `json:"total_detections" yaml:"total_detections"`
	BySignal        map[string]*SignalStats `json:"by_signal" yaml:"by_signal"`
	Severity        SeverityHistogram       `json:"severity_distribution" yaml:"severity_distribution"`
}

// CountDetectionsBySignal returns detection counts grouped by signal type.
func (s *Store) CountDetectionsBySignal() (map[string]int, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query(countBySignalSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count detections by signal")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var signal string
		var count int
		if err := rows.Scan(&signal, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan signal count row")
		}
		counts[signal] = count
	}

	return counts, errors.Wrap(rows.Err(), "failed to iterate signal counts")
}

// GetStats returns the store-wide detection summary: totals, per-signal count
// and mean severity, and the four-bucket severity histogram.
func (s *Store) GetStats() (*Stats, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	stats := &Stats{BySignal: make(map[string]*SignalStats)}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM response_pairs").Scan(&stats.TotalPairs); err != nil {
		return nil, errors.Wrap(err, "failed to count pairs")
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM detections").Scan(&stats.TotalDetections); err != nil {
		return nil, errors.Wrap(err, "failed to count detections")
	}

	rows, err := s.db.Query(signalStatsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query signal stats")
	}
	defer rows.Close()

	for rows.Next() {
		var signal string
		st := &SignalStats{}
		if err := rows.Scan(&signal, &st.Count, &st.AvgSeverity); err != nil {
			return nil, errors.Wrap(err, "failed to scan signal stats row")
		}
		stats.BySignal[signal] = st
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate signal stats")
	}

	err = s.db.QueryRow(severityHistogramSQL).Scan(
		&stats.Severity.Critical, &stats.Severity.High, &stats.Severity.Medium, &stats.Severity.Low)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query severity histogram")
	}

	return stats, nil
}
