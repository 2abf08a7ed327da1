package data

import (
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
)

const (
	insertDetectionSQL = `INSERT INTO detections (pair_id, signal_type, severity, metadata, detected_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectDetectionsForPairSQL = `SELECT detection_id, pair_id, signal_type, severity, metadata, detected_at
		FROM detections
		WHERE pair_id = ?
		ORDER BY severity DESC, detection_id
	`

	selectDetectionsBySignalSQL = `SELECT detection_id, pair_id, signal_type, severity, metadata, detected_at
		FROM detections
		WHERE signal_type = ? AND severity >= ?
		ORDER BY severity DESC, detection_id
	`

	selectSevereDetectionsSQL = `SELECT d.detection_id, d.pair_id, d.signal_type, d.severity, d.metadata, d.detected_at,
			rp.chosen, rp.rejected
		FROM detections d
		JOIN response_pairs rp ON d.pair_id = rp.pair_id
		WHERE d.severity >= ?
		ORDER BY d.severity DESC, d.detection_id
	`
)

// Detection is a persisted quality signal hit against one response pair.
type Detection struct {
	DetectionID int64   `json:"detection_id" yaml:"detection_id"`
	PairID      string  `json:"pair_id" yaml:"pair_id"`
	SignalType  string  `json:"signal_type" yaml:"signal_type"`
	Severity    float64 `json:"severity" yaml:"severity"`
	Metadata    *string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	DetectedAt  string  `json:"detected_at" yaml:"detected_at"`
}

// SevereDetection is a detection joined with its pair's text content.
type SevereDetection struct {
	Detection `yaml:",inline"`
	Chosen    string `json:"chosen" yaml:"chosen"`
	Rejected  string `json:"rejected" yaml:"rejected"`
}

// InsertDetection inserts a detection and returns its assigned id.
//
// Severity is validated against [0.0, 1.0] before anything is written
// (ErrSeverityRange). A pair_id that does not resolve to an existing
// response pair fails with ErrUnknownPair and writes nothing.
func (s *Store) InsertDetection(pairID, signalType string, severity float64, metadata map[string]any) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	if pairID == "" || signalType == "" {
		return 0, errors.New("pairID and signalType are required")
	}
	if severity < 0.0 || severity > 1.0 {
		return 0, errors.Wrapf(ErrSeverityRange, "severity must be between 0.0 and 1.0, got %f", severity)
	}

	var metadataJSON *string
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return 0, errors.Wrap(err, "failed to marshal detection metadata")
		}
		v := string(b)
		metadataJSON = &v
	}

	var id int64
	var err error
	if s.dialect == dialectPostgres {
		err = s.db.QueryRow(s.q(insertDetectionSQL+" RETURNING detection_id"),
			pairID, signalType, severity, metadataJSON, now()).Scan(&id)
	} else {
		var res sql.Result
		res, err = s.db.Exec(insertDetectionSQL, pairID, signalType, severity, metadataJSON, now())
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, errors.Wrapf(s.translateErr(err), "failed to insert detection: %s for %s", signalType, pairID)
	}

	slog.Debug("inserted detection", "id", id, "signal", signalType, "pair", pairID)
	return id, nil
}

// GetDetectionsForPair returns all detections for a pair, highest severity
// first, insertion order within equal severity.
func (s *Store) GetDetectionsForPair(pairID string) ([]*Detection, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.queryDetections(s.q(selectDetectionsForPairSQL), pairID)
}

// GetDetectionsBySignal returns all detections for a signal type at or above
// the given severity, highest severity first.
func (s *Store) GetDetectionsBySignal(signalType string, minSeverity float64) ([]*Detection, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.queryDetections(s.q(selectDetectionsBySignalSQL), signalType, minSeverity)
}

// GetSevereDetections returns all detections at or above the given severity,
// joined with their pair's chosen/rejected text.
func (s *Store) GetSevereDetections(minSeverity float64) ([]*SevereDetection, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query(s.q(selectSevereDetectionsSQL), minSeverity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query severe detections")
	}
	defer rows.Close()

	list := make([]*SevereDetection, 0)
	for rows.Next() {
		var d SevereDetection
		err := rows.Scan(&d.DetectionID, &d.PairID, &d.SignalType, &d.Severity,
			&d.Metadata, &d.DetectedAt, &d.Chosen, &d.Rejected)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan severe detection row")
		}
		list = append(list, &d)
	}

	return list, errors.Wrap(rows.Err(), "failed to iterate severe detections")
}

func (s *Store) queryDetections(query string, args ...any) ([]*Detection, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query detections")
	}
	defer rows.Close()

	list := make([]*Detection, 0)
	for rows.Next() {
		var d Detection
		err := rows.Scan(&d.DetectionID, &d.PairID, &d.SignalType, &d.Severity, &d.Metadata, &d.DetectedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan detection row")
		}
		list = append(list, &d)
	}

	return list, errors.Wrap(rows.Err(), "failed to iterate detections")
}
