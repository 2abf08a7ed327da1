package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

const (
	insertPairSQL = `INSERT INTO response_pairs (pair_id, chosen, rejected, source_dataset, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectPairSQL = `SELECT pair_id, chosen, rejected, source_dataset, created_at
		FROM response_pairs
		WHERE pair_id = ?
	`

	selectPairIDsSQL = `SELECT pair_id FROM response_pairs ORDER BY created_at, pair_id`
)

// Pair is a persisted response pair.
type Pair struct {
	PairID        string `json:"pair_id" yaml:"pair_id"`
	Chosen        string `json:"chosen" yaml:"chosen"`
	Rejected      string `json:"rejected" yaml:"rejected"`
	SourceDataset string `json:"source_dataset" yaml:"source_dataset"`
	CreatedAt     string `json:"created_at" yaml:"created_at"`
}

// InsertPair inserts a response pair. Returns ErrDuplicatePair when the
// pair_id already exists.
func (s *Store) InsertPair(pairID, chosen, rejected, sourceDataset string) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	if pairID == "" || chosen == "" || rejected == "" || sourceDataset == "" {
		return errors.New("pairID, chosen, rejected, and sourceDataset are all required")
	}

	_, err := s.db.Exec(s.q(insertPairSQL), pairID, chosen, rejected, sourceDataset, now())
	if err != nil {
		return errors.Wrapf(s.translateErr(err), "failed to insert pair: %s", pairID)
	}
	return nil
}

// GetPair returns the pair for the given id, or nil when not found.
func (s *Store) GetPair(pairID string) (*Pair, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	row := s.db.QueryRow(s.q(selectPairSQL), pairID)

	var p Pair
	err := row.Scan(&p.PairID, &p.Chosen, &p.Rejected, &p.SourceDataset, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to scan pair row")
	}

	return &p, nil
}

// ListPairIDs returns all pair ids in insertion order.
func (s *Store) ListPairIDs() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query(selectPairIDsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query pair ids")
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan pair id")
		}
		ids = append(ids, id)
	}

	return ids, errors.Wrap(rows.Err(), "failed to iterate pair ids")
}

// CountPairs returns the total number of response pairs.
func (s *Store) CountPairs() (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM response_pairs").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count pairs")
	}
	return count, nil
}
