package data

import (
	"database/sql"
	"embed"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	// DataFileName is the default Sqlite database file name.
	DataFileName = "prefaudit.db"

	// CurrentSchemaVersion is the schema revision this build expects.
	CurrentSchemaVersion = 1

	// Fixed-width RFC3339 so stored timestamps sort lexicographically.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	//go:embed sql/*
	f embed.FS

	// ErrNotInitialized indicates the store was used before Open.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrDuplicatePair indicates an insert for a pair_id that already exists.
	ErrDuplicatePair = errors.New("pair already exists")

	// ErrUnknownPair indicates a detection referencing a pair_id that does not exist.
	ErrUnknownPair = errors.New("unknown pair")

	// ErrSeverityRange indicates a severity outside the [0.0, 1.0] interval.
	ErrSeverityRange = errors.New("severity out of range")
)

type dialect int

const (
	dialectSqlite dialect = iota
	dialectPostgres
)

// Store owns the persisted audit state: response pairs, detections, and the
// schema version record. All mutating operations run in a single transaction.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open opens (creating if needed) a Sqlite-backed store at the given file path
// and applies the schema. Safe to call on an existing database file.
func Open(dbFilePath string) (*Store, error) {
	if dbFilePath == "" {
		return nil, errors.New("dbFilePath not specified")
	}

	// pragmas go in the DSN so every connection the pool opens gets them,
	// not just the one that happened to run an Exec
	dsn := dbFilePath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", dbFilePath)
	}

	// Sqlite allows one writer at a time; funnel all writes through a
	// single connection so concurrent transactions serialize instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dialect: dialectSqlite}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Postgres-backed store and applies the schema.
// Used for shared deployments where the audit db outlives one machine.
func OpenPostgres(connStr string) (*Store, error) {
	if connStr == "" {
		return nil, errors.New("connStr not specified")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres database")
	}

	s := &Store{db: db, dialect: dialectPostgres}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// init applies the schema and records the current schema version.
// Idempotent: re-running creates nothing new and never duplicates the
// version row.
func (s *Store) init() error {
	ddlFile := "sql/ddl.sql"
	if s.dialect == dialectPostgres {
		ddlFile = "sql/ddl_postgres.sql"
	}

	b, err := f.ReadFile(ddlFile)
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin schema transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(string(b)); err != nil {
		return errors.Wrap(err, "failed to create database schema")
	}

	var found int
	err = tx.QueryRow(s.q("SELECT COUNT(*) FROM schema_version WHERE version = ?"), CurrentSchemaVersion).Scan(&found)
	if err != nil {
		return errors.Wrap(err, "failed to query schema version")
	}

	if found == 0 {
		_, err = tx.Exec(s.q("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)"),
			CurrentSchemaVersion, now())
		if err != nil {
			return errors.Wrap(err, "failed to record schema version")
		}
		slog.Debug("schema created", "version", CurrentSchemaVersion)
	} else {
		slog.Debug("schema already applied", "version", CurrentSchemaVersion)
	}

	return errors.Wrap(tx.Commit(), "failed to commit schema transaction")
}

// SchemaVersion returns the highest applied schema version, or 0 when the
// store has no version record.
func (s *Store) SchemaVersion() (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}

	var v sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, errors.Wrap(err, "failed to query schema version")
	}
	return int(v.Int64), nil
}

// Reset deletes all detections, then all pairs. Irreversible.
func (s *Store) Reset() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin reset transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// children before parents
	if _, err := tx.Exec("DELETE FROM detections"); err != nil {
		return errors.Wrap(err, "failed to delete detections")
	}
	if _, err := tx.Exec("DELETE FROM response_pairs"); err != nil {
		return errors.Wrap(err, "failed to delete response pairs")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit reset transaction")
	}

	slog.Warn("cleared all data from store")
	return nil
}

// Vacuum reclaims unused space after large deletions.
func (s *Store) Vacuum() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return errors.Wrap(err, "failed to vacuum database")
	}
	return nil
}

// q rewrites ? placeholders to $n for the postgres dialect.
func (s *Store) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// translateErr maps driver-specific constraint failures onto the store's
// sentinel errors so callers can use errors.Is.
func (s *Store) translateErr(err error) error {
	if err == nil {
		return nil
	}

	if s.dialect == dialectPostgres {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrDuplicatePair
			case "23503": // foreign_key_violation
				return ErrUnknownPair
			case "23514": // check_violation
				return ErrSeverityRange
			}
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrDuplicatePair
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrUnknownPair
	case strings.Contains(msg, "CHECK constraint failed"):
		return ErrSeverityRange
	}
	return err
}

func now() string {
	return time.Now().UTC().Format(timeFormat)
}
