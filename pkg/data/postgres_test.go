package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration test for the postgres dialect. Requires Docker; skipped with -short.
func setupPostgresStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("prefaudit"),
		tcpostgres.WithUsername("prefaudit"),
		tcpostgres.WithPassword("prefaudit"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := OpenPostgres(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_RoundTrip(t *testing.T) {
	s := setupPostgresStore(t)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	// schema init is idempotent on postgres too
	require.NoError(t, s.init())

	require.NoError(t, s.InsertPair("p1", "chosen", "rejected", "test"))
	assert.ErrorIs(t, s.InsertPair("p1", "chosen", "rejected", "test"), ErrDuplicatePair)

	id, err := s.InsertDetection("p1", "refusal_bias", 1.0, map[string]any{"reason": "preferred a refusal"})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = s.InsertDetection("ghost", "refusal_bias", 1.0, nil)
	assert.ErrorIs(t, err, ErrUnknownPair)

	_, err = s.InsertDetection("p1", "refusal_bias", 1.5, nil)
	assert.ErrorIs(t, err, ErrSeverityRange)

	list, err := s.GetDetectionsForPair("p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].DetectionID)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPairs)
	assert.Equal(t, 1, stats.TotalDetections)
	assert.Equal(t, 1, stats.Severity.Critical)

	require.NoError(t, s.Reset())
	count, err := s.CountPairs()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
