package signals

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefaudit/prefaudit/pkg/embed"
	"github.com/prefaudit/prefaudit/pkg/models"
)

// countingEncoder wraps the mock and records batch calls.
type countingEncoder struct {
	inner   embed.Client
	calls   atomic.Int32
	batched []int
}

func (c *countingEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.batched = append(c.batched, len(texts))
	return c.inner.EmbedBatch(ctx, texts)
}

func TestSemanticDuplicate_IdenticalRows(t *testing.T) {
	d, err := NewSemanticDuplicate(embed.NewMockClient(), DuplicateConfig{Threshold: 0.95})
	require.NoError(t, err)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "identical response", "x"),
		row(t, "r2", "p", "identical response", "y"),
		row(t, "r3", "p", "something else entirely", "z"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "r1", f.RowID)
	assert.Equal(t, "r2", f.RelatedID)
	require.NotNil(t, f.Score)
	assert.InDelta(t, 1.0, *f.Score, 1e-6)
	assert.InDelta(t, 1.0, f.Evidence["similarity"].(float64), 1e-6)
}

func TestSemanticDuplicate_NoSelfComparison(t *testing.T) {
	d, err := NewSemanticDuplicate(embed.NewMockClient(), DuplicateConfig{})
	require.NoError(t, err)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "only one row", "x"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestSemanticDuplicate_EachPairOnce(t *testing.T) {
	d, err := NewSemanticDuplicate(embed.NewMockClient(), DuplicateConfig{})
	require.NoError(t, err)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "same text", "x"),
		row(t, "r2", "p", "same text", "y"),
		row(t, "r3", "p", "same text", "z"),
	}

	findings, err := d.Analyze(context.Background(), rows)
	require.NoError(t, err)

	// 3 identical rows: exactly C(3,2) = 3 unordered pairs, no (j, i) echoes
	require.Len(t, findings, 3)
	seen := make(map[string]bool)
	for _, f := range findings {
		assert.Less(t, f.RowID, f.RelatedID)
		seen[f.RowID+"/"+f.RelatedID] = true
	}
	assert.Len(t, seen, 3)
}

func TestSemanticDuplicate_BatchesEncoderCalls(t *testing.T) {
	enc := &countingEncoder{inner: embed.NewMockClient()}
	d, err := NewSemanticDuplicate(enc, DuplicateConfig{BatchSize: 2})
	require.NoError(t, err)

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "a1", "x"),
		row(t, "r2", "p", "b2", "x"),
		row(t, "r3", "p", "c3", "x"),
		row(t, "r4", "p", "d4", "x"),
		row(t, "r5", "p", "e5", "x"),
	}

	_, err = d.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, int32(3), enc.calls.Load())
	assert.Equal(t, []int{2, 2, 1}, enc.batched)
}

func TestSemanticDuplicate_CheckpointResume(t *testing.T) {
	cacheDir := t.TempDir()

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "first", "x"),
		row(t, "r2", "p", "second", "x"),
		row(t, "r3", "p", "third", "x"),
		row(t, "r4", "p", "fourth", "x"),
	}

	// first run saves a checkpoint after every batch
	cfg := DuplicateConfig{
		BatchSize:          2,
		CacheDir:           cacheDir,
		CheckpointInterval: 2,
		Model:              "mock",
	}

	enc1 := &countingEncoder{inner: embed.NewMockClient()}
	d1, err := NewSemanticDuplicate(enc1, cfg)
	require.NoError(t, err)

	// simulate an interruption by pre-seeding the checkpoint with the
	// first chunk's vectors
	ids := []string{"r1", "r2", "r3", "r4"}
	fp := embed.Fingerprint("mock", ids)
	cp, err := embed.NewCheckpoint(cacheDir, fp)
	require.NoError(t, err)

	firstChunk, err := embed.NewMockClient().EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.NoError(t, cp.Save(fp, firstChunk))

	findings, err := d1.Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, findings)

	// only the remaining chunk was encoded
	assert.Equal(t, int32(1), enc1.calls.Load())
	assert.Equal(t, []int{2}, enc1.batched)

	// checkpoint cleared after completion
	done, _ := cp.Load(fp)
	assert.Equal(t, 0, done)
}

func TestSemanticDuplicate_Cancelled(t *testing.T) {
	d, err := NewSemanticDuplicate(embed.NewMockClient(), DuplicateConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []models.PreferenceRow{
		row(t, "r1", "p", "a", "x"),
		row(t, "r2", "p", "b", "x"),
	}

	_, err = d.Analyze(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSemanticDuplicate_RequiresEncoder(t *testing.T) {
	_, err := NewSemanticDuplicate(nil, DuplicateConfig{})
	assert.Error(t, err)
}
