package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.InDelta(t, -1.0, Cosine(a, []float32{-1, 0, 0}), 1e-9)

	// symmetric
	c := []float32{0.3, 0.7, 0.2}
	assert.Equal(t, Cosine(a, c), Cosine(c, a))

	// zero vector
	assert.Equal(t, 0.0, Cosine(a, []float32{0, 0, 0}))
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	v1, err := c.EmbedBatch(ctx, []string{"hello", "world", "hello"})
	require.NoError(t, err)
	require.Len(t, v1, 3)
	assert.Len(t, v1[0], mockDimensions)

	// identical text, identical vector
	assert.Equal(t, v1[0], v1[2])
	assert.InDelta(t, 1.0, Cosine(v1[0], v1[2]), 1e-6)
	assert.NotEqual(t, v1[0], v1[1])

	// unit length
	assert.InDelta(t, 1.0, Cosine(v1[0], v1[0]), 1e-6)
}

func TestMockClient_EmptyInput(t *testing.T) {
	c := NewMockClient()

	_, err := c.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)

	_, err = c.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.Error(t, err)
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fp := Fingerprint("test-model", []string{"r1", "r2", "r3"})

	cp, err := NewCheckpoint(dir, fp)
	require.NoError(t, err)

	// nothing saved yet
	done, vectors := cp.Load(fp)
	assert.Equal(t, 0, done)
	assert.Nil(t, vectors)

	saved := [][]float32{{1, 0}, {0, 1}}
	require.NoError(t, cp.Save(fp, saved))

	done, vectors = cp.Load(fp)
	assert.Equal(t, 2, done)
	assert.Equal(t, saved, vectors)

	// different fingerprint invalidates the checkpoint
	other := Fingerprint("test-model", []string{"r1", "r2"})
	done, vectors = cp.Load(other)
	assert.Equal(t, 0, done)
	assert.Nil(t, vectors)

	require.NoError(t, cp.Clear())
	done, _ = cp.Load(fp)
	assert.Equal(t, 0, done)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("m", []string{"a", "b"})
	assert.Equal(t, a, Fingerprint("m", []string{"a", "b"}))
	assert.NotEqual(t, a, Fingerprint("m", []string{"b", "a"}))
	assert.NotEqual(t, a, Fingerprint("other", []string{"a", "b"}))
}
