package embed

import (
	"context"
	"crypto/sha256"
	"fmt"
)

const mockDimensions = 384

// MockClient generates deterministic unit-length embeddings from the input
// text hash. Identical texts get identical vectors, so it exercises the
// duplicate-detection path without a network call.
type MockClient struct {
	dimensions int
}

var _ Client = (*MockClient)(nil)

// NewMockClient returns a mock encoder with a 384-dimension output,
// matching the MiniLM family.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: mockDimensions}
}

// EmbedBatch returns one deterministic vector per input text.
func (c *MockClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("text at index %d cannot be empty", i)
		}
		vectors[i] = c.vector(t)
	}
	return vectors, nil
}

func (c *MockClient) vector(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	v := make([]float32, c.dimensions)
	for i := range v {
		v[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}
	Normalize(v)
	return v
}
