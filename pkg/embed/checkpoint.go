package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Checkpoint persists partially completed embedding runs so an interrupted
// pass over a large dataset resumes from the last completed chunk instead of
// re-encoding everything.
type Checkpoint struct {
	path string
}

type checkpointState struct {
	Fingerprint string      `json:"fingerprint"`
	Done        int         `json:"done"`
	Vectors     [][]float32 `json:"vectors"`
}

// Fingerprint identifies an embedding run: same model and same ordered row
// ids produce the same fingerprint.
func Fingerprint(model string, ids []string) string {
	h := sha256.New()
	h.Write([]byte(model))
	for _, id := range ids {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NewCheckpoint creates a checkpoint file handle under cacheDir.
func NewCheckpoint(cacheDir, fingerprint string) (*Checkpoint, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cacheDir is required")
	}
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Checkpoint{
		path: filepath.Join(cacheDir, fmt.Sprintf("embeddings-%s.json", fingerprint)),
	}, nil
}

// Load returns the number of texts already encoded and their vectors.
// A missing or mismatched checkpoint yields (0, nil).
func (c *Checkpoint) Load(fingerprint string) (int, [][]float32) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return 0, nil
	}

	var st checkpointState
	if err := json.Unmarshal(b, &st); err != nil || st.Fingerprint != fingerprint {
		slog.Debug("ignoring stale embedding checkpoint", "path", c.path)
		return 0, nil
	}
	if st.Done != len(st.Vectors) {
		return 0, nil
	}

	slog.Debug("resuming from embedding checkpoint", "path", c.path, "done", st.Done)
	return st.Done, st.Vectors
}

// Save writes the current progress atomically (temp file + rename).
func (c *Checkpoint) Save(fingerprint string, vectors [][]float32) error {
	st := checkpointState{
		Fingerprint: fingerprint,
		Done:        len(vectors),
		Vectors:     vectors,
	}

	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("renaming checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file after a completed run.
func (c *Checkpoint) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}
