package signals

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prefaudit/prefaudit/pkg/embed"
	"github.com/prefaudit/prefaudit/pkg/models"
)

const (
	// SimilarityThresholdDefault is the cosine similarity above which two
	// chosen responses count as duplicates.
	SimilarityThresholdDefault = 0.95

	// EmbedBatchSizeDefault is the default number of texts per encoder call.
	EmbedBatchSizeDefault = 32

	// CheckpointIntervalDefault is the default number of rows between
	// checkpoint saves during the encoding pass.
	CheckpointIntervalDefault = 1000
)

// DuplicateConfig tunes the semantic duplicate detector.
type DuplicateConfig struct {
	// Threshold is the flagging bound on cosine similarity, in (0, 1].
	Threshold float64

	// BatchSize is the number of texts sent per encoder call.
	BatchSize int

	// Model names the embedding model; part of the checkpoint fingerprint.
	Model string

	// CacheDir enables resumable encoding checkpoints when non-empty.
	CacheDir string

	// CheckpointInterval is the number of rows between checkpoint saves.
	CheckpointInterval int
}

// SemanticDuplicate flags pairs of rows whose chosen responses embed to
// nearly identical vectors. The encoding pass is chunked and resumable; the
// O(n^2) similarity scan is partitioned across workers.
type SemanticDuplicate struct {
	encoder embed.Client
	cfg     DuplicateConfig
}

// NewSemanticDuplicate creates the detector. The encoder is required;
// zero config fields fall back to defaults.
func NewSemanticDuplicate(encoder embed.Client, cfg DuplicateConfig) (*SemanticDuplicate, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = SimilarityThresholdDefault
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = EmbedBatchSizeDefault
	}
	if cfg.CheckpointInterval < 1 {
		cfg.CheckpointInterval = CheckpointIntervalDefault
	}
	return &SemanticDuplicate{encoder: encoder, cfg: cfg}, nil
}

func (d *SemanticDuplicate) Name() string {
	return SignalSemanticDuplicate
}

// Analyze encodes every row's chosen response and flags each unordered row
// pair whose cosine similarity exceeds the threshold. A row is never
// compared against itself.
func (d *SemanticDuplicate) Analyze(ctx context.Context, rows []models.PreferenceRow) ([]Finding, error) {
	slog.Debug("analyzing rows", "signal", d.Name(), "rows", len(rows))

	if len(rows) < 2 {
		return []Finding{}, nil
	}

	vectors, err := d.encode(ctx, rows)
	if err != nil {
		return nil, err
	}

	findings, err := d.scan(ctx, rows, vectors)
	if err != nil {
		return nil, err
	}

	slog.Debug("duplicate scan complete", "pairs_flagged", len(findings))
	return findings, nil
}

// encode embeds chosen responses in batches, checkpointing progress so an
// interrupted run resumes from the last completed chunk.
func (d *SemanticDuplicate) encode(ctx context.Context, rows []models.PreferenceRow) ([][]float32, error) {
	texts := make([]string, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = row.Chosen
		ids[i] = row.RowID
	}

	var cp *embed.Checkpoint
	fingerprint := embed.Fingerprint(d.cfg.Model, ids)
	vectors := make([][]float32, 0, len(texts))

	if d.cfg.CacheDir != "" {
		var err error
		cp, err = embed.NewCheckpoint(d.cfg.CacheDir, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("opening embedding checkpoint: %w", err)
		}
		if done, saved := cp.Load(fingerprint); done > 0 && done <= len(texts) {
			vectors = append(vectors, saved...)
			slog.Info("resuming embedding pass", "done", done, "total", len(texts))
		}
	}

	lastSaved := len(vectors)
	for len(vectors) < len(texts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := len(vectors) + d.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := d.encoder.EmbedBatch(ctx, texts[len(vectors):end])
		if err != nil {
			return nil, fmt.Errorf("encoding rows %d..%d: %w", len(vectors), end, err)
		}
		vectors = append(vectors, batch...)

		if cp != nil && len(vectors)-lastSaved >= d.cfg.CheckpointInterval && len(vectors) < len(texts) {
			if err := cp.Save(fingerprint, vectors); err != nil {
				slog.Warn("failed to save embedding checkpoint", "error", err)
			} else {
				lastSaved = len(vectors)
			}
		}
	}

	if cp != nil {
		if err := cp.Clear(); err != nil {
			slog.Warn("failed to clear embedding checkpoint", "error", err)
		}
	}

	return vectors, nil
}

// scan walks the upper triangle of the comparison matrix, partitioned by
// primary row across workers. Memory stays O(n*d); only flagged pairs are
// materialized.
func (d *SemanticDuplicate) scan(ctx context.Context, rows []models.PreferenceRow, vectors [][]float32) ([]Finding, error) {
	var mu sync.Mutex
	perRow := make([][]Finding, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < len(rows)-1; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var found []Finding
			for j := i + 1; j < len(rows); j++ {
				sim := embed.Cosine(vectors[i], vectors[j])
				if sim > d.cfg.Threshold {
					found = append(found, Finding{
						RowID:     rows[i].RowID,
						RelatedID: rows[j].RowID,
						Flagged:   true,
						Score:     score(math.Min(1.0, sim)),
						Evidence:  map[string]any{"similarity": sim},
					})
				}
			}

			if len(found) > 0 {
				mu.Lock()
				perRow[i] = found
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// deterministic order regardless of worker scheduling
	findings := make([]Finding, 0)
	for _, chunk := range perRow {
		findings = append(findings, chunk...)
	}
	return findings, nil
}
