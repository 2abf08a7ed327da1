// Package analyze runs quality detectors over a preference dataset and
// persists their findings as detections.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/prefaudit/prefaudit/pkg/data"
	"github.com/prefaudit/prefaudit/pkg/models"
	"github.com/prefaudit/prefaudit/pkg/signals"
)

// SignalOutcome summarizes one detector's pass over the dataset.
type SignalOutcome struct {
	Findings int    `json:"findings" yaml:"findings"`
	Inserted int    `json:"inserted" yaml:"inserted"`
	Failed   int    `json:"failed" yaml:"failed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result summarizes an analysis run.
type Result struct {
	Rows     int                       `json:"rows" yaml:"rows"`
	Inserted int                       `json:"inserted" yaml:"inserted"`
	Failed   int                       `json:"failed" yaml:"failed"`
	Signals  map[string]*SignalOutcome `json:"signals" yaml:"signals"`
}

// Analyzer runs a fixed set of detectors and writes their findings
// through a single store.
type Analyzer struct {
	store     *data.Store
	detectors []signals.Detector
}

// New creates an analyzer. At least one detector is required.
func New(store *data.Store, detectors []signals.Detector) (*Analyzer, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if len(detectors) == 0 {
		return nil, errors.New("at least one detector is required")
	}
	return &Analyzer{store: store, detectors: detectors}, nil
}

// Run executes every detector over the rows and persists the flagged
// findings. Detectors run concurrently; one detector failing does not stop
// the others, its error is recorded in the result instead. Findings that
// reference a pair missing from the store are counted as failures and
// skipped, the run continues.
func (a *Analyzer) Run(ctx context.Context, rows []models.PreferenceRow) (*Result, error) {
	if a == nil || a.store == nil {
		return nil, errors.New("analyzer not initialized")
	}

	res := &Result{
		Rows:    len(rows),
		Signals: make(map[string]*SignalOutcome, len(a.detectors)),
	}
	for _, d := range a.detectors {
		res.Signals[d.Name()] = &SignalOutcome{}
	}

	findings := make([][]signals.Finding, len(a.detectors))

	var wg sync.WaitGroup
	for i, d := range a.detectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := d.Analyze(ctx, rows)
			if err != nil {
				slog.Warn("detector failed", "signal", d.Name(), "error", err)
				res.Signals[d.Name()].Error = err.Error()
				return
			}
			findings[i] = list
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// persist in detector order so detection ids are reproducible
	for i, d := range a.detectors {
		outcome := res.Signals[d.Name()]
		outcome.Findings = len(findings[i])

		for _, f := range findings[i] {
			if err := a.persist(d.Name(), f, outcome); err != nil {
				return nil, err
			}
		}

		res.Inserted += outcome.Inserted
		res.Failed += outcome.Failed
	}

	slog.Info("analysis complete", "rows", res.Rows, "inserted", res.Inserted, "failed", res.Failed)
	return res, nil
}

// persist writes one finding. A two-row finding is stored as a detection on
// each row, each carrying the partner's id in its metadata.
func (a *Analyzer) persist(signalType string, f signals.Finding, outcome *SignalOutcome) error {
	targets := []struct {
		pairID  string
		related string
	}{
		{pairID: f.RowID, related: f.RelatedID},
	}
	if f.RelatedID != "" {
		targets = append(targets, struct {
			pairID  string
			related string
		}{pairID: f.RelatedID, related: f.RowID})
	}

	for _, t := range targets {
		meta := make(map[string]any, len(f.Evidence)+1)
		for k, v := range f.Evidence {
			meta[k] = v
		}
		if t.related != "" {
			meta["related_pair_id"] = t.related
		}

		if _, err := a.store.InsertDetection(t.pairID, signalType, severityOf(f), meta); err != nil {
			if errors.Is(err, data.ErrUnknownPair) || errors.Is(err, data.ErrSeverityRange) {
				slog.Warn("skipping detection", "signal", signalType, "pair", t.pairID, "error", err)
				outcome.Failed++
				continue
			}
			return fmt.Errorf("persisting %s detection for %s: %w", signalType, t.pairID, err)
		}
		outcome.Inserted++
	}

	return nil
}

// severityOf maps a finding onto the stored severity scale. Boolean
// detectors carry no score and always persist at full severity.
func severityOf(f signals.Finding) float64 {
	if f.Score == nil {
		return 1.0
	}
	return *f.Score
}
