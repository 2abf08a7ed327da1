package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/prefaudit/prefaudit/pkg/analyze"
	"github.com/prefaudit/prefaudit/pkg/data"
	"github.com/prefaudit/prefaudit/pkg/embed"
	"github.com/prefaudit/prefaudit/pkg/signals"
)

const openAIKeyEnvVar = "OPENAI_API_KEY"

var (
	mockEmbedFlag = &cli.BoolFlag{
		Name:  "mock-embeddings",
		Usage: "Use deterministic local embeddings instead of the OpenAI API",
	}

	analyzeCmd = &cli.Command{
		Name:    "analyze",
		Aliases: []string{"a"},
		Usage:   "Run quality detectors over a dataset and persist the findings",
		UsageText: `prefaudit analyze --file train.jsonl.gz                 # full audit of a local file
   prefaudit analyze --file train.jsonl --limit 500        # audit a sample
   prefaudit analyze --file train.jsonl --mock-embeddings  # no API key needed`,
		Action: cmdAnalyze,
		Flags: []cli.Flag{
			fileFlag,
			urlFlag,
			sourceFlag,
			splitFlag,
			limitFlag,
			mockEmbedFlag,
		},
	}
)

func cmdAnalyze(c *cli.Context) error {
	cfg := getConfig(c)

	rows, skipped, _, err := loadRows(c)
	if err != nil {
		return err
	}
	if skipped > 0 {
		slog.Warn("some records could not be parsed", "skipped", skipped)
	}
	if len(rows) == 0 {
		return errors.New("no rows to analyze")
	}

	// make sure every row has a stored pair for its detections to reference
	for _, row := range rows {
		err := cfg.Store.InsertPair(row.RowID, row.Chosen, row.Rejected, c.String(sourceFlag.Name))
		if err != nil && !errors.Is(err, data.ErrDuplicatePair) {
			return fmt.Errorf("inserting pair %s: %w", row.RowID, err)
		}
	}

	detectors, err := buildDetectors(c)
	if err != nil {
		return err
	}

	a, err := analyze.New(cfg.Store, detectors)
	if err != nil {
		return err
	}

	res, err := a.Run(c.Context, rows)
	if err != nil {
		return fmt.Errorf("running analysis: %w", err)
	}

	return encode(res)
}

// buildDetectors assembles the detector set from config. The semantic
// duplicate detector needs an embedding backend and is skipped with a
// warning when none is available.
func buildDetectors(c *cli.Context) ([]signals.Detector, error) {
	conf := getConfig(c).Conf

	detectors := []signals.Detector{
		signals.NewLengthRatio(conf.LengthRatioMax),
		signals.NewReadability(conf.ReadabilityMaxDiff, nil),
		signals.NewRefusalBias(),
		signals.NewRepetition(conf.RepetitionMinRepeats),
		signals.NewUnsafePrompt(),
	}

	encoder, err := buildEncoder(c)
	if err != nil {
		return nil, err
	}
	if encoder == nil {
		slog.Warn("no embedding backend available, skipping semantic duplicate detection",
			"hint", fmt.Sprintf("set %s or pass --%s", openAIKeyEnvVar, mockEmbedFlag.Name))
		return detectors, nil
	}

	cacheDir := conf.CacheDir
	if cacheDir != "" && !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(getHomeDir(), cacheDir)
	}

	dup, err := signals.NewSemanticDuplicate(encoder, signals.DuplicateConfig{
		Threshold:          conf.SimilarityThreshold,
		BatchSize:          conf.EmbeddingBatchSize,
		Model:              conf.EmbeddingModel,
		CacheDir:           cacheDir,
		CheckpointInterval: conf.CheckpointInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("creating duplicate detector: %w", err)
	}

	return append(detectors, dup), nil
}

func buildEncoder(c *cli.Context) (embed.Client, error) {
	if c.Bool(mockEmbedFlag.Name) {
		return embed.NewMockClient(), nil
	}

	apiKey := os.Getenv(openAIKeyEnvVar)
	if apiKey == "" {
		return nil, nil
	}

	return embed.NewOpenAIClient(apiKey, getConfig(c).Conf.EmbeddingModel)
}
