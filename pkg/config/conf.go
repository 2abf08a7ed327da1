// Package config manages the app config file with detection thresholds and
// embedding settings.
package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600
)

// Config represents app config object.
type Config struct {
	// SimilarityThreshold is the cosine similarity bound for semantic
	// duplicate detection, in (0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// LengthRatioMax is the maximum allowed chosen/rejected length ratio.
	LengthRatioMax float64 `yaml:"length_ratio_max"`

	// ReadabilityMaxDiff is the maximum allowed grade level difference.
	ReadabilityMaxDiff float64 `yaml:"readability_max_diff"`

	// RepetitionMinRepeats is the consecutive word count that flags
	// degenerate text.
	RepetitionMinRepeats int `yaml:"repetition_min_repeats"`

	// EmbeddingModel names the embedding model.
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingBatchSize is the number of texts per embedding request.
	EmbeddingBatchSize int `yaml:"embedding_batch_size"`

	// CheckpointInterval is the number of rows between embedding
	// checkpoint saves.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// CacheDir holds embedding checkpoints. Empty disables checkpointing.
	CacheDir string `yaml:"cache_dir"`
}

func getDefaultConfig() *Config {
	return &Config{
		SimilarityThreshold:  0.95,
		LengthRatioMax:       3.0,
		ReadabilityMaxDiff:   5.0,
		RepetitionMinRepeats: 3,
		EmbeddingModel:       "text-embedding-3-small",
		EmbeddingBatchSize:   32,
		CheckpointInterval:   1000,
		CacheDir:             ".cache",
	}
}

// Validate checks the config values against their allowed ranges.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	if c.SimilarityThreshold <= 0.0 || c.SimilarityThreshold > 1.0 {
		return errors.Errorf("similarity_threshold must be in (0.0, 1.0], got %f", c.SimilarityThreshold)
	}
	if c.LengthRatioMax < 1.0 {
		return errors.Errorf("length_ratio_max must be at least 1.0, got %f", c.LengthRatioMax)
	}
	if c.ReadabilityMaxDiff <= 0.0 {
		return errors.Errorf("readability_max_diff must be positive, got %f", c.ReadabilityMaxDiff)
	}
	if c.RepetitionMinRepeats < 2 {
		return errors.Errorf("repetition_min_repeats must be at least 2, got %d", c.RepetitionMinRepeats)
	}
	if c.EmbeddingModel == "" {
		return errors.New("embedding_model is required")
	}
	if c.EmbeddingBatchSize < 1 || c.EmbeddingBatchSize > 256 {
		return errors.Errorf("embedding_batch_size must be between 1 and 256, got %d", c.EmbeddingBatchSize)
	}
	if c.CheckpointInterval < 100 {
		return errors.Errorf("checkpoint_interval must be at least 100, got %d", c.CheckpointInterval)
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		err := os.Mkdir(dirPath, dirMode)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	j, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening config file: %s", path)
	}
	defer j.Close()

	b, err := io.ReadAll(j)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %v", j)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file %v", j)
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return &c, nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "dir", dir)
		err := os.Mkdir(dir, dirMode)
		if err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
