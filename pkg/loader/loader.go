// Package loader reads preference datasets into rows ready for import.
// The supported input is the HH-RLHF JSONL format, plain or gzipped, where
// each record carries a chosen and a rejected conversation transcript.
package loader

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/prefaudit/prefaudit/pkg/models"
)

const (
	// DefaultSource is the dataset name used in generated row ids.
	DefaultSource = "hh-rlhf"

	// DefaultSplit is the dataset split used when none is given.
	DefaultSplit = "train"

	turnSeparator = "\n\nAssistant: "
	humanPrefix   = "Human: "

	// transcripts can be long; the default scanner limit is too small
	maxLineBytes = 4 * 1024 * 1024
)

// record is one line of the HH-RLHF JSONL format.
type record struct {
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`
}

// Result is the outcome of loading one dataset file.
type Result struct {
	Rows    []models.PreferenceRow `json:"-" yaml:"-"`
	Read    int                    `json:"read" yaml:"read"`
	Skipped int                    `json:"skipped" yaml:"skipped"`
}

// Loader turns HH-RLHF transcripts into preference rows. Malformed records
// are skipped and counted, never fatal.
type Loader struct {
	// Source names the dataset in generated row ids.
	Source string

	// Split names the dataset split in generated row ids.
	Split string

	// Limit caps the number of rows loaded. Zero means no cap.
	Limit int
}

// New creates a loader with defaults filled in.
func New(source, split string, limit int) *Loader {
	if source == "" {
		source = DefaultSource
	}
	if split == "" {
		split = DefaultSplit
	}
	if limit < 0 {
		limit = 0
	}
	return &Loader{Source: source, Split: split, Limit: limit}
}

// ParseConversation splits a transcript into its prompt and the final
// assistant response. The prompt is everything before the last assistant
// turn, with the leading human marker stripped.
func ParseConversation(conversation string) (prompt, response string, err error) {
	i := strings.LastIndex(conversation, turnSeparator)
	if i < 0 {
		return "", "", errors.New("transcript has no assistant turn")
	}

	prompt = strings.TrimSpace(conversation[:i])
	prompt = strings.TrimSpace(strings.TrimPrefix(prompt, humanPrefix))
	response = conversation[i+len(turnSeparator):]

	return prompt, response, nil
}

// LoadFile loads a dataset file, transparently decompressing .gz input.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset file: %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read gzip header: %s", path)
		}
		defer gz.Close()
		r = gz
	}

	return l.Load(ctx, r)
}

// Load reads JSONL records and returns the parsed rows. Row ids are
// assigned from the record's position in the input, so ids stay stable
// even when earlier records are skipped.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	res := &Result{Rows: make([]models.PreferenceRow, 0)}

	for idx := 0; scanner.Scan(); idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l.Limit > 0 && len(res.Rows) >= l.Limit {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res.Read++

		row, err := l.parseRecord(idx, line)
		if err != nil {
			slog.Warn("skipping record", "source", l.Source, "split", l.Split, "index", idx, "error", err)
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read dataset")
	}

	slog.Debug("dataset loaded", "source", l.Source, "split", l.Split,
		"rows", len(res.Rows), "skipped", res.Skipped)
	return res, nil
}

func (l *Loader) parseRecord(idx int, line string) (models.PreferenceRow, error) {
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return models.PreferenceRow{}, errors.Wrap(err, "invalid json")
	}

	prompt, chosen, err := ParseConversation(rec.Chosen)
	if err != nil {
		return models.PreferenceRow{}, errors.Wrap(err, "chosen transcript")
	}
	_, rejected, err := ParseConversation(rec.Rejected)
	if err != nil {
		return models.PreferenceRow{}, errors.Wrap(err, "rejected transcript")
	}

	id := fmt.Sprintf("%s-%s-%d", l.Source, l.Split, idx)
	return models.NewPreferenceRow(id, prompt, chosen, rejected)
}
