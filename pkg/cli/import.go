package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/prefaudit/prefaudit/pkg/auth"
	"github.com/prefaudit/prefaudit/pkg/data"
	"github.com/prefaudit/prefaudit/pkg/loader"
	"github.com/prefaudit/prefaudit/pkg/models"
	"github.com/prefaudit/prefaudit/pkg/net"
)

var (
	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Path to a local dataset file (JSONL, optionally gzipped)",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL of a remote dataset file (uses the saved token when present)",
	}

	sourceFlag = &cli.StringFlag{
		Name:  "source",
		Usage: fmt.Sprintf("Dataset name used in row ids (default: %s)", loader.DefaultSource),
		Value: loader.DefaultSource,
	}

	splitFlag = &cli.StringFlag{
		Name:  "split",
		Usage: fmt.Sprintf("Dataset split used in row ids (default: %s)", loader.DefaultSplit),
		Value: loader.DefaultSplit,
	}

	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of rows imported (default: no limit)",
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import preference pairs from a dataset file",
		UsageText: `prefaudit import --file train.jsonl.gz                  # import a local file
   prefaudit import --url https://host/train.jsonl --limit 1000
   prefaudit import --file test.jsonl --split test`,
		Action: cmdImport,
		Flags: []cli.Flag{
			fileFlag,
			urlFlag,
			sourceFlag,
			splitFlag,
			limitFlag,
		},
	}
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Source     string `json:"source" yaml:"source"`
	Split      string `json:"split" yaml:"split"`
	Read       int    `json:"read" yaml:"read"`
	Skipped    int    `json:"skipped" yaml:"skipped"`
	Imported   int    `json:"imported" yaml:"imported"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	Duration   string `json:"duration" yaml:"duration"`
}

func cmdImport(c *cli.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	rows, skipped, read, err := loadRows(c)
	if err != nil {
		return err
	}

	res := &ImportResult{
		Source:  c.String(sourceFlag.Name),
		Split:   c.String(splitFlag.Name),
		Read:    read,
		Skipped: skipped,
	}

	for _, row := range rows {
		err := cfg.Store.InsertPair(row.RowID, row.Chosen, row.Rejected, res.Source)
		if err != nil {
			if errors.Is(err, data.ErrDuplicatePair) {
				res.Duplicates++
				continue
			}
			return fmt.Errorf("inserting pair %s: %w", row.RowID, err)
		}
		res.Imported++
	}

	res.Duration = time.Since(start).Round(time.Millisecond).String()
	slog.Info("import complete", "imported", res.Imported, "duplicates", res.Duplicates, "skipped", res.Skipped)

	return encode(res)
}

// loadRows reads the dataset named by the file or url flag. Exactly one of
// the two is required.
func loadRows(c *cli.Context) (rows []models.PreferenceRow, skipped, read int, err error) {
	file := c.String(fileFlag.Name)
	url := c.String(urlFlag.Name)

	if (file == "") == (url == "") {
		return nil, 0, 0, errors.New("exactly one of --file or --url is required")
	}

	if url != "" {
		file, err = downloadDataset(c, url)
		if err != nil {
			return nil, 0, 0, err
		}
		defer os.Remove(file)
	}

	l := loader.New(c.String(sourceFlag.Name), c.String(splitFlag.Name), c.Int(limitFlag.Name))
	res, err := l.LoadFile(c.Context, file)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("loading dataset: %w", err)
	}

	return res.Rows, res.Skipped, res.Read, nil
}

func downloadDataset(c *cli.Context, url string) (string, error) {
	var client *http.Client
	if token, err := auth.NewTokenStore(getHomeDir()).Get(); err == nil {
		client = net.GetBearerClient(c.Context, token)
	} else {
		slog.Debug("no saved token, downloading anonymously")
	}

	dest := filepath.Join(os.TempDir(), fmt.Sprintf("prefaudit-%d%s", time.Now().UnixNano(), filepath.Ext(url)))
	slog.Info("downloading dataset", "url", url)

	if err := net.Download(c.Context, client, url, dest); err != nil {
		return "", fmt.Errorf("downloading dataset: %w", err)
	}
	return dest, nil
}
