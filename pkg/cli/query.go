package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/prefaudit/prefaudit/pkg/data"
	"github.com/prefaudit/prefaudit/pkg/signals"
)

const minSeverityDefault = 0.7

var (
	pairIDFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "Pair id",
		Required: true,
	}

	signalTypeFlag = &cli.StringFlag{
		Name:     "type",
		Usage:    "Signal type (see: prefaudit query signals)",
		Required: true,
	}

	minSeverityFlag = &cli.Float64Flag{
		Name:  "min",
		Usage: "Minimum severity threshold",
		Value: minSeverityDefault,
	}

	queryCmd = &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List data query operations",
		Subcommands: []*cli.Command{
			{
				Name:    "pair",
				Usage:   "Get a pair with all of its detections",
				Aliases: []string{"p"},
				Action:  cmdQueryPair,
				Flags: []cli.Flag{
					pairIDFlag,
				},
			},
			{
				Name:    "signal",
				Usage:   "List detections for one signal type",
				Aliases: []string{"si"},
				Action:  cmdQuerySignal,
				Flags: []cli.Flag{
					signalTypeFlag,
					minSeverityFlag,
				},
			},
			{
				Name:    "severe",
				Usage:   "List high severity detections with their pair content",
				Aliases: []string{"sev"},
				Action:  cmdQuerySevere,
				Flags: []cli.Flag{
					minSeverityFlag,
				},
			},
			{
				Name:    "stats",
				Usage:   "Summarize the audit database",
				Aliases: []string{"st"},
				Action:  cmdQueryStats,
			},
			{
				Name:   "signals",
				Usage:  "List known signal types",
				Action: cmdQuerySignals,
			},
			{
				Name:   "version",
				Usage:  "Print the database schema version",
				Action: cmdQueryVersion,
			},
		},
	}
)

// PairDetail is a pair with all of its detections.
type PairDetail struct {
	Pair       *data.Pair        `json:"pair" yaml:"pair"`
	Detections []*data.Detection `json:"detections" yaml:"detections"`
}

func cmdQueryPair(c *cli.Context) error {
	cfg := getConfig(c)
	id := c.String(pairIDFlag.Name)

	pair, err := cfg.Store.GetPair(id)
	if err != nil {
		return fmt.Errorf("getting pair: %w", err)
	}
	if pair == nil {
		return fmt.Errorf("pair not found: %s", id)
	}

	detections, err := cfg.Store.GetDetectionsForPair(id)
	if err != nil {
		return fmt.Errorf("getting detections: %w", err)
	}

	return encode(&PairDetail{Pair: pair, Detections: detections})
}

func cmdQuerySignal(c *cli.Context) error {
	cfg := getConfig(c)

	list, err := cfg.Store.GetDetectionsBySignal(c.String(signalTypeFlag.Name), c.Float64(minSeverityFlag.Name))
	if err != nil {
		return fmt.Errorf("getting detections: %w", err)
	}

	return encode(list)
}

func cmdQuerySevere(c *cli.Context) error {
	cfg := getConfig(c)

	list, err := cfg.Store.GetSevereDetections(c.Float64(minSeverityFlag.Name))
	if err != nil {
		return fmt.Errorf("getting severe detections: %w", err)
	}

	return encode(list)
}

func cmdQueryStats(c *cli.Context) error {
	cfg := getConfig(c)

	stats, err := cfg.Store.GetStats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	return encode(stats)
}

func cmdQuerySignals(c *cli.Context) error {
	return encode([]string{
		signals.SignalLengthRatio,
		signals.SignalReadability,
		signals.SignalRefusalBias,
		signals.SignalRepetition,
		signals.SignalUnsafePrompt,
		signals.SignalSemanticDuplicate,
	})
}

func cmdQueryVersion(c *cli.Context) error {
	cfg := getConfig(c)

	v, err := cfg.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	return encode(map[string]int{"schema_version": v})
}
