package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete all imported pairs and detections",
		HideHelpCommand: true,
		Action:          cmdReset,
	}

	vacuumCmd = &cli.Command{
		Name:            "vacuum",
		Usage:           "Reclaim unused database space",
		HideHelpCommand: true,
		Action:          cmdVacuum,
	}
)

func cmdReset(c *cli.Context) error {
	cfg := getConfig(c)

	fmt.Printf("This will permanently delete all data in %s\n", cfg.DBPath)
	fmt.Print("Are you sure? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Aborted.")
		return nil
	}

	if err := cfg.Store.Reset(); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}

	if err := cfg.Store.Vacuum(); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}

	slog.Info("database reset", "path", cfg.DBPath)
	fmt.Println("Reset complete.")
	return nil
}

func cmdVacuum(c *cli.Context) error {
	cfg := getConfig(c)

	if err := cfg.Store.Vacuum(); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}

	fmt.Println("Vacuum complete.")
	return nil
}
