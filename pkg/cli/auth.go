package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/prefaudit/prefaudit/pkg/auth"
	"github.com/prefaudit/prefaudit/pkg/net"
)

// whoAmIURL is a var so tests can point it at a local server.
var whoAmIURL = "https://huggingface.co/api/whoami-v2"

var (
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Hugging Face access token (prompted for when not given)",
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Save the Hugging Face access token used for gated dataset downloads",
		Action:          cmdAuth,
		Flags: []cli.Flag{
			tokenFlag,
		},
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove the saved access token",
				Action: cmdAuthClear,
			},
		},
	}
)

func cmdAuth(c *cli.Context) error {
	token := c.String(tokenFlag.Name)

	if token == "" {
		fmt.Print("Paste your Hugging Face access token: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading user input: %w", err)
		}
		token = strings.TrimSpace(line)
	}

	// best effort; an unreachable hub should not block saving
	if name, err := verifyToken(c.Context, token); err != nil {
		slog.Warn("could not verify token against the hub", "error", err)
	} else {
		fmt.Printf("Authenticated as %s.\n", name)
	}

	store := auth.NewTokenStore(getHomeDir())
	if err := store.Save(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Println("Token saved.")
	return nil
}

func cmdAuthClear(c *cli.Context) error {
	store := auth.NewTokenStore(getHomeDir())
	if err := store.Delete(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}

	fmt.Println("Token cleared.")
	return nil
}

type whoAmI struct {
	Name string `json:"name"`
}

// verifyToken resolves the token to its account name on the hub.
func verifyToken(ctx context.Context, token string) (string, error) {
	var who whoAmI
	client := net.GetBearerClient(ctx, token)
	if err := net.GetJSON(ctx, client, whoAmIURL, &who); err != nil {
		return "", err
	}
	if who.Name == "" {
		return "", errors.New("hub did not recognize the token")
	}
	return who.Name, nil
}
