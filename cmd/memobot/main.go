// Command memobot is a development companion of the memo game server.
//
//	memobot token --secret s3cret --name Alice     # mint a player token
//	memobot play --secret s3cret --pairs 8         # join a random game and play it
//	memobot play --token <jwt> --friend            # open a friend room and wait
//	memobot play --token <jwt> --friend --room <id>
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/memo-game/auth"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var secretFlag = &cli.StringFlag{
	Name:    "secret",
	Usage:   "secret the server signs tokens with",
	Sources: cli.EnvVars("JWT_SECRET"),
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "memobot",
		Usage: "mint tokens and play memo games against a server",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "mint a player token",
				Flags: []cli.Flag{
					secretFlag,
					&cli.StringFlag{Name: "name", Usage: "display name", Value: "memobot"},
					&cli.StringFlag{Name: "player", Usage: "player id, random when empty"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: auth.DefaultTokenTTL},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					token, err := mintToken(cmd.String("secret"), cmd.String("player"), cmd.String("name"), cmd.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, token)
					return nil
				},
			},
			{
				Name:  "play",
				Usage: "join a game over websocket and play until it is over",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "server URL", Value: "http://localhost:8080", Sources: cli.EnvVars("MEMO_URL")},
					&cli.StringFlag{Name: "token", Usage: "player token, minted from --secret when empty", Sources: cli.EnvVars("MEMO_TOKEN")},
					secretFlag,
					&cli.StringFlag{Name: "name", Usage: "display name for a minted token", Value: "memobot"},
					&cli.IntFlag{Name: "pairs", Usage: "number of pairs", Value: 8},
					&cli.BoolFlag{Name: "friend", Usage: "play in a friend room"},
					&cli.StringFlag{Name: "room", Usage: "friend room to join, a new room when empty"},
					&cli.DurationFlag{Name: "delay", Usage: "pause before each flip", Value: 300 * time.Millisecond},
					&cli.DurationFlag{Name: "timeout", Usage: "give up after this long", Value: 10 * time.Minute},
				},
				Action: runPlay,
			},
		},
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	token := cmd.String("token")
	if token == "" {
		var err error
		token, err = mintToken(cmd.String("secret"), "", cmd.String("name"), auth.DefaultTokenTTL)
		if err != nil {
			return fmt.Errorf("no --token given: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	_, err := play(ctx, playOptions{
		URL:    cmd.String("url"),
		Token:  token,
		Pairs:  int(cmd.Int("pairs")),
		Friend: cmd.Bool("friend"),
		Room:   cmd.String("room"),
		Delay:  cmd.Duration("delay"),
		Seed:   uint64(time.Now().UnixNano()),
	}, cmd.Root().Writer)
	return err
}

// mintToken signs a token the way the server does
func mintToken(secret, player, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("--secret or JWT_SECRET is required")
	}
	ts, err := auth.NewTokenService(secret, ttl)
	if err != nil {
		return "", err
	}

	id := uuid.New()
	if player != "" {
		if id, err = uuid.Parse(player); err != nil {
			return "", fmt.Errorf("invalid player id: %w", err)
		}
	}
	return ts.Issue(id, name)
}
