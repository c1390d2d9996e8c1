package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/memo-game/auth"
	"github.com/wricardo/memo-game/game/service"
)

// playOptions configures one bot game
type playOptions struct {
	URL    string
	Token  string
	Pairs  int
	Friend bool
	Room   string
	Delay  time.Duration
	Seed   uint64
}

// identity reads the player id and name from a token without verifying it.
// The server verifies; the bot only needs to recognise itself.
func identity(token string) (uuid.UUID, string, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to read token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("token subject is not a player id: %w", err)
	}
	return id, claims.Name, nil
}

// wsURL turns an http(s) base URL into the websocket endpoint
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/ws") {
		base += "/ws"
	}
	return base
}

// play joins a game and flips cards until it is over. It returns the final
// broadcast.
func play(ctx context.Context, opts playOptions, out io.Writer) (*service.Message, error) {
	self, name, err := identity(opts.Token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(opts.URL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	join := service.Request{
		Type:                 service.TypeJoin,
		Token:                opts.Token,
		NumOfPairs:           opts.Pairs,
		WantToPlayWithFriend: opts.Friend,
		FriendRoomID:         opts.Room,
	}
	if err := conn.WriteJSON(join); err != nil {
		return nil, fmt.Errorf("failed to join: %w", err)
	}

	mem := newMemory(self, rand.New(rand.NewPCG(opts.Seed, uint64(time.Now().UnixNano()))))
	var gameID string
	started := false

	for {
		var msg service.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("connection closed: %w", err)
		}

		switch msg.Type {
		case service.TypeError:
			// errors of other players in the session are broadcast too
			if msg.Player1 != nil && *msg.Player1 != self {
				continue
			}
			if gameID == "" {
				return nil, errors.New(msg.Content)
			}
			fmt.Fprintf(out, "server: %s\n", msg.Content)
			continue

		case service.TypeJoined:
			// the join reply can trail the first moves of the opponent
			if started {
				continue
			}
			if opts.Friend && !msg.GameStarted && msg.GameID != nil {
				fmt.Fprintf(out, "waiting in room %s\n", msg.GameID)
			}

		case service.TypeGameOver:
			mem.observe(&msg)
			fmt.Fprintf(out, "game over: %d-%d, winner %s\n",
				msg.Player1GuessedCards, msg.Player2GuessedCards, winnerOf(&msg))
			return &msg, nil

		case service.TypeLeft:
			fmt.Fprintf(out, "opponent left\n")
		}

		if gameID == "" && msg.GameID != nil {
			gameID = msg.GameID.String()
		}
		if msg.GameStarted && !started {
			started = true
			fmt.Fprintf(out, "%s vs %s\n", msg.Player1Name, msg.Player2Name)
		}

		mem.observe(&msg)
		if !mem.myTurn(&msg) || gameID == "" {
			continue
		}

		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		index := mem.next()
		move := service.Request{Type: service.TypeMove, Token: opts.Token, GameID: gameID, Index: index}
		if err := conn.WriteJSON(move); err != nil {
			return nil, fmt.Errorf("failed to move: %w", err)
		}
		if name != "" {
			fmt.Fprintf(out, "%s flips %d\n", name, index)
		}
	}
}

func winnerOf(msg *service.Message) string {
	if msg.Winner == nil {
		return "none"
	}
	return *msg.Winner
}
