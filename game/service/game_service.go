package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/session"
)

// GameService defines all game-related operations
type GameService interface {
	// Real-time protocol
	Handle(ctx context.Context, peer Peer, req *Request) *Message
	Disconnect(ctx context.Context, peer Peer)
	AddBroadcaster(b Broadcaster)

	// Multiplayer sessions
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Results and statistics
	ListResults(ctx context.Context, opts ResultsOptions) (*ResultsPage, error)
	GetResult(ctx context.Context, id string) (*session.GameRecord, error)
	Leaderboard(ctx context.Context, pairs int) ([]*LeaderboardEntry, error)

	// Single player
	StartSolo(ctx context.Context, token string, opts SoloOptions) (*SoloInfo, error)
	GetSolo(ctx context.Context, id string) (*SoloInfo, error)
	FlipSolo(ctx context.Context, token, id string, index int) (*SoloFlipResult, error)
	LeaveSolo(ctx context.Context, token, id string) (*SoloInfo, error)

	// Authentication
	Logout(ctx context.Context, token string) error

	// Presets
	ListPresets(ctx context.Context) ([]*config.PresetInfo, error)
	GetPreset(ctx context.Context, id string) (*config.Preset, error)
}

// SessionRegistry pairs players into multiplayer sessions
type SessionRegistry interface {
	JoinRandom(player uuid.UUID, pairs int) *session.Session
	JoinWithFriend(player uuid.UUID, pairs int, room *uuid.UUID) *session.Session
	Leave(player uuid.UUID) (*session.Session, engine.MatchState)
	Finish(s *session.Session)
	LookupByID(id uuid.UUID) *session.Session
	List() []*session.Session
}

// SoloGames stores single-player games
type SoloGames interface {
	Create(player uuid.UUID, pairs int, limit time.Duration) (*engine.Solo, error)
	Get(id uuid.UUID) (*engine.Solo, error)
	Delete(id uuid.UUID) error
}

// ConfigManager provides difficulty presets
type ConfigManager interface {
	LoadPreset(id string) (*config.Preset, error)
	ListPresets() ([]*config.PresetInfo, error)
	GetDefault() *config.Preset
}

// TokenValidator checks player tokens
type TokenValidator interface {
	IsValid(token string) bool
	UserIDOf(token string) (uuid.UUID, bool)
}

// TokenRevoker is implemented by validators that support logout
type TokenRevoker interface {
	Blacklist(token string) error
}

// NameResolver maps player ids to display names
type NameResolver interface {
	NameOf(id uuid.UUID) (string, bool)
}

// NameRegistrar is implemented by resolvers that learn names at join time
type NameRegistrar interface {
	Register(id uuid.UUID, name string)
}

// TokenNamer is implemented by validators whose tokens carry a display name
type TokenNamer interface {
	DisplayNameOf(token string) string
}

// Deps groups the collaborators of the game service
type Deps struct {
	Registry SessionRegistry
	Solo     SoloGames
	Results  session.ResultStore
	Configs  ConfigManager
	Tokens   TokenValidator
	Names    NameResolver
}
