package service

import (
	"time"

	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/session"
)

// SessionInfo provides information about a live multiplayer session
type SessionInfo struct {
	ID          string            `json:"id"`
	Pool        string            `json:"pool"`
	CreatedAt   time.Time         `json:"created_at"`
	Player1Name string            `json:"player1_name,omitempty"`
	Player2Name string            `json:"player2_name,omitempty"`
	State       engine.MatchState `json:"state"`
}

// ResultsOptions configures result history retrieval
type ResultsOptions struct {
	Player string `json:"player"` // filter by player id, optional
	Mode   string `json:"mode"`   // "multiplayer", "solo" or empty for both
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// ResultsPage contains paginated results, newest first
type ResultsPage struct {
	Results      []*session.GameRecord `json:"results"`
	TotalResults int                   `json:"total_results"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	TotalPages   int                   `json:"total_pages"`
	HasNext      bool                  `json:"has_next"`
	HasPrevious  bool                  `json:"has_previous"`
}

// LeaderboardEntry is one ranked player. Equal win counts share a rank and
// the next distinct count takes the following rank.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	UserName string `json:"userName"`
	Wins     int    `json:"wins"`
}

// SoloOptions configures a new single-player game. Zero values fall back to
// the preset, then the default preset.
type SoloOptions struct {
	Preset           string `json:"preset,omitempty"`
	Pairs            int    `json:"pairs,omitempty"`
	TimeLimitSeconds int    `json:"time_limit_seconds,omitempty"`
}

// SoloInfo describes a single-player game
type SoloInfo struct {
	engine.SoloState
}

// SoloFlipResult contains the result of a single-player flip
type SoloFlipResult struct {
	Cards []engine.Card `json:"cards"`
	Game  SoloInfo      `json:"game"`
}

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)
