package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/engine"
)

// Game modes stored in records
const (
	ModeMultiplayer = "multiplayer"
	ModeSolo        = "solo"
)

// ResultStore defines the interface for persisting finished games
type ResultStore interface {
	// Save persists a finished game
	Save(record *GameRecord) error

	// Load retrieves a finished game by ID
	Load(id string) (*GameRecord, error)

	// Delete removes a finished game
	Delete(id string) error

	// ListAll returns all persisted game IDs
	ListAll() ([]string, error)

	// Exists checks if a game exists in storage
	Exists(id string) bool
}

// GameRecord is the stored result of a finished game
type GameRecord struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"`
	Pairs      int            `json:"pairs"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    engine.Outcome `json:"outcome,omitempty"`
	Winner     uuid.UUID      `json:"winner"`

	// Multiplayer
	Player1      uuid.UUID `json:"player1"`
	Player2      uuid.UUID `json:"player2,omitempty"`
	Player1Pairs int       `json:"player1_pairs"`
	Player2Pairs int       `json:"player2_pairs"`

	// Solo
	Won           bool `json:"won,omitempty"`
	TimeLimit     int  `json:"time_limit,omitempty"`
	TimeRemaining int  `json:"time_remaining,omitempty"`
}

// HasPlayer reports whether player took part in the game
func (r *GameRecord) HasPlayer(player uuid.UUID) bool {
	return player != uuid.Nil && (r.Player1 == player || r.Player2 == player)
}

// RecordFromMatch builds a record from a finished match
func RecordFromMatch(state engine.MatchState) *GameRecord {
	return &GameRecord{
		ID:           state.ID.String(),
		Mode:         ModeMultiplayer,
		Pairs:        state.Pairs,
		FinishedAt:   time.Now().UTC(),
		Outcome:      state.Outcome,
		Winner:       state.Winner,
		Player1:      state.Player1,
		Player2:      state.Player2,
		Player1Pairs: state.Player1Pairs,
		Player2Pairs: state.Player2Pairs,
	}
}

// RecordFromSolo builds a record from a finished single-player game
func RecordFromSolo(state engine.SoloState) *GameRecord {
	r := &GameRecord{
		ID:            state.ID.String(),
		Mode:          ModeSolo,
		Pairs:         state.Pairs,
		FinishedAt:    time.Now().UTC(),
		Player1:       state.Player,
		Won:           state.Won,
		TimeLimit:     state.TimeLimit,
		TimeRemaining: state.TimeRemaining,
	}
	if state.Won {
		r.Outcome, r.Winner = engine.OutcomeWin, state.Player
	}
	return r
}
