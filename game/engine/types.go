package engine

import (
	"errors"

	"github.com/google/uuid"
)

const (
	// NoPending marks the absence of a first flipped card
	NoPending = -1

	// Validation constants
	MinPairs = 1
	MaxPairs = 64
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Card is a revealed board position and the value under it
type Card struct {
	Index int `json:"index"`
	Value int `json:"value"`
}

// Flip describes the result of revealing one card
type Flip struct {
	Cards     []Card `json:"cards"`
	Completed bool   `json:"completed"` // second card of a pair
	Matched   bool   `json:"matched"`
}

// Outcome is the resolution of a finished match
type Outcome string

const (
	OutcomeNone Outcome = ""     // unresolved or cancelled
	OutcomeDraw Outcome = "draw" // equal pair counts
	OutcomeWin  Outcome = "win"  // Winner holds the victor
)

// MatchState is a point-in-time copy of a two-player match
type MatchState struct {
	ID           uuid.UUID `json:"id"`
	Pairs        int       `json:"pairs"`
	Board        []int     `json:"board"` // 0 for cards not yet matched
	LastMove     []Card    `json:"last_move,omitempty"`
	Player1      uuid.UUID `json:"player1"`
	Player2      uuid.UUID `json:"player2"`
	Player1Turn  bool      `json:"player1_turn"`
	Player1Pairs int       `json:"player1_pairs"`
	Player2Pairs int       `json:"player2_pairs"`
	Outcome      Outcome   `json:"outcome"`
	Winner       uuid.UUID `json:"winner"`
	Started      bool      `json:"started"`
	Over         bool      `json:"over"`
}

// TurnHolder returns the id of the player whose turn it is
func (s MatchState) TurnHolder() uuid.UUID {
	if s.Player1Turn {
		return s.Player1
	}
	return s.Player2
}

// SoloState is a point-in-time copy of a single-player game
type SoloState struct {
	ID            uuid.UUID `json:"id"`
	Player        uuid.UUID `json:"player"`
	Pairs         int       `json:"pairs"`
	Board         []int     `json:"board"`
	TimeLimit     int       `json:"time_limit"`
	TimeRemaining int       `json:"time_remaining"`
	Over          bool      `json:"over"`
	Won           bool      `json:"won"`
}
