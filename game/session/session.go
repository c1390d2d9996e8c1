package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/engine"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrNotStarted       = errors.New("game is waiting for another player")
	ErrGameOver         = errors.New("game is already over")
	ErrNotYourTurn      = errors.New("not your turn")
)

// Pool identifies which matchmaking pool holds a session
type Pool string

const (
	PoolRandom Pool = "random"
	PoolFriend Pool = "friend"
)

// Session is a live multiplayer game. Every access to the match goes
// through the session mutex.
type Session struct {
	id        uuid.UUID
	pairs     int
	pool      Pool
	createdAt time.Time

	mu    sync.Mutex
	match *engine.Match
}

func newSession(match *engine.Match, pool Pool) *Session {
	return &Session{
		id:        match.ID(),
		pairs:     match.Pairs(),
		pool:      pool,
		createdAt: time.Now(),
		match:     match,
	}
}

// ID returns the session identifier, which doubles as the friend invite code
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Pairs returns the pair count of the board
func (s *Session) Pairs() int {
	return s.pairs
}

// Pool returns the pool the session was created in
func (s *Session) Pool() Pool {
	return s.pool
}

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// State returns a snapshot of the match
func (s *Session) State() engine.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.State()
}

// Move flips a card for player and returns the resulting snapshot together
// with the revealed cards. A flip on an already matched card reveals nothing
// and is not an error.
func (s *Session) Move(player uuid.UUID, index int) ([]engine.Card, engine.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.match.Over():
		return nil, s.match.State(), ErrGameOver
	case !s.match.Started():
		return nil, s.match.State(), ErrNotStarted
	case !s.match.IsPlayersTurn(player):
		return nil, s.match.State(), ErrNotYourTurn
	}

	cards, err := s.match.Flip(player, index)
	if err != nil {
		return nil, s.match.State(), err
	}
	return cards, s.match.State(), nil
}

// waiting reports whether the session has an open second slot for pairs
func (s *Session) waiting(pairs int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.match.Over() && !s.match.Full() && s.pairs == pairs
}

// seat fills the second slot and starts the match
func (s *Session) seat(player uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.match.Seat(player) {
		return false
	}
	s.match.Start()
	return true
}

// leave applies a player departure and returns the resulting snapshot
func (s *Session) leave(player uuid.UUID) engine.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.match.PlayerLeaves(player)
	return s.match.State()
}
