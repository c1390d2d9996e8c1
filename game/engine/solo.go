package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Solo is a single-player game against a countdown. It is won when every
// pair is found before the time limit and lost when the timer expires.
//
// Solo is safe for concurrent use; the countdown fires on its own goroutine.
type Solo struct {
	mu       sync.Mutex
	board    *Board
	player   uuid.UUID
	limit    time.Duration
	deadline time.Time
	timer    *time.Timer
	left     time.Duration // frozen remaining time once over
	over     bool
	won      bool
	onEnd    func(SoloState)
}

// NewSolo starts a single-player game. onEnd, if non-nil, is called exactly
// once when the game ends for any reason.
func NewSolo(pairs int, player uuid.UUID, limit time.Duration, onEnd func(SoloState)) (*Solo, error) {
	board, err := NewBoard(pairs)
	if err != nil {
		return nil, err
	}
	return NewSoloWithBoard(board, player, limit, onEnd)
}

// NewSoloWithBoard starts a single-player game on a prepared board
func NewSoloWithBoard(board *Board, player uuid.UUID, limit time.Duration, onEnd func(SoloState)) (*Solo, error) {
	if board == nil {
		return nil, fmt.Errorf("%w: board cannot be nil", ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: time limit must be positive, got %s", ErrInvalidArgument, limit)
	}

	s := &Solo{
		board:    board,
		player:   player,
		limit:    limit,
		deadline: time.Now().Add(limit),
		onEnd:    onEnd,
	}
	// expire takes the lock, so it cannot observe a nil timer
	s.mu.Lock()
	s.timer = time.AfterFunc(limit, s.expire)
	s.mu.Unlock()
	return s, nil
}

// ID returns the game identifier
func (s *Solo) ID() uuid.UUID {
	return s.board.ID()
}

// Player returns the owner of the game
func (s *Solo) Player() uuid.UUID {
	return s.player
}

// Flip reveals the card at index. Flips after the game is over and flips on
// matched cards return no cards.
func (s *Solo) Flip(index int) ([]Card, error) {
	s.mu.Lock()
	if s.over {
		s.mu.Unlock()
		return nil, nil
	}
	if index < 0 || index >= s.board.Len() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: index %d for board of %d cards", ErrIndexOutOfRange, index, s.board.Len())
	}
	if s.board.IsMatched(index) {
		s.mu.Unlock()
		return nil, nil
	}

	flip, err := s.board.FlipOne(index)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	var ended *SoloState
	if flip.Completed && s.board.AllMatched() {
		ended = s.finishLocked(true)
	}
	s.mu.Unlock()

	if ended != nil {
		s.notify(*ended)
	}
	return flip.Cards, nil
}

// Leave ends the game immediately as a loss
func (s *Solo) Leave() {
	s.mu.Lock()
	if s.over {
		s.mu.Unlock()
		return
	}
	ended := s.finishLocked(false)
	s.mu.Unlock()

	s.notify(*ended)
}

// Stop cancels the countdown without reporting an end. Used on shutdown.
func (s *Solo) Stop() {
	s.timer.Stop()
}

// Over reports whether the game has ended
func (s *Solo) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.over
}

// State returns a copy of the game
func (s *Solo) State() SoloState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Solo) expire() {
	s.mu.Lock()
	if s.over {
		s.mu.Unlock()
		return
	}
	ended := s.finishLocked(false)
	s.mu.Unlock()

	s.notify(*ended)
}

func (s *Solo) finishLocked(won bool) *SoloState {
	s.timer.Stop()
	s.left = s.remainingLocked()
	s.over = true
	s.won = won
	state := s.stateLocked()
	return &state
}

func (s *Solo) remainingLocked() time.Duration {
	if s.over {
		return s.left
	}
	left := time.Until(s.deadline)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Solo) stateLocked() SoloState {
	return SoloState{
		ID:            s.board.ID(),
		Player:        s.player,
		Pairs:         s.board.Pairs(),
		Board:         s.board.PublicBoard(),
		TimeLimit:     int(s.limit / time.Second),
		TimeRemaining: int(s.remainingLocked() / time.Second),
		Over:          s.over,
		Won:           s.won,
	}
}

func (s *Solo) notify(state SoloState) {
	if s.onEnd != nil {
		s.onEnd(state)
	}
}
