package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Match is a two-player game on a shared board. Players alternate turns;
// the turn passes after every completed pair, matched or not, unless that
// pair ended the match.
//
// Match is not safe for concurrent use. Callers serialize access.
type Match struct {
	board        *Board
	player1      uuid.UUID
	player2      uuid.UUID
	player1Turn  bool
	player1Pairs int
	player2Pairs int
	lastMove     []Card
	outcome      Outcome
	winner       uuid.UUID
	started      bool
	over         bool
}

// NewMatch creates a match with the given players. player2 may be uuid.Nil
// while waiting for an opponent.
func NewMatch(pairs int, player1, player2 uuid.UUID) (*Match, error) {
	board, err := NewBoard(pairs)
	if err != nil {
		return nil, err
	}
	return newMatch(board, player1, player2), nil
}

// NewMatchWithBoard creates a match on a prepared board
func NewMatchWithBoard(board *Board, player1, player2 uuid.UUID) (*Match, error) {
	if board == nil {
		return nil, fmt.Errorf("%w: board cannot be nil", ErrInvalidArgument)
	}
	return newMatch(board, player1, player2), nil
}

func newMatch(board *Board, player1, player2 uuid.UUID) *Match {
	return &Match{
		board:       board,
		player1:     player1,
		player2:     player2,
		player1Turn: true,
	}
}

// ID returns the match identifier
func (m *Match) ID() uuid.UUID {
	return m.board.ID()
}

// Pairs returns the pair count of the board
func (m *Match) Pairs() int {
	return m.board.Pairs()
}

// Player1 returns the occupant of the first slot
func (m *Match) Player1() uuid.UUID {
	return m.player1
}

// Player2 returns the occupant of the second slot
func (m *Match) Player2() uuid.UUID {
	return m.player2
}

// Seat puts player in the empty second slot. It reports false when the slot
// is taken, the match is over, or player already occupies slot 1.
func (m *Match) Seat(player uuid.UUID) bool {
	if m.over || player == uuid.Nil || m.player2 != uuid.Nil || m.player1 == player {
		return false
	}
	if m.player1 == uuid.Nil {
		m.player1 = player
		return true
	}
	m.player2 = player
	return true
}

// Start marks the match as in progress once both slots are filled
func (m *Match) Start() bool {
	if m.over || m.player1 == uuid.Nil || m.player2 == uuid.Nil {
		return false
	}
	m.started = true
	return true
}

// Started reports whether both players are seated and play has begun
func (m *Match) Started() bool {
	return m.started
}

// Over reports whether the match has ended
func (m *Match) Over() bool {
	return m.over
}

// Full reports whether both slots are taken
func (m *Match) Full() bool {
	return m.player1 != uuid.Nil && m.player2 != uuid.Nil
}

// HasPlayer reports whether player occupies either slot
func (m *Match) HasPlayer(player uuid.UUID) bool {
	return player != uuid.Nil && (m.player1 == player || m.player2 == player)
}

// IsPlayersTurn reports whether player holds the turn
func (m *Match) IsPlayersTurn(player uuid.UUID) bool {
	if player == uuid.Nil {
		return false
	}
	if m.player1Turn {
		return m.player1 == player
	}
	return m.player2 == player
}

// Flip reveals the card at index on behalf of player. Out-of-turn flips,
// flips before the match starts or after it ends, and flips on matched cards
// are ignored and return no cards.
func (m *Match) Flip(player uuid.UUID, index int) ([]Card, error) {
	if !m.Full() || !m.started {
		return nil, nil
	}
	if player == uuid.Nil {
		return nil, fmt.Errorf("%w: flip without a player", ErrInvalidArgument)
	}
	if m.over || !m.IsPlayersTurn(player) {
		return nil, nil
	}
	if index < 0 || index >= m.board.Len() {
		return nil, fmt.Errorf("%w: index %d for board of %d cards", ErrIndexOutOfRange, index, m.board.Len())
	}
	if m.board.IsMatched(index) {
		return nil, nil
	}

	flip, err := m.board.FlipOne(index)
	if err != nil {
		return nil, err
	}
	m.lastMove = flip.Cards

	if flip.Completed {
		if flip.Matched {
			if m.player1Turn {
				m.player1Pairs++
			} else {
				m.player2Pairs++
			}
		}
		m.checkEnd()
		if !m.over {
			m.player1Turn = !m.player1Turn
		}
	}

	return flip.Cards, nil
}

// checkEnd ends the match when every card is matched or one player holds a
// strict majority of the pairs
func (m *Match) checkEnd() {
	majority := m.board.Pairs()/2 + 1
	if !m.board.AllMatched() && m.player1Pairs < majority && m.player2Pairs < majority {
		return
	}

	m.over = true
	switch {
	case m.player1Pairs > m.player2Pairs:
		m.outcome, m.winner = OutcomeWin, m.player1
	case m.player2Pairs > m.player1Pairs:
		m.outcome, m.winner = OutcomeWin, m.player2
	default:
		m.outcome = OutcomeDraw
	}
}

// PlayerLeaves removes player from the match. Leaving a started match
// forfeits it to the opponent. Before the start, the last player leaving
// cancels the match and a departing first player hands slot 1 to the second.
func (m *Match) PlayerLeaves(player uuid.UUID) {
	if m.over || !m.HasPlayer(player) {
		return
	}

	if m.started {
		m.over = true
		m.outcome = OutcomeWin
		if player == m.player1 {
			m.winner = m.player2
		} else {
			m.winner = m.player1
		}
		return
	}

	switch {
	case player == m.player2:
		m.player2 = uuid.Nil
	case m.player2 == uuid.Nil:
		m.player1 = uuid.Nil
		m.over = true
	default:
		m.player1 = m.player2
		m.player2 = uuid.Nil
	}
}

// Outcome returns the resolution and, for OutcomeWin, the winner
func (m *Match) Outcome() (Outcome, uuid.UUID) {
	return m.outcome, m.winner
}

// State returns a copy of the match suitable for broadcasting
func (m *Match) State() MatchState {
	return MatchState{
		ID:           m.board.ID(),
		Pairs:        m.board.Pairs(),
		Board:        m.board.PublicBoard(),
		LastMove:     append([]Card(nil), m.lastMove...),
		Player1:      m.player1,
		Player2:      m.player2,
		Player1Turn:  m.player1Turn,
		Player1Pairs: m.player1Pairs,
		Player2Pairs: m.player2Pairs,
		Outcome:      m.outcome,
		Winner:       m.winner,
		Started:      m.started,
		Over:         m.over,
	}
}
