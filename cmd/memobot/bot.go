package main

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/service"
)

// memory is the bot's view of one game: every card value it has seen and
// which positions are already matched
type memory struct {
	self    uuid.UUID
	seen    map[int]int
	matched []bool
	pending int // first card of our current turn, -1 when none
	rng     *rand.Rand
}

func newMemory(self uuid.UUID, rng *rand.Rand) *memory {
	return &memory{
		self:    self,
		seen:    make(map[int]int),
		pending: -1,
		rng:     rng,
	}
}

// observe folds a broadcast into the memory
func (m *memory) observe(msg *service.Message) {
	if len(msg.Board) > 0 {
		if len(m.matched) != len(msg.Board) {
			m.matched = make([]bool, len(msg.Board))
		}
		for i, v := range msg.Board {
			if v != nil {
				m.matched[i] = true
				delete(m.seen, i)
			}
		}
	}

	for idx, value := range msg.LastMove {
		if idx >= 0 && idx < len(m.matched) && !m.matched[idx] {
			m.seen[idx] = value
		}
	}

	m.pending = -1
	if len(msg.LastMove) == 1 && m.myTurn(msg) {
		for idx := range msg.LastMove {
			m.pending = idx
		}
	}
}

// myTurn reports whether msg hands the turn to the bot
func (m *memory) myTurn(msg *service.Message) bool {
	if !msg.GameStarted || msg.GameOver || msg.Turn == "" {
		return false
	}
	switch {
	case msg.Player1 != nil && *msg.Player1 == m.self:
		return msg.Turn == msg.Player1Name
	case msg.Player2 != nil && *msg.Player2 == m.self:
		return msg.Turn == msg.Player2Name
	}
	return false
}

// next picks the position to flip. It completes a known pair when it can
// and otherwise explores a card it has not seen.
func (m *memory) next() int {
	if m.pending >= 0 {
		want, known := m.seen[m.pending]
		if known {
			for idx, v := range m.seen {
				if idx != m.pending && v == want {
					return idx
				}
			}
		}
		return m.explore(m.pending)
	}

	byValue := make(map[int]int)
	for idx, v := range m.seen {
		if other, ok := byValue[v]; ok {
			return min(idx, other)
		}
		byValue[v] = idx
	}
	return m.explore(-1)
}

// explore returns a random unseen and unmatched position other than skip,
// falling back to any unmatched one
func (m *memory) explore(skip int) int {
	var unseen, open []int
	for idx, done := range m.matched {
		if done || idx == skip {
			continue
		}
		open = append(open, idx)
		if _, ok := m.seen[idx]; !ok {
			unseen = append(unseen, idx)
		}
	}

	switch {
	case len(unseen) > 0:
		return unseen[m.rng.IntN(len(unseen))]
	case len(open) > 0:
		return open[m.rng.IntN(len(open))]
	default:
		return 0
	}
}
