package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Board holds the shuffled card layout and matched flags for one game
type Board struct {
	id      uuid.UUID
	values  []int
	matched []bool
	pending int
	lastEq  bool
}

// NewBoard creates a shuffled board with values 1..pairs, each appearing twice
func NewBoard(pairs int) (*Board, error) {
	if pairs < MinPairs {
		return nil, fmt.Errorf("%w: number of pairs must be positive, got %d", ErrInvalidArgument, pairs)
	}

	values := make([]int, 0, pairs*2)
	for v := 1; v <= pairs; v++ {
		values = append(values, v, v)
	}

	// Fisher-Yates
	for i := len(values) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}

	return newBoard(values), nil
}

// NewBoardFromValues creates a board with a fixed layout. Every value in
// 1..len(values)/2 must appear exactly twice.
func NewBoardFromValues(values []int) (*Board, error) {
	if len(values) == 0 || len(values)%2 != 0 {
		return nil, fmt.Errorf("%w: board must hold a positive even number of cards", ErrInvalidArgument)
	}

	pairs := len(values) / 2
	counts := make(map[int]int, pairs)
	for _, v := range values {
		if v < 1 || v > pairs {
			return nil, fmt.Errorf("%w: card value %d outside 1..%d", ErrInvalidArgument, v, pairs)
		}
		counts[v]++
	}
	for v, n := range counts {
		if n != 2 {
			return nil, fmt.Errorf("%w: card value %d appears %d times", ErrInvalidArgument, v, n)
		}
	}

	return newBoard(append([]int(nil), values...)), nil
}

func newBoard(values []int) *Board {
	return &Board{
		id:      uuid.New(),
		values:  values,
		matched: make([]bool, len(values)),
		pending: NoPending,
	}
}

// FlipOne reveals the card at index. The first flip of a pair records it as
// pending; the second compares both cards and resolves the pair.
func (b *Board) FlipOne(index int) (Flip, error) {
	if index < 0 || index >= len(b.values) {
		return Flip{}, fmt.Errorf("%w: index %d for board of %d cards", ErrIndexOutOfRange, index, len(b.values))
	}

	if b.pending == NoPending {
		b.pending = index
		b.lastEq = false
		return Flip{Cards: []Card{{Index: index, Value: b.values[index]}}}, nil
	}

	if b.pending == index {
		return Flip{}, fmt.Errorf("%w: index %d is already flipped", ErrInvalidArgument, index)
	}

	first := b.pending
	b.lastEq = b.values[first] == b.values[index]
	if b.lastEq {
		b.matched[first] = true
		b.matched[index] = true
	}
	b.pending = NoPending

	return Flip{
		Cards: []Card{
			{Index: first, Value: b.values[first]},
			{Index: index, Value: b.values[index]},
		},
		Completed: true,
		Matched:   b.lastEq,
	}, nil
}

// ID returns the board identifier
func (b *Board) ID() uuid.UUID {
	return b.id
}

// Pairs returns the number of pairs on the board
func (b *Board) Pairs() int {
	return len(b.values) / 2
}

// Len returns the number of cards
func (b *Board) Len() int {
	return len(b.values)
}

// PublicBoard returns the board as players may see it, with 0 for unmatched cards
func (b *Board) PublicBoard() []int {
	public := make([]int, len(b.values))
	for i, v := range b.values {
		if b.matched[i] {
			public[i] = v
		}
	}
	return public
}

// PreviousPairEqual reports whether the last resolved pair matched
func (b *Board) PreviousPairEqual() bool {
	return b.lastEq
}

// Pending returns the index of the first card of an unresolved pair
func (b *Board) Pending() (int, bool) {
	return b.pending, b.pending != NoPending
}

// IsMatched reports whether the card at index has been matched
func (b *Board) IsMatched(index int) bool {
	if index < 0 || index >= len(b.matched) {
		return false
	}
	return b.matched[index]
}

// MatchedPairs returns how many pairs have been found
func (b *Board) MatchedPairs() int {
	n := 0
	for _, m := range b.matched {
		if m {
			n++
		}
	}
	return n / 2
}

// AllMatched reports whether every card has been matched
func (b *Board) AllMatched() bool {
	for _, m := range b.matched {
		if !m {
			return false
		}
	}
	return true
}

// Values returns a copy of the full layout. Used for persistence and tests.
func (b *Board) Values() []int {
	return append([]int(nil), b.values...)
}
