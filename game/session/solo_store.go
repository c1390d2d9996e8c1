package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/engine"
)

type soloEntry struct {
	game       *engine.Solo
	finishedAt time.Time
}

// SoloStore keeps single-player games in memory until they are cleaned up.
// Finished games are saved to the result store when they end.
type SoloStore struct {
	games map[uuid.UUID]*soloEntry
	store ResultStore
	mu    sync.RWMutex
}

// NewSoloStore creates an empty solo game store
func NewSoloStore(store ResultStore) *SoloStore {
	return &SoloStore{
		games: make(map[uuid.UUID]*soloEntry),
		store: store,
	}
}

// Create starts a new single-player game for player
func (ss *SoloStore) Create(player uuid.UUID, pairs int, limit time.Duration) (*engine.Solo, error) {
	if player == uuid.Nil {
		return nil, fmt.Errorf("%w: player is required", engine.ErrInvalidArgument)
	}
	if pairs > engine.MaxPairs {
		return nil, fmt.Errorf("%w: at most %d pairs", engine.ErrInvalidArgument, engine.MaxPairs)
	}

	game, err := engine.NewSolo(pairs, player, limit, ss.ended)
	if err != nil {
		return nil, fmt.Errorf("failed to create solo game: %w", err)
	}

	ss.mu.Lock()
	entry := &soloEntry{game: game}
	ss.games[game.ID()] = entry
	// the countdown may already have fired
	if game.Over() && entry.finishedAt.IsZero() {
		entry.finishedAt = time.Now()
	}
	ss.mu.Unlock()

	log.Printf("[solo] player %s started game %s with %d pairs", player, game.ID(), pairs)
	return game, nil
}

// Get retrieves a game by id
func (ss *SoloStore) Get(id uuid.UUID) (*engine.Solo, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	entry, ok := ss.games[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.game, nil
}

// Delete ends a game if it is still running and forgets it
func (ss *SoloStore) Delete(id uuid.UUID) error {
	ss.mu.RLock()
	entry, ok := ss.games[id]
	ss.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.game.Leave()

	ss.mu.Lock()
	delete(ss.games, id)
	ss.mu.Unlock()
	return nil
}

// List returns all games held in memory
func (ss *SoloStore) List() []*engine.Solo {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	result := make([]*engine.Solo, 0, len(ss.games))
	for _, entry := range ss.games {
		result = append(result, entry.game)
	}
	return result
}

// Count returns the number of games held in memory
func (ss *SoloStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.games)
}

// CleanupFinished forgets games that ended more than maxAge ago
func (ss *SoloStore) CleanupFinished(maxAge time.Duration) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, entry := range ss.games {
		if !entry.finishedAt.IsZero() && entry.finishedAt.Before(cutoff) {
			delete(ss.games, id)
			removed++
		}
	}

	return removed
}

// StopAll cancels every running countdown. Used on shutdown.
func (ss *SoloStore) StopAll() {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	for _, entry := range ss.games {
		entry.game.Stop()
	}
}

// ended runs once per game, from Flip, Leave or the countdown goroutine
func (ss *SoloStore) ended(state engine.SoloState) {
	ss.mu.Lock()
	if entry, ok := ss.games[state.ID]; ok {
		entry.finishedAt = time.Now()
	}
	ss.mu.Unlock()

	log.Printf("[solo] game %s over (won=%v, %ds left)", state.ID, state.Won, state.TimeRemaining)

	if ss.store == nil {
		return
	}
	if err := ss.store.Save(RecordFromSolo(state)); err != nil {
		log.Printf("Warning: Failed to persist solo game %s: %v", state.ID, err)
	}
}
