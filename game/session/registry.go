package session

import (
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/engine"
)

// Registry pairs players into multiplayer sessions. It keeps a random pool
// (FIFO matchmaking by pair count), a friend pool (joined by session id) and
// a reverse index from player to session. A player belongs to at most one
// session across both pools.
//
// Lock order is always registry then session. No I/O happens under the
// registry lock.
type Registry struct {
	sessions map[uuid.UUID]*Session
	random   []*Session
	friend   map[uuid.UUID]*Session
	players  map[uuid.UUID]*Session
	store    ResultStore
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry without persistence
func NewRegistry() *Registry {
	return NewRegistryWithStore(nil)
}

// NewRegistryWithStore creates an empty registry that saves finished,
// started sessions to store
func NewRegistryWithStore(store ResultStore) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		friend:   make(map[uuid.UUID]*Session),
		players:  make(map[uuid.UUID]*Session),
		store:    store,
	}
}

// JoinRandom returns the player's live session if there is one, otherwise
// seats the player in the oldest waiting random session with the same pair
// count, otherwise creates a new one. It returns nil on invalid input.
func (r *Registry) JoinRandom(player uuid.UUID, pairs int) *Session {
	if player == uuid.Nil || pairs < engine.MinPairs || pairs > engine.MaxPairs {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.liveSessionLocked(player); s != nil {
		return s
	}

	for _, s := range r.random {
		if s.waiting(pairs) && s.seat(player) {
			r.players[player] = s
			log.Printf("[registry] player %s joined random session %s", player, s.id)
			return s
		}
	}

	s := r.createLocked(player, pairs, PoolRandom)
	if s != nil {
		r.random = append(r.random, s)
	}
	return s
}

// JoinWithFriend returns the player's live session if there is one. With a
// room, it seats the player in that friend session and returns nil when the
// room is unknown or full. Without a room, it creates a new friend session
// whose id serves as the invite code.
func (r *Registry) JoinWithFriend(player uuid.UUID, pairs int, room *uuid.UUID) *Session {
	if player == uuid.Nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.liveSessionLocked(player); s != nil {
		return s
	}

	if room != nil {
		s, ok := r.friend[*room]
		if !ok || !s.seat(player) {
			return nil
		}
		r.players[player] = s
		log.Printf("[registry] player %s joined friend session %s", player, s.id)
		return s
	}

	if pairs < engine.MinPairs || pairs > engine.MaxPairs {
		return nil
	}

	s := r.createLocked(player, pairs, PoolFriend)
	if s != nil {
		r.friend[s.id] = s
	}
	return s
}

// Leave removes player from their session. It returns nil when the player
// has none. When the departure ends the session it is removed from its pool
// and, if it had started, persisted.
func (r *Registry) Leave(player uuid.UUID) (*Session, engine.MatchState) {
	r.mu.Lock()
	s, ok := r.players[player]
	if !ok {
		r.mu.Unlock()
		return nil, engine.MatchState{}
	}

	state := s.leave(player)
	delete(r.players, player)

	removed := false
	if state.Over {
		removed = r.removeLocked(s, state)
	}
	r.mu.Unlock()

	log.Printf("[registry] player %s left session %s (over=%v)", player, s.id, state.Over)

	if removed && state.Started {
		r.persist(state)
	}
	return s, state
}

// Finish removes a session that ended through play and persists it. It is
// a no-op for sessions already removed or not yet over.
func (r *Registry) Finish(s *Session) {
	if s == nil {
		return
	}

	r.mu.Lock()
	state := s.State()
	removed := false
	if state.Over {
		removed = r.removeLocked(s, state)
	}
	r.mu.Unlock()

	if removed && state.Started {
		r.persist(state)
	}
}

// Remove drops a session without persisting it. Removing an unknown session
// is a no-op.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	return r.removeLocked(s, s.State())
}

// LookupByID returns a live session by id
func (r *Registry) LookupByID(id uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// LookupByPlayer returns the session the player belongs to
func (r *Registry) LookupByPlayer(player uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[player]
}

// List returns all live sessions, oldest first
func (r *Registry) List() []*Session {
	r.mu.RLock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].createdAt.Before(result[j].createdAt)
	})
	return result
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// liveSessionLocked returns the player's session unless it has already ended
func (r *Registry) liveSessionLocked(player uuid.UUID) *Session {
	s, ok := r.players[player]
	if !ok || s.State().Over {
		return nil
	}
	return s
}

func (r *Registry) createLocked(player uuid.UUID, pairs int, pool Pool) *Session {
	match, err := engine.NewMatch(pairs, player, uuid.Nil)
	if err != nil {
		return nil
	}

	s := newSession(match, pool)
	r.sessions[s.id] = s
	r.players[player] = s
	log.Printf("[registry] player %s created %s session %s with %d pairs", player, pool, s.id, pairs)
	return s
}

// removeLocked drops s from every index and reports whether it was present
func (r *Registry) removeLocked(s *Session, state engine.MatchState) bool {
	if _, ok := r.sessions[s.id]; !ok {
		return false
	}

	delete(r.sessions, s.id)
	delete(r.friend, s.id)
	for i, rs := range r.random {
		if rs == s {
			r.random = append(r.random[:i], r.random[i+1:]...)
			break
		}
	}
	for _, p := range []uuid.UUID{state.Player1, state.Player2} {
		if p != uuid.Nil && r.players[p] == s {
			delete(r.players, p)
		}
	}
	return true
}

func (r *Registry) persist(state engine.MatchState) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(RecordFromMatch(state)); err != nil {
		log.Printf("Warning: Failed to persist session %s: %v", state.ID, err)
	}
}
