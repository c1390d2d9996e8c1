package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/session"
)

// Leaderboard ranks every player of finished multiplayer games on a board
// of the given size by wins. Ranks are dense.
func (s *gameServiceImpl) Leaderboard(ctx context.Context, pairs int) ([]*LeaderboardEntry, error) {
	if pairs < engine.MinPairs || pairs > engine.MaxPairs {
		return nil, fmt.Errorf("%w: pairs must be between %d and %d", ErrInvalidRequest, engine.MinPairs, engine.MaxPairs)
	}

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}

	wins := make(map[uuid.UUID]int)
	for _, r := range records {
		if r.Mode != session.ModeMultiplayer || r.Pairs != pairs {
			continue
		}
		for _, p := range []uuid.UUID{r.Player1, r.Player2} {
			if _, seen := wins[p]; !seen && p != uuid.Nil {
				wins[p] = 0
			}
		}
		if r.Outcome == engine.OutcomeWin && r.Winner != uuid.Nil {
			wins[r.Winner]++
		}
	}

	entries := make([]*LeaderboardEntry, 0, len(wins))
	for id, n := range wins {
		entries = append(entries, &LeaderboardEntry{
			PlayerID: id.String(),
			UserName: s.nameOf(id),
			Wins:     n,
		})
	}
	rankEntries(entries)
	return entries, nil
}

// rankEntries sorts by wins descending and assigns dense ranks
func rankEntries(entries []*LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		if entries[i].UserName != entries[j].UserName {
			return entries[i].UserName < entries[j].UserName
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})

	rank := 0
	for i, e := range entries {
		if i == 0 || e.Wins != entries[i-1].Wins {
			rank++
		}
		e.Rank = rank
	}
}
