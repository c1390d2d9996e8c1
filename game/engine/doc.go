// Package engine provides the core game logic for the Memo pairs game.
//
// The engine package implements the game mechanics including:
//   - Shuffled boards where every value appears exactly twice
//   - The two-card flip protocol and matched-card tracking
//   - Two-player turn ownership, pair tallies and win/draw/forfeit resolution
//   - Single-player games against a countdown timer
//
// Core Types:
//
// Board owns the card layout and implements the flip protocol. Match wraps a
// Board with two player slots and decides when a two-player game ends. Solo
// wraps a Board with a countdown and reports the end of the game through a
// callback. Both games compose a Board; neither extends the other.
//
// Usage:
//
//	match, err := engine.NewMatch(8, alice, uuid.Nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	match.Seat(bob)
//	match.Start()
//
//	cards, err := match.Flip(alice, 3)
//	state := match.State()
//
// Game Rules:
//
// Players take turns revealing two cards. A matching pair stays face up and
// is credited to the player who revealed it; either way the turn then passes
// to the opponent. The game ends when every pair is found or one player holds
// more than half of the pairs. The player with more pairs wins, otherwise the
// game is a draw. Leaving a started game forfeits it.
//
// Concurrency:
//
// Board and Match are plain values and must be serialized by the caller.
// Solo guards its own state because its timer fires concurrently.
package engine
