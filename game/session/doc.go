// Package session provides matchmaking and session management for the Memo
// pairs game.
//
// The session package implements:
//   - Random matchmaking by pair count and friend rooms joined by invite code
//   - One live session per player across both pools
//   - Per-session serialization of moves
//   - Removal and persistence of finished games
//   - In-memory storage of single-player games
//
// Core Types:
//
// Registry owns the random pool, the friend pool and the player index.
// Session wraps one engine.Match with its own mutex. SoloStore holds
// single-player games. ResultStore is implemented by FilePersistence (one
// JSON file per game) and RedisPersistence.
//
// Concurrency:
//
// Joins, leaves and removals are serialized by the registry lock. Moves
// take only the session lock, so games in different sessions never contend.
// When both locks are needed the registry lock is taken first. Results are
// saved after every lock is released.
//
// Usage:
//
//	store, err := session.NewFilePersistence("results")
//	if err != nil {
//		log.Fatal(err)
//	}
//	registry := session.NewRegistryWithStore(store)
//
//	sess := registry.JoinRandom(playerID, 8)
//	cards, state, err := sess.Move(playerID, 3)
//	if state.Over {
//		registry.Finish(sess)
//	}
//
// Lifecycle:
//
// A session is created on a player's first join, started when the second
// player is seated, and removed the moment it is over. Sessions cancelled
// before they started are not persisted.
package session
