// Package api provides the HTTP REST API of the memo game server.
//
// Multiplayer moves travel over the real-time transports. The REST API covers
// everything around them:
//
// Live Sessions:
//   - GET /api/sessions - List live multiplayer sessions
//   - GET /api/sessions/{id} - Get one session and its state
//
// Results:
//   - GET /api/results?player=&mode=&page=&limit= - Finished games, newest first
//   - GET /api/results/{id} - One finished game
//   - GET /api/leaderboard?pairs=8 - Win ranking for one board size
//
// Presets:
//   - GET /api/presets - List board presets
//   - GET /api/presets/{name} - Get one preset
//
// Single Player (Authorization: Bearer <token>):
//   - POST /api/solo - Start a timed game, body {"preset":"easy"} or {"pairs":6}
//   - GET /api/solo/{id} - Get a game
//   - POST /api/solo/{id}/flip - Flip a card, body {"index":3}
//   - DELETE /api/solo/{id} - Abandon a game
//
// Other:
//   - POST /api/auth/logout - Revoke the bearer token
//   - GET /api/health - Liveness and websocket occupancy
//   - GET /ws - WebSocket upgrade, ?game=<id> to spectate
//
// Errors are returned as {"error": "..."} with a status derived from the
// service error: 400 for bad input, 401 and 403 for token problems, 404 for
// unknown ids.
//
// Usage:
//
//	server := api.NewServer(gameService, hub)
//	http.ListenAndServe(":8080", server)
package api
