// Package mcp provides a Model Context Protocol server for the memo game.
//
// The server is a thin client of the REST API: every tool issues one HTTP
// request and renders the response as text for an AI agent.
//
// MCP Tools:
//   - list_sessions: List live multiplayer sessions
//   - get_session: One session with players, scores and the board
//   - list_results: Finished games with player and mode filters
//   - leaderboard: Win ranking for a board size
//   - list_presets: Board presets and their solo time limits
//   - game_rules: Rules and protocol summary
//
// Transport Modes:
//   - Stdio: the server binary started with -mode stdio-mcp
//   - HTTP: the /mcp endpoint of the game server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
