package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/service"
	"github.com/wricardo/memo-game/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memo Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memo Game - MCP Interface

This is a read-only client that proxies all requests to the REST API server.
Games themselves are played over the websocket or NATS transports.

AVAILABLE TOOLS:
- list_sessions: List live multiplayer sessions
- get_session: Get one session with its board
- list_results: Browse finished games, newest first
- leaderboard: Win ranking for a board size
- list_presets: List board presets
- game_rules: Get the rules of the game`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live multiplayer sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get a live session with its players, scores and board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List finished games, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Only games this player id took part in",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{session.ModeMultiplayer, session.ModeSolo},
					"description": "Only games of this mode",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Rank players by multiplayer wins for one board size",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pairs": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Number of pairs on the board (%d-%d)", engine.MinPairs, engine.MaxPairs),
				},
			},
			Required: []string{"pairs"},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available board presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of the memo game and its protocol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (%s, %d pairs, %s vs %s, Created: %s)\n",
			s.ID, s.Pool, s.State.Pairs,
			orWaiting(s.Player1Name), orWaiting(s.Player2Name),
			s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if player, ok := args["player"].(string); ok && player != "" {
		params.Set("player", player)
	}
	if mode, ok := args["mode"].(string); ok && mode != "" {
		params.Set("mode", mode)
	}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	path := "/api/results"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page service.ResultsPage
	if err := c.apiCall(ctx, "GET", path, nil, &page); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResults(&page)), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pairs, ok := arguments(request)["pairs"].(float64)
	if !ok {
		return mcp.NewToolResultError("pairs is required"), nil
	}

	var response struct {
		Pairs   int                        `json:"pairs"`
		Entries []service.LeaderboardEntry `json:"entries"`
	}
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/leaderboard?pairs=%d", int(pairs)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLeaderboard(response.Pairs, response.Entries)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []config.PresetInfo
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, p := range presets {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Pairs: %d, Solo time limit: %ds\n\n",
			p.Name, p.ID, p.Description, p.Pairs, p.TimeLimitSeconds)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Memo Game - Rules

OBJECTIVE:
Find more pairs of matching cards than your opponent.

BOARD:
• A game of N pairs has 2N face-down cards, each value 1..N appearing twice
• Positions are numbered 0..2N-1

TURNS:
• The player on turn flips two cards, one move per card
• A matching pair stays face up and is credited to that player
• The turn passes to the other player after every second flip, match or not
• Flipping an already matched card reveals it and changes nothing

END OF GAME:
• All pairs are matched, or one player holds more than half of the pairs
• More pairs wins, equal pairs is a draw
• Leaving or disconnecting a started game forfeits it to the opponent

PROTOCOL (websocket /ws or NATS subjects):
• {"type":"game.join","token":"...","numOfPairs":8}
• {"type":"game.join","token":"...","wantToPlayWithFriend":true,"friendRoomId":"<id>"}
• {"type":"game.move","token":"...","gameId":"<id>","index":3}
• {"type":"game.leave","token":"..."}

SINGLE PLAYER:
POST /api/solo starts a timed game for the bearer token. Match every pair
before the clock runs out.`

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func orWaiting(name string) string {
	if name == "" {
		return "(waiting)"
	}
	return name
}

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nPool: %s\nCreated: %s\nPlayers: %s vs %s\n\n%s",
		info.ID, info.Pool,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		orWaiting(info.Player1Name), orWaiting(info.Player2Name),
		formatMatchState(&info.State, info.Player1Name, info.Player2Name))
}

func formatMatchState(state *engine.MatchState, name1, name2 string) string {
	if state == nil || len(state.Board) == 0 {
		return "No game state available"
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("Pairs: %d | %s: %d | %s: %d\n",
		state.Pairs, orWaiting(name1), state.Player1Pairs, orWaiting(name2), state.Player2Pairs))

	switch {
	case state.Over:
	case !state.Started:
		result.WriteString("Waiting for a second player\n")
	case !state.Over:
		turn := name2
		if state.Player1Turn {
			turn = name1
		}
		result.WriteString(fmt.Sprintf("Turn: %s\n", orWaiting(turn)))
	}

	result.WriteString("\n")
	result.WriteString(formatBoard(state.Board))

	if state.Over {
		switch state.Outcome {
		case engine.OutcomeDraw:
			result.WriteString("\nGAME OVER: draw")
		case engine.OutcomeWin:
			winner := name2
			if state.Winner == state.Player1 {
				winner = name1
			}
			result.WriteString(fmt.Sprintf("\nGAME OVER: %s wins", orWaiting(winner)))
		default:
			result.WriteString("\nGAME OVER: cancelled")
		}
	}

	return result.String()
}

// formatBoard prints the board in rows of eight, "?" for hidden cards
func formatBoard(board []int) string {
	var result strings.Builder
	for i, v := range board {
		if v == 0 {
			result.WriteString(fmt.Sprintf("%3s", "?"))
		} else {
			result.WriteString(fmt.Sprintf("%3d", v))
		}
		if (i+1)%8 == 0 || i == len(board)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

func formatResults(page *service.ResultsPage) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Results (page %d of %d, %d total):\n\n",
		page.Page, page.TotalPages, page.TotalResults))

	for _, r := range page.Results {
		when := r.FinishedAt.Format("2006-01-02 15:04")
		if r.Mode == session.ModeSolo {
			status := "lost"
			if r.Won {
				status = fmt.Sprintf("won with %ds left", r.TimeRemaining)
			}
			result.WriteString(fmt.Sprintf("- [%s] solo %d pairs, %s (%s)\n", when, r.Pairs, status, r.Player1))
			continue
		}

		status := "cancelled"
		switch r.Outcome {
		case engine.OutcomeDraw:
			status = "draw"
		case engine.OutcomeWin:
			status = "winner " + r.Winner.String()
		}
		result.WriteString(fmt.Sprintf("- [%s] %d pairs, %d-%d, %s\n",
			when, r.Pairs, r.Player1Pairs, r.Player2Pairs, status))
	}

	if page.HasNext {
		result.WriteString(fmt.Sprintf("\nMore results on page %d", page.Page+1))
	}
	return result.String()
}

func formatLeaderboard(pairs int, entries []service.LeaderboardEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No finished games with %d pairs yet", pairs)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Leaderboard (%d pairs):\n\n", pairs))
	for _, e := range entries {
		result.WriteString(fmt.Sprintf("%2d. %s - %d wins\n", e.Rank, e.UserName, e.Wins))
	}
	return result.String()
}
