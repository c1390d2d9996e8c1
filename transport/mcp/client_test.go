package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/service"
	"github.com/wricardo/memo-game/game/session"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "healthy"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/health", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", response["status"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api/sessions/x", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 404 response")
	}
	if err.Error() != "session not found" {
		t.Errorf("Expected API error message, got %v", err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestClient_ListSessions(t *testing.T) {
	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 1,
			"sessions": []service.SessionInfo{{
				ID:          id.String(),
				Pool:        "random",
				CreatedAt:   time.Now(),
				Player1Name: "Alice",
				State:       engine.MatchState{Pairs: 8},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleListSessions(context.Background(), callTool("list_sessions", nil))
	if err != nil {
		t.Fatalf("list_sessions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Live Sessions (1)", id.String(), "Alice vs (waiting)", "8 pairs"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_GetSession(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/sessions/") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:          strings.TrimPrefix(r.URL.Path, "/api/sessions/"),
			Pool:        "friend",
			Player1Name: "Alice",
			Player2Name: "Bob",
			State: engine.MatchState{
				Pairs:        2,
				Board:        []int{1, 0, 1, 0},
				Player1:      p1,
				Player2:      p2,
				Player1Turn:  false,
				Player1Pairs: 1,
				Started:      true,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleGetSession(context.Background(), callTool("get_session", map[string]interface{}{"session_id": "abc"}))
	if err != nil {
		t.Fatalf("get_session failed: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"Session: abc", "Alice: 1", "Turn: Bob", "  1  ?  1  ?"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}

	result, _ = client.handleGetSession(context.Background(), callTool("get_session", map[string]interface{}{}))
	if !result.IsError {
		t.Error("Expected an error result without session_id")
	}
}

func TestClient_ListResults(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(service.ResultsPage{
			Results: []*session.GameRecord{
				{ID: "a", Mode: session.ModeMultiplayer, Pairs: 4, Outcome: engine.OutcomeDraw, Player1Pairs: 2, Player2Pairs: 2},
				{ID: "b", Mode: session.ModeSolo, Pairs: 3, Won: true, TimeRemaining: 12},
			},
			TotalResults: 3,
			Page:         1,
			TotalPages:   2,
			HasNext:      true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleListResults(context.Background(), callTool("list_results", map[string]interface{}{
		"mode":  "solo",
		"page":  float64(1),
		"limit": float64(2),
	}))
	if err != nil {
		t.Fatalf("list_results failed: %v", err)
	}

	if !strings.Contains(query, "mode=solo") || !strings.Contains(query, "limit=2") {
		t.Errorf("Expected query parameters to be forwarded, got %q", query)
	}

	text := resultText(t, result)
	for _, want := range []string{"page 1 of 2", "2-2, draw", "won with 12s left", "page 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_Leaderboard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pairs") != "8" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "pairs query parameter is required"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"pairs": 8,
			"entries": []service.LeaderboardEntry{
				{Rank: 1, UserName: "Alice", Wins: 3},
				{Rank: 2, UserName: "Bob", Wins: 1},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleLeaderboard(context.Background(), callTool("leaderboard", map[string]interface{}{"pairs": float64(8)}))
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, " 1. Alice - 3 wins") || !strings.Contains(text, " 2. Bob - 1 wins") {
		t.Errorf("Unexpected leaderboard output: %s", text)
	}

	result, _ = client.handleLeaderboard(context.Background(), callTool("leaderboard", map[string]interface{}{}))
	if !result.IsError {
		t.Error("Expected an error result without pairs")
	}
}

func TestClient_ListPresets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]config.PresetInfo{
			{ID: "easy", Filename: "easy.json", Preset: config.Preset{Name: "Easy", Description: "Four pairs", Pairs: 4, TimeLimitSeconds: 60}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleListPresets(context.Background(), callTool("list_presets", nil))
	if err != nil {
		t.Fatalf("list_presets failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Easy (easy)") || !strings.Contains(text, "Pairs: 4, Solo time limit: 60s") {
		t.Errorf("Unexpected presets output: %s", text)
	}
}

func TestClient_GameRules(t *testing.T) {
	client := NewClient("http://localhost:0")
	result, err := client.handleGameRules(context.Background(), callTool("game_rules", nil))
	if err != nil {
		t.Fatalf("game_rules failed: %v", err)
	}
	if !strings.Contains(resultText(t, result), "game.join") {
		t.Error("Rules should describe the join request")
	}
}

func TestFormatMatchState(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	tests := []struct {
		name  string
		state engine.MatchState
		want  string
	}{
		{
			name:  "waiting",
			state: engine.MatchState{Pairs: 1, Board: []int{0, 0}, Player1: p1},
			want:  "Waiting for a second player",
		},
		{
			name:  "won",
			state: engine.MatchState{Pairs: 1, Board: []int{1, 1}, Player1: p1, Player2: p2, Started: true, Over: true, Outcome: engine.OutcomeWin, Winner: p2},
			want:  "GAME OVER: Bob wins",
		},
		{
			name:  "draw",
			state: engine.MatchState{Pairs: 2, Board: []int{1, 1, 2, 2}, Player1: p1, Player2: p2, Started: true, Over: true, Outcome: engine.OutcomeDraw},
			want:  "GAME OVER: draw",
		},
		{
			name:  "cancelled",
			state: engine.MatchState{Pairs: 2, Board: []int{0, 0, 0, 0}, Player1: p1, Over: true},
			want:  "GAME OVER: cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMatchState(&tt.state, "Alice", "Bob")
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected %q in output, got: %s", tt.want, got)
			}
		})
	}

	if got := formatMatchState(nil, "", ""); got != "No game state available" {
		t.Errorf("Unexpected output for nil state: %s", got)
	}
}

func TestFormatBoard(t *testing.T) {
	board := make([]int, 10)
	board[9] = 5

	got := formatBoard(board)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 rows, got %d: %q", len(lines), got)
	}
	if lines[1] != "  ?  5" {
		t.Errorf("Unexpected second row %q", lines[1])
	}
}
