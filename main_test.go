package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/session"
	"github.com/wricardo/memo-game/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Memo Game Server" {
		t.Errorf("Expected app name %s, got %s", "Memo Game Server", AppName)
	}
}

// withFlags points the directory flags at temporary locations for one test
func withFlags(t *testing.T) {
	t.Helper()

	origConfig, origResults, origUsers, origSecret, origRedis := *configDir, *resultsDir, *usersFile, *jwtSecret, *redisURL
	origPreset := *presetName
	t.Cleanup(func() {
		*configDir, *resultsDir, *usersFile, *jwtSecret, *redisURL = origConfig, origResults, origUsers, origSecret, origRedis
		*presetName = origPreset
	})

	*configDir = t.TempDir()
	*resultsDir = t.TempDir()
	*usersFile = ""
	*jwtSecret = "main-test"
	*redisURL = ""
	*presetName = ""
	t.Setenv("REDIS_URL", "")
}

func TestInitializeServices(t *testing.T) {
	withFlags(t)

	svcs, err := initializeServices()
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.close()

	if svcs.game == nil || svcs.solo == nil || svcs.tokens == nil {
		t.Fatal("Expected all services to be initialized")
	}
	if _, ok := svcs.results.(*session.FilePersistence); !ok {
		t.Errorf("Expected file result store without a redis URL, got %T", svcs.results)
	}

	// the secret flag is used for signing
	token, err := svcs.tokens.Issue(uuid.New(), "Alice")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if !svcs.tokens.IsValid(token) {
		t.Error("Issued token should be valid")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	withFlags(t)
	*configDir = "/non/existent/path"

	if _, err := initializeServices(); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_UnknownDefaultPreset(t *testing.T) {
	withFlags(t)
	*presetName = "nope"

	if _, err := initializeServices(); err == nil {
		t.Error("Expected error for an unknown default preset")
	}
}

func TestInitializeServices_UsersFile(t *testing.T) {
	withFlags(t)

	id := uuid.New()
	path := t.TempDir() + "/users.json"
	if err := os.WriteFile(path, []byte(`[{"id":"`+id.String()+`","name":"Carol"}]`), 0644); err != nil {
		t.Fatalf("Failed to write users file: %v", err)
	}
	*usersFile = path

	svcs, err := initializeServices()
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.close()

	*usersFile = t.TempDir() + "/broken.json"
	os.WriteFile(*usersFile, []byte("{"), 0644)
	if _, err := initializeServices(); err == nil {
		t.Error("Expected error for a malformed users file")
	}
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}

	if *host == "" {
		t.Error("Host should have a default value")
	}

	if *configDir == "" {
		t.Error("Config directory should have a default value")
	}

	if *resultsDir == "" {
		t.Error("Results directory should have a default value")
	}
}

func TestFlagOrEnv(t *testing.T) {
	t.Setenv("MEMO_TEST_A", "")
	t.Setenv("MEMO_TEST_B", "from-b")

	if got := flagOrEnv("flag", "MEMO_TEST_B"); got != "flag" {
		t.Errorf("Flag value should win, got %q", got)
	}
	if got := flagOrEnv("", "MEMO_TEST_A", "MEMO_TEST_B"); got != "from-b" {
		t.Errorf("Expected first non-empty env var, got %q", got)
	}
	if got := flagOrEnv("", "MEMO_TEST_A"); got != "" {
		t.Errorf("Expected empty value, got %q", got)
	}
}

func TestStartNATSBridgeDisabled(t *testing.T) {
	orig := *natsURL
	defer func() { *natsURL = orig }()
	*natsURL = ""
	t.Setenv("NATS_URL", "")

	if bridge := startNATSBridge(nil); bridge != nil {
		t.Error("Bridge should not start without a NATS URL")
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0"))

	req := httptest.NewRequest("GET", "/mcp", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for GET, got %d", w.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	req = httptest.NewRequest("POST", "/mcp", bytes.NewBufferString(body))
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "leaderboard") {
		t.Errorf("Expected tool list to contain leaderboard, got %s", w.Body.String())
	}
}
