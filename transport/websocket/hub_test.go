package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/memo-game/auth"
	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/service"
	"github.com/wricardo/memo-game/game/session"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.topics == nil {
		t.Error("Hub topics map is nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil || hub.subscribe == nil {
		t.Error("Hub channels must be initialized")
	}
}

func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, 256)}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	plain := newTestClient(hub)
	hub.registerClient(plain)
	if !hub.clients[plain] {
		t.Error("Client was not registered")
	}
	if len(hub.topics) != 0 {
		t.Errorf("Expected no topics, got %d", len(hub.topics))
	}

	spectator := newTestClient(hub)
	spectator.topic = "game.x"
	hub.registerClient(spectator)
	if !hub.topics["game.x"][spectator] {
		t.Error("Spectator was not subscribed to its topic")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := newTestClient(hub)
	client.topic = "game.x"
	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.topics["game.x"]; exists {
		t.Error("Topic should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// unregistering twice must not panic on the closed channel
	hub.unregisterClient(client)
}

func TestHubSubscribeClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub)
	hub.registerClient(client)

	hub.subscribeClient(client, "game.a")
	if !hub.topics["game.a"][client] {
		t.Fatal("Client should follow game.a")
	}

	hub.subscribeClient(client, "game.b")
	if _, exists := hub.topics["game.a"]; exists {
		t.Error("Moving to another topic should leave the previous one")
	}
	if !hub.topics["game.b"][client] {
		t.Error("Client should follow game.b")
	}

	hub.subscribeClient(client, "")
	if len(hub.topics) != 0 {
		t.Errorf("Expected no topics after unsubscribe, got %d", len(hub.topics))
	}

	// unknown clients are ignored
	hub.subscribeClient(newTestClient(hub), "game.c")
	if _, exists := hub.topics["game.c"]; exists {
		t.Error("Unregistered client must not create a topic")
	}
}

func TestHubDeliver(t *testing.T) {
	hub := NewHub(nil)
	a, b, other := newTestClient(hub), newTestClient(hub), newTestClient(hub)
	for _, c := range []*Client{a, b, other} {
		hub.registerClient(c)
	}
	hub.subscribeClient(a, "game.1")
	hub.subscribeClient(b, "game.1")
	hub.subscribeClient(other, "game.2")

	hub.deliver(&envelope{topic: "game.1", data: []byte("state")})
	if len(a.send) != 1 || len(b.send) != 1 {
		t.Error("Both subscribers of game.1 should receive the message")
	}
	if len(other.send) != 0 {
		t.Error("Subscriber of game.2 should not receive the message")
	}

	hub.deliver(&envelope{client: other, data: []byte("reply")})
	if len(other.send) != 1 {
		t.Error("Direct reply should reach its client")
	}
	if len(a.send) != 1 {
		t.Error("Direct reply should not reach other clients")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.registerClient(slow)
	hub.subscribeClient(slow, "game.1")

	hub.deliver(&envelope{topic: "game.1", data: []byte("one")})
	hub.deliver(&envelope{topic: "game.1", data: []byte("two")})

	if hub.clients[slow] {
		t.Error("Client with a full send buffer should be dropped")
	}
}

type testServer struct {
	server *httptest.Server
	tokens *auth.TokenService
	hub    *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	tokens, err := auth.NewTokenService("hub-test", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}

	svc := service.NewGameService(service.Deps{
		Registry: session.NewRegistry(),
		Solo:     session.NewSoloStore(nil),
		Configs:  configs,
		Tokens:   tokens,
		Names:    auth.NewDirectory(),
	})
	hub := NewHub(svc)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testServer{server: server, tokens: tokens, hub: hub}
}

func (ts *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (ts *testServer) token(t *testing.T, name string) string {
	t.Helper()
	token, err := ts.tokens.Issue(uuid.New(), name)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

func send(t *testing.T, conn *websocket.Conn, req service.Request) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) service.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg service.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

func TestWebSocketMatch(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.dial(t, ""), ts.dial(t, "")
	aliceToken, bobToken := ts.token(t, "Alice"), ts.token(t, "Bob")

	send(t, alice, service.Request{Type: service.TypeJoin, Token: aliceToken, NumOfPairs: 1})
	joined := receive(t, alice)
	if joined.Type != service.TypeJoined {
		t.Fatalf("Expected %s, got %s (%s)", service.TypeJoined, joined.Type, joined.Content)
	}
	if joined.GameStarted {
		t.Error("Game should wait for a second player")
	}
	gameID := *joined.GameID

	send(t, bob, service.Request{Type: service.TypeJoin, Token: bobToken, NumOfPairs: 1})
	if msg := receive(t, bob); msg.Type != service.TypeJoined || !msg.GameStarted {
		t.Fatalf("Bob should receive the started game, got %+v", msg)
	}
	if msg := receive(t, alice); msg.Type != service.TypeJoined || msg.Player2Name != "Bob" {
		t.Fatalf("Alice should be told Bob joined, got %+v", msg)
	}

	send(t, alice, service.Request{Type: service.TypeMove, Token: aliceToken, GameID: gameID.String(), Index: 0})
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := receive(t, conn)
		if msg.Type != service.TypeMoved {
			t.Fatalf("Expected %s, got %s", service.TypeMoved, msg.Type)
		}
		if msg.LastMove[0] != 1 {
			t.Errorf("Expected last move {0:1}, got %v", msg.LastMove)
		}
	}

	send(t, alice, service.Request{Type: service.TypeMove, Token: aliceToken, GameID: gameID.String(), Index: 1})
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := receive(t, conn)
		if msg.Type != service.TypeGameOver {
			t.Fatalf("Expected %s, got %s", service.TypeGameOver, msg.Type)
		}
		if msg.Winner == nil || *msg.Winner != "Alice" {
			t.Errorf("Expected Alice to win, got %v", msg.Winner)
		}
	}
}

func TestWebSocketDisconnectForfeits(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.dial(t, ""), ts.dial(t, "")

	send(t, alice, service.Request{Type: service.TypeJoin, Token: ts.token(t, "Alice"), NumOfPairs: 4})
	joined := receive(t, alice)
	send(t, bob, service.Request{Type: service.TypeJoin, Token: ts.token(t, "Bob"), NumOfPairs: 4})
	receive(t, bob)
	receive(t, alice)

	spectator := ts.dial(t, "?game="+joined.GameID.String())
	// wait until the spectator is registered
	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.Stats().Clients < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	bob.Close()

	for _, conn := range []*websocket.Conn{alice, spectator} {
		msg := receive(t, conn)
		if msg.Type != service.TypeGameOver {
			t.Fatalf("Expected %s after disconnect, got %s", service.TypeGameOver, msg.Type)
		}
		if msg.Winner == nil || *msg.Winner != "Alice" {
			t.Errorf("Remaining player should win, got %v", msg.Winner)
		}
	}
}

func TestWebSocketErrors(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if msg := receive(t, conn); msg.Content != service.ContentBadParams {
		t.Errorf("Expected %q, got %q", service.ContentBadParams, msg.Content)
	}

	send(t, conn, service.Request{Type: service.TypeJoin, Token: "bogus", NumOfPairs: 4})
	msg := receive(t, conn)
	if msg.Type != service.TypeError || msg.Content != service.ContentUnauthorized {
		t.Errorf("Expected Unauthorized error, got %+v", msg)
	}

	raw, _ := json.Marshal(msg)
	if !strings.Contains(string(raw), `"gameId":null`) {
		t.Errorf("Error frames should carry a null gameId, got %s", raw)
	}
}
