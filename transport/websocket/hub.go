package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/memo-game/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Join frames carry a token.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. It is the service.Peer of that
// connection and follows at most one session topic at a time.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string

	mu     sync.Mutex
	gameID uuid.UUID
	player uuid.UUID
	bound  bool
}

type subscription struct {
	client *Client
	topic  string // empty unsubscribes
}

type envelope struct {
	topic  string
	client *Client // set for direct replies
	data   []byte
}

// Hub maintains the set of active clients and fans topic messages out to
// their subscribers. All subscription state is owned by the Run loop.
type Hub struct {
	svc service.GameService

	// Subscribers by topic
	topics map[string]map[*Client]bool

	// Every connected client
	clients map[*Client]bool

	broadcast  chan *envelope
	register   chan *Client
	unregister chan *Client
	subscribe  chan *subscription
	stats      chan chan Stats
}

// Stats is a snapshot of hub occupancy
type Stats struct {
	Clients int `json:"clients"`
	Topics  int `json:"topics"`
}

// NewHub creates a hub dispatching client frames to svc and registers it as
// a broadcaster of svc
func NewHub(svc service.GameService) *Hub {
	h := &Hub{
		svc:        svc,
		topics:     make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *envelope),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan *subscription),
		stats:      make(chan chan Stats),
	}
	if svc != nil {
		svc.AddBroadcaster(h)
	}
	return h
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case sub := <-h.subscribe:
			h.subscribeClient(sub.client, sub.topic)

		case message := <-h.broadcast:
			h.deliver(message)

		case reply := <-h.stats:
			reply <- Stats{Clients: len(h.clients), Topics: len(h.topics)}
		}
	}
}

// ServeWS upgrades the request. A "game" query parameter subscribes the
// connection to that session's topic for spectating.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	if game := r.URL.Query().Get("game"); game != "" {
		if id, err := uuid.Parse(game); err == nil {
			client.topic = service.Topic(id)
		}
	}

	h.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Broadcast sends msg to every subscriber of topic
func (h *Hub) Broadcast(topic string, msg *service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal WebSocket message: %v", err)
		return
	}
	h.broadcast <- &envelope{topic: topic, data: data}
}

// Stats returns the number of connected clients and followed topics
func (h *Hub) Stats() Stats {
	reply := make(chan Stats)
	h.stats <- reply
	return <-reply
}

func (h *Hub) reply(client *Client, msg *service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal WebSocket reply: %v", err)
		return
	}
	h.broadcast <- &envelope{client: client, data: data}
}

// registerClient adds a client and its initial subscription
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	if client.topic != "" {
		h.addToTopic(client, client.topic)
	}
	log.Printf("Client registered (total clients: %d)", len(h.clients))
}

// unregisterClient removes a client from the hub and its topic
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeFromTopic(client)
	delete(h.clients, client)
	close(client.send)
	log.Printf("Client unregistered (remaining clients: %d)", len(h.clients))
}

// subscribeClient moves a client to topic, or off any topic when empty
func (h *Hub) subscribeClient(client *Client, topic string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeFromTopic(client)
	client.topic = topic
	if topic != "" {
		h.addToTopic(client, topic)
	}
}

func (h *Hub) addToTopic(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

func (h *Hub) removeFromTopic(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	delete(clients, client)
	// Clean up empty topics
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}
}

// deliver sends a message to one client or to all subscribers of a topic
func (h *Hub) deliver(message *envelope) {
	if message.client != nil {
		if _, ok := h.clients[message.client]; ok {
			h.push(message.client, message.data)
		}
		return
	}

	for client := range h.topics[message.topic] {
		h.push(client, message.data)
	}
}

func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Client's send channel is full, drop it
		h.unregisterClient(client)
	}
}

// Bind follows the session topic and remembers the player for disconnects
func (c *Client) Bind(gameID, player uuid.UUID) {
	c.mu.Lock()
	c.gameID, c.player, c.bound = gameID, player, true
	c.mu.Unlock()

	c.hub.subscribe <- &subscription{client: c, topic: service.Topic(gameID)}
}

// Unbind stops following the session topic
func (c *Client) Unbind() {
	c.mu.Lock()
	wasBound := c.bound
	c.gameID, c.player, c.bound = uuid.Nil, uuid.Nil, false
	c.mu.Unlock()

	if wasBound {
		c.hub.subscribe <- &subscription{client: c}
	}
}

// Binding returns the session and player recorded at join time
func (c *Client) Binding() (uuid.UUID, uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID, c.player, c.bound
}

// readPump dispatches frames from the connection to the game service
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		if c.hub.svc != nil {
			c.hub.svc.Disconnect(context.Background(), c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var req service.Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.hub.reply(c, &service.Message{Type: service.TypeError, Content: service.ContentBadParams})
			continue
		}
		if c.hub.svc == nil {
			continue
		}
		if reply := c.hub.svc.Handle(context.Background(), c, &req); reply != nil {
			c.hub.reply(c, reply)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
