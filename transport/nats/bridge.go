package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wricardo/memo-game/game/service"
)

// Inbound subjects
const (
	SubjectJoin  = service.TypeJoin
	SubjectLeave = service.TypeLeave
	SubjectMove  = service.TypeMove
)

// QueueGroup spreads inbound requests over server instances
const QueueGroup = "memo-game"

var okReply = []byte(`{"type":"ok"}`)

// Connect dials the NATS server at url with reconnect settings suited to a
// long-running server
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Bridge carries the game protocol over NATS. Requests arrive on the
// game.join, game.leave and game.move subjects and session broadcasts are
// published on game.<sessionId>.
type Bridge struct {
	nc   *nats.Conn
	svc  service.GameService
	subs []*nats.Subscription
}

// NewBridge creates a bridge and registers it as a broadcaster of svc
func NewBridge(nc *nats.Conn, svc service.GameService) *Bridge {
	b := &Bridge{nc: nc, svc: svc}
	svc.AddBroadcaster(b)
	return b
}

// Start subscribes to the inbound subjects
func (b *Bridge) Start() error {
	for _, subject := range []string{SubjectJoin, SubjectLeave, SubjectMove} {
		sub, err := b.nc.QueueSubscribe(subject, QueueGroup, b.onMessage)
		if err != nil {
			b.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		b.subs = append(b.subs, sub)
	}
	log.Printf("[nats] listening on %s, %s, %s", SubjectJoin, SubjectLeave, SubjectMove)
	return nil
}

// Close removes the subscriptions. The connection stays with its owner.
func (b *Bridge) Close() {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[nats] unsubscribe %s: %v", sub.Subject, err)
		}
	}
	b.subs = nil
}

// Broadcast publishes msg on topic
func (b *Bridge) Broadcast(topic string, msg *service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[nats] failed to marshal message: %v", err)
		return
	}
	if err := b.nc.Publish(topic, data); err != nil {
		log.Printf("[nats] publish %s: %v", topic, err)
	}
}

func (b *Bridge) onMessage(m *nats.Msg) {
	reply := b.process(m.Subject, m.Data)
	if m.Reply == "" {
		return
	}
	if err := m.Respond(reply); err != nil {
		log.Printf("[nats] respond on %s: %v", m.Subject, err)
	}
}

// process handles one request and returns the reply payload. NATS has no
// connection per player, so every request gets a fresh peer and players
// leave explicitly.
func (b *Bridge) process(subject string, data []byte) []byte {
	var req service.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return mustMarshal(&service.Message{Type: service.TypeError, Content: service.ContentBadParams})
	}
	if req.Type == "" {
		req.Type = subject
	}
	if req.Type != subject {
		return mustMarshal(&service.Message{Type: service.TypeError, Content: service.ContentBadParams})
	}

	reply := b.svc.Handle(context.Background(), &service.BasicPeer{}, &req)
	if reply == nil {
		return okReply
	}
	return mustMarshal(reply)
}

func mustMarshal(msg *service.Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return data
}
