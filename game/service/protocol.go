package service

import (
	"github.com/google/uuid"
)

// Inbound request types
const (
	TypeJoin  = "game.join"
	TypeLeave = "game.leave"
	TypeMove  = "game.move"
)

// Outbound message types
const (
	TypeJoined   = "game.joined"
	TypeLeft     = "game.left"
	TypeMoved    = "game.move"
	TypeGameOver = "game.gameOver"
	TypeError    = "error"
)

// Error contents sent to clients
const (
	ContentUnauthorized = "Unauthorized"
	ContentUserNotFound = "User not found"
	ContentBadParams    = "Incorrect params"
	ContentCannotJoin   = "Cannot join"
	ContentNotFound     = "Game not found or is already over"
	ContentWaiting      = "Game is waiting for another player to join"
	ContentNotYourTurn  = "Not your turn"
)

// WinnerDraw is the winner field of a drawn game
const WinnerDraw = "draw"

// TopicPrefix prefixes every per-session topic
const TopicPrefix = "game."

// Topic returns the broadcast topic of a session
func Topic(gameID uuid.UUID) string {
	return TopicPrefix + gameID.String()
}

// Request is an inbound protocol frame
type Request struct {
	Type                 string `json:"type"`
	Token                string `json:"token"`
	NumOfPairs           int    `json:"numOfPairs,omitempty"`
	WantToPlayWithFriend bool   `json:"wantToPlayWithFriend,omitempty"`
	FriendRoomID         string `json:"friendRoomId,omitempty"`
	GameID               string `json:"gameId,omitempty"`
	Index                int    `json:"index"`
}

// Message is an outbound protocol frame. Board holds null for cards that
// are not matched yet.
type Message struct {
	Type                string      `json:"type"`
	GameID              *uuid.UUID  `json:"gameId"`
	Player1             *uuid.UUID  `json:"player1"`
	Player2             *uuid.UUID  `json:"player2"`
	Player1Name         string      `json:"player1Name,omitempty"`
	Player2Name         string      `json:"player2Name,omitempty"`
	Winner              *string     `json:"winner"`
	Turn                string      `json:"turn,omitempty"`
	Board               []*int      `json:"board,omitempty"`
	LastMove            map[int]int `json:"lastMove,omitempty"`
	Player1GuessedCards int         `json:"player1GuessedCards"`
	Player2GuessedCards int         `json:"player2GuessedCards"`
	GameStarted         bool        `json:"gameStarted"`
	GameOver            bool        `json:"gameOver"`
	Content             string      `json:"content,omitempty"`
}

// Peer is the sending side of a transport connection. The service binds it
// to a session on join so that a later disconnect can leave on its behalf.
type Peer interface {
	Bind(gameID, player uuid.UUID)
	Unbind()
	Binding() (gameID, player uuid.UUID, ok bool)
}

// Broadcaster delivers messages to every subscriber of a topic
type Broadcaster interface {
	Broadcast(topic string, msg *Message)
}

// BasicPeer is a Peer that only records its binding. Transports without a
// subscription concept embed it.
type BasicPeer struct {
	gameID uuid.UUID
	player uuid.UUID
	bound  bool
}

// Bind records the session and player
func (p *BasicPeer) Bind(gameID, player uuid.UUID) {
	p.gameID, p.player, p.bound = gameID, player, true
}

// Unbind clears the binding
func (p *BasicPeer) Unbind() {
	p.gameID, p.player, p.bound = uuid.Nil, uuid.Nil, false
}

// Binding returns the recorded session and player
func (p *BasicPeer) Binding() (uuid.UUID, uuid.UUID, bool) {
	return p.gameID, p.player, p.bound
}
