// Package nats carries the memo game protocol over a NATS server.
//
// Clients send protocol requests to the game.join, game.leave and game.move
// subjects with request/reply and subscribe to game.<sessionId> for state
// updates. Requests are consumed through a queue group so that each one is
// handled by a single server.
package nats
