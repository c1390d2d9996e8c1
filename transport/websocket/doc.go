// Package websocket provides the real-time transport of the memo game.
//
// A central Hub owns every connection and the topic subscriptions. Each
// connection has a read goroutine that decodes protocol frames and hands
// them to the game service, and a write goroutine that drains its send
// buffer and keeps the connection alive with pings.
//
// Message Protocol:
//
//   - Incoming: {"type":"game.join","token":"...","numOfPairs":8}
//   - Incoming: {"type":"game.move","token":"...","gameId":"...","index":3}
//   - Incoming: {"type":"game.leave","token":"..."}
//   - Outgoing: the game state on the session topic, or a direct error reply
//
// A successful join subscribes the connection to "game.<id>". Connecting with
// ?game=<id> follows a session as a spectator. When a bound connection drops,
// the hub leaves the session on the player's behalf.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run()
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
