// Package service provides the business logic layer for the memo game.
//
// GameService binds the real-time protocol to the session registry. Every
// inbound Request is authenticated through a TokenValidator, routed to the
// registry or the session it names, and the resulting state is broadcast as
// a Message on the session topic ("game.<id>") to every registered
// Broadcaster. Errors on join come back as a direct reply; errors on move go
// out on the topic with player1 set to the sender.
//
// Transports hand the service a Peer per connection. A successful join binds
// the peer to the session and player so that Disconnect can leave on the
// player's behalf when the connection drops.
//
// Besides the protocol, the service offers the read side used by the REST
// and MCP surfaces (live sessions, finished results and a leaderboard) and
// the single-player countdown game.
//
// Usage:
//
//	registry := session.NewRegistryWithStore(store)
//	svc := service.NewGameService(service.Deps{
//		Registry: registry,
//		Solo:     session.NewSoloStore(store),
//		Results:  store,
//		Configs:  configMgr,
//		Tokens:   tokens,
//		Names:    directory,
//	})
//	svc.AddBroadcaster(hub)
//
//	reply := svc.Handle(ctx, peer, &service.Request{Type: service.TypeJoin, Token: token, NumOfPairs: 8})
package service
