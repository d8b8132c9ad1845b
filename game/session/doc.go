// Package session is the connection manager of the Train Rush server.
//
// UDP has no connections, so the Manager keys everything by the sender's address:
//   - identity bindings (name and id are unique across addresses, AI names count as taken)
//   - placement into a waiting room, creating rooms on demand
//   - liveness: a periodic sweep pings every client and drops those that miss a pong
//     or stay silent past the inactivity timeout
//   - a per-address cooldown for messages from unregistered senders
//
// Probes (check_name, check_sciper, ping) are answered for anyone. Every other message
// requires a registered address and is forwarded to the client's room.
//
// Concurrency:
//
// The Manager's lock guards the identity maps and the room table. It is never held while
// calling into a room; rooms may call back into the Manager (AI name pool, room closed
// notification) while holding their own lock.
//
// Usage:
//
//	manager, err := session.NewManager(cfg, session.Deps{Sender: server, Scores: store})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go manager.Run(ctx)
//	server.Serve(ctx, manager)
//	manager.Shutdown()
package session
