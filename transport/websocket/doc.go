// Package websocket streams room broadcasts to spectators.
//
// A central Hub keeps the spectators of every room. Rooms call Hub.Publish with each
// message they broadcast to players (state, game_over, ...); the hub wraps it as
// {"room_id": "...", "message": {...}} and fans it out to that room's connections.
//
// Spectators are read-only. Anything they send is discarded; the read loop only keeps
// control frames flowing. A spectator whose send buffer is full is dropped rather than
// slowing the room down, and Publish itself never blocks.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("room"))
//	})
package websocket
