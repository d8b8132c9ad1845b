// Package api provides the admin HTTP API of the Train Rush server.
//
// The API is read-only: players act exclusively over UDP. Every handler goes through
// service.LobbyService and answers JSON.
//
// Endpoints:
//
// Server:
//   - GET /api/health - uptime, room and client counts, datagram counters
//
// Rooms:
//   - GET /api/rooms - List live rooms (?state=waiting|running|over)
//   - GET /api/rooms/{id} - Room summary with participants and scores
//   - GET /api/rooms/{id}/state - Full game snapshot
//
// Scores:
//   - GET /api/scores - Stored personal bests, highest first (?limit=N)
//   - GET /api/scores/{id} - One player's best
//
// History:
//   - GET /api/matches - Recent matches, newest first (?limit=N)
//   - GET /api/matches/{id} - One match with its ranking
//
// Configuration:
//   - GET /api/configs - List YAML profiles
//   - GET /api/configs/{name} - One profile, defaults applied
//
// Spectators:
//   - GET /ws?room={id} - WebSocket stream of the room's state and game_over messages
//
// Errors are returned as {"error": "..."} with 404 for unknown rooms, scores, matches and
// profiles, and 503 when the backing feature is disabled.
package api
