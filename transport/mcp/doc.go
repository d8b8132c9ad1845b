// Package mcp exposes the Train Rush admin API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool performs a GET against the REST API and formats
// the answer as text for an agent. Nothing here can act on a room.
//
// MCP Tools:
//   - server_health: uptime, room counts, datagram counters
//   - list_rooms, get_room: live rooms and their participants
//   - room_state: character rendering of a room's map
//   - list_scores, get_score: stored personal bests
//   - list_matches, get_match: finished matches from the history index
//   - list_configs: configuration profiles
//   - game_rules: rules and protocol summary
//
// Transport Modes:
//   - HTTP: Client.Handler serves JSON-RPC on POST /mcp
//   - Stdio: server.ServeStdio(client.GetMCPServer())
package mcp
