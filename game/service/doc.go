// Package service provides the read-only lobby layer of the Train Rush server.
//
// LobbyService sits between the admin surfaces (REST API, MCP tools) and the session
// manager. It never mutates a room: players only act through the UDP protocol.
//
// Core Interfaces:
//
// LobbyService is what the transports call. RoomDirectory is the slice of the session
// manager it reads; ConfigManager lists the YAML profiles on disk.
//
// Usage:
//
//	lobby := service.NewLobbyService(manager, service.Options{
//		History: index,
//		Configs: profiles,
//		Transport: udpServer,
//	})
//
//	rooms, err := lobby.ListRooms(ctx)
package service
