package service

import (
	"context"
	"errors"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/room"
	"github.com/wricardo/train-rush/game/scores"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrScoreNotFound    = errors.New("score not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrHistoryDisabled  = errors.New("match history is disabled")
	ErrProfilesDisabled = errors.New("config profiles are not available")
)

// LobbyService is the read-only view of the server used by the admin surfaces
type LobbyService interface {
	// Server
	Health(ctx context.Context) (*HealthInfo, error)

	// Rooms
	ListRooms(ctx context.Context) ([]*room.Info, error)
	GetRoom(ctx context.Context, roomID string) (*room.Info, error)
	GetRoomState(ctx context.Context, roomID string) (*engine.Snapshot, error)

	// Scores
	ListScores(ctx context.Context) ([]ScoreEntry, error)
	GetScore(ctx context.Context, playerID string) (*ScoreEntry, error)

	// History
	ListMatches(ctx context.Context, limit int) ([]history.Match, error)
	GetMatch(ctx context.Context, matchID string) (*history.Match, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*config.ProfileInfo, error)
	LoadConfig(ctx context.Context, name string) (*config.Config, error)
}

// RoomDirectory is the part of the session manager the service reads
type RoomDirectory interface {
	Rooms() []*room.Room
	Room(id string) (*room.Room, error)
	ClientCount() int
	Scores() *scores.Store
}

// ConfigManager lists and loads named config profiles
type ConfigManager interface {
	ListConfigs() ([]*config.ProfileInfo, error)
	LoadConfig(name string) (*config.Config, error)
}

// TransportStats exposes datagram counters
type TransportStats interface {
	Stats() (sent, received uint64)
}
