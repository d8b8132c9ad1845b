package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/room"
)

// DefaultMatchLimit is used when a caller asks for a non-positive number of matches
const DefaultMatchLimit = 20

// maxMatchLimit bounds one listing
const maxMatchLimit = 500

// Options wires optional collaborators into the service
type Options struct {
	History   history.Reader
	Configs   ConfigManager
	Transport TransportStats
	Now       func() time.Time
}

// lobbyServiceImpl implements LobbyService
type lobbyServiceImpl struct {
	rooms     RoomDirectory
	history   history.Reader
	configs   ConfigManager
	transport TransportStats
	now       func() time.Time
	startedAt time.Time
}

// NewLobbyService creates the service over a room directory
func NewLobbyService(rooms RoomDirectory, opts Options) LobbyService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &lobbyServiceImpl{
		rooms:     rooms,
		history:   opts.History,
		configs:   opts.Configs,
		transport: opts.Transport,
		now:       now,
		startedAt: now(),
	}
}

func (s *lobbyServiceImpl) Health(ctx context.Context) (*HealthInfo, error) {
	rooms := s.rooms.Rooms()
	running := 0
	for _, r := range rooms {
		if r.State() == room.Running {
			running++
		}
	}

	info := &HealthInfo{
		Status:        "ok",
		StartedAt:     s.startedAt,
		UptimeSeconds: s.now().Sub(s.startedAt).Seconds(),
		Rooms:         len(rooms),
		RunningRooms:  running,
		Clients:       s.rooms.ClientCount(),
		StoredScores:  s.rooms.Scores().Len(),
		History:       s.history != nil,
	}
	if s.transport != nil {
		info.Sent, info.Received = s.transport.Stats()
	}
	return info, nil
}

func (s *lobbyServiceImpl) ListRooms(ctx context.Context) ([]*room.Info, error) {
	rooms := s.rooms.Rooms()
	result := make([]*room.Info, 0, len(rooms))
	for _, r := range rooms {
		info := r.Info()
		result = append(result, &info)
	}
	return result, nil
}

func (s *lobbyServiceImpl) room(roomID string) (*room.Room, error) {
	r, err := s.rooms.Room(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return r, nil
}

func (s *lobbyServiceImpl) GetRoom(ctx context.Context, roomID string) (*room.Info, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}
	info := r.Info()
	return &info, nil
}

func (s *lobbyServiceImpl) GetRoomState(ctx context.Context, roomID string) (*engine.Snapshot, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}
	snap := r.Snapshot()
	return &snap, nil
}

// ListScores returns every stored best, highest first
func (s *lobbyServiceImpl) ListScores(ctx context.Context) ([]ScoreEntry, error) {
	all := s.rooms.Scores().All()
	out := make([]ScoreEntry, 0, len(all))
	for id, score := range all {
		out = append(out, ScoreEntry{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *lobbyServiceImpl) GetScore(ctx context.Context, playerID string) (*ScoreEntry, error) {
	score, ok := s.rooms.Scores().Get(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScoreNotFound, playerID)
	}
	return &ScoreEntry{ID: playerID, Score: score}, nil
}

func (s *lobbyServiceImpl) ListMatches(ctx context.Context, limit int) ([]history.Match, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	if limit > maxMatchLimit {
		limit = maxMatchLimit
	}
	matches, err := s.history.RecentMatches(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if matches == nil {
		matches = []history.Match{}
	}
	return matches, nil
}

func (s *lobbyServiceImpl) GetMatch(ctx context.Context, matchID string) (*history.Match, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	m, err := s.history.MatchByID(matchID)
	if errors.Is(err, history.ErrMatchNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return &m, nil
}

func (s *lobbyServiceImpl) ListConfigs(ctx context.Context) ([]*config.ProfileInfo, error) {
	if s.configs == nil {
		return nil, ErrProfilesDisabled
	}
	return s.configs.ListConfigs()
}

func (s *lobbyServiceImpl) LoadConfig(ctx context.Context, name string) (*config.Config, error) {
	if s.configs == nil {
		return nil, ErrProfilesDisabled
	}
	return s.configs.LoadConfig(name)
}
