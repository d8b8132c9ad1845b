package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/train-rush/game/agent"
	"github.com/wricardo/train-rush/game/engine"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config is the full server configuration
type Config struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Room        RoomConfig        `yaml:"room" json:"room"`
	Game        engine.GameConfig `yaml:"game" json:"game"`
}

// ServerConfig covers the process-wide session manager and its surfaces
type ServerConfig struct {
	Listen               string        `yaml:"listen" json:"listen"`
	HTTPListen           string        `yaml:"http_listen" json:"http_listen"`
	ScoresFile           string        `yaml:"scores_file" json:"scores_file"`
	DataDir              string        `yaml:"data_dir" json:"data_dir"`
	PingInterval         time.Duration `yaml:"ping_interval" json:"ping_interval"`
	InactivityTimeout    time.Duration `yaml:"inactivity_timeout" json:"inactivity_timeout"`
	UnregisteredCooldown time.Duration `yaml:"unregistered_cooldown" json:"unregistered_cooldown"`
	HistoryEnabled       bool          `yaml:"history_enabled" json:"history_enabled"`
}

// RoomConfig covers room lifecycle timing
type RoomConfig struct {
	PlayersPerRoom           int           `yaml:"players_per_room" json:"players_per_room"`
	WaitingBroadcastInterval time.Duration `yaml:"waiting_broadcast_interval" json:"waiting_broadcast_interval"`
	BotFillTimeout           time.Duration `yaml:"bot_fill_timeout" json:"bot_fill_timeout"`
	TickInterval             time.Duration `yaml:"tick_interval" json:"tick_interval"`
	BroadcastInterval        time.Duration `yaml:"broadcast_interval" json:"broadcast_interval"`
	TimerPollInterval        time.Duration `yaml:"timer_poll_interval" json:"timer_poll_interval"`
	GameDuration             time.Duration `yaml:"game_duration" json:"game_duration"`
	GameOverGrace            time.Duration `yaml:"game_over_grace" json:"game_over_grace"`
	JoinTimeout              time.Duration `yaml:"join_timeout" json:"join_timeout"`
	AIPollInterval           time.Duration `yaml:"ai_poll_interval" json:"ai_poll_interval"`
	AIKind                   string        `yaml:"ai_kind" json:"ai_kind"`
}

// Defaults returns the configuration used when no file overrides it
func Defaults() *Config {
	return &Config{
		Name: "default",
		Server: ServerConfig{
			Listen:               ":5555",
			HTTPListen:           ":8080",
			ScoresFile:           "best_scores.json",
			DataDir:              "data",
			PingInterval:         2 * time.Second,
			InactivityTimeout:    10 * time.Second,
			UnregisteredCooldown: 10 * time.Second,
			HistoryEnabled:       true,
		},
		Room: DefaultRoomConfig(),
		Game: *engine.DefaultGameConfig(),
	}
}

// DefaultRoomConfig returns the default room timing
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		PlayersPerRoom:           2,
		WaitingBroadcastInterval: 500 * time.Millisecond,
		BotFillTimeout:           30 * time.Second,
		TickInterval:             100 * time.Millisecond,
		BroadcastInterval:        100 * time.Millisecond,
		TimerPollInterval:        250 * time.Millisecond,
		GameDuration:             300 * time.Second,
		GameOverGrace:            2 * time.Second,
		JoinTimeout:              2 * time.Second,
		AIPollInterval:           100 * time.Millisecond,
		AIKind:                   agent.KindGreedy,
	}
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their default value
func Parse(data []byte) (*Config, error) {
	config := Defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return config, nil
}

// Load reads and validates the YAML file at path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every section for correctness and playability
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Room.Validate(); err != nil {
		return err
	}
	return engine.ValidateGameConfig(&c.Game)
}

// Validate checks the server section
func (s *ServerConfig) Validate() error {
	if s.Listen == "" {
		return fmt.Errorf("config validation: server.listen cannot be empty")
	}
	if s.ScoresFile == "" {
		return fmt.Errorf("config validation: server.scores_file cannot be empty")
	}
	if s.PingInterval <= 0 {
		return fmt.Errorf("config validation: server.ping_interval must be positive, got %s", s.PingInterval)
	}
	if s.InactivityTimeout < s.PingInterval {
		return fmt.Errorf("config validation: server.inactivity_timeout (%s) must be at least ping_interval (%s)",
			s.InactivityTimeout, s.PingInterval)
	}
	if s.UnregisteredCooldown < 0 {
		return fmt.Errorf("config validation: server.unregistered_cooldown must not be negative, got %s", s.UnregisteredCooldown)
	}
	if s.HistoryEnabled && s.DataDir == "" {
		return fmt.Errorf("config validation: server.data_dir is required when history is enabled")
	}
	return nil
}

// Validate checks the room section
func (r *RoomConfig) Validate() error {
	if r.PlayersPerRoom < 1 || r.PlayersPerRoom > 64 {
		return fmt.Errorf("config validation: room.players_per_room must be between 1 and 64, got %d", r.PlayersPerRoom)
	}
	positive := map[string]time.Duration{
		"waiting_broadcast_interval": r.WaitingBroadcastInterval,
		"tick_interval":              r.TickInterval,
		"broadcast_interval":         r.BroadcastInterval,
		"timer_poll_interval":        r.TimerPollInterval,
		"game_duration":              r.GameDuration,
		"join_timeout":               r.JoinTimeout,
		"ai_poll_interval":           r.AIPollInterval,
	}
	for _, key := range []string{
		"waiting_broadcast_interval", "tick_interval", "broadcast_interval",
		"timer_poll_interval", "game_duration", "join_timeout", "ai_poll_interval",
	} {
		if positive[key] <= 0 {
			return fmt.Errorf("config validation: room.%s must be positive, got %s", key, positive[key])
		}
	}
	if r.BotFillTimeout < 0 {
		return fmt.Errorf("config validation: room.bot_fill_timeout must not be negative, got %s", r.BotFillTimeout)
	}
	if r.GameOverGrace < 0 {
		return fmt.Errorf("config validation: room.game_over_grace must not be negative, got %s", r.GameOverGrace)
	}
	if _, err := agent.New(r.AIKind, nil); err != nil {
		return fmt.Errorf("config validation: room.ai_kind: %w", err)
	}
	return nil
}
