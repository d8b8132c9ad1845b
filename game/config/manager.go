package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultProfile is loaded as the default when present in the profile directory
const DefaultProfile = "classic"

// ProfileInfo describes one config file found in a profile directory
type ProfileInfo struct {
	Filename       string `json:"filename"`
	ProfileID      string `json:"profile_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PlayersPerRoom int    `json:"players_per_room"`
	GameDuration   string `json:"game_duration"`
	BaseSize       int    `json:"base_size"`
}

// Manager loads and caches named YAML profiles from a directory
type Manager struct {
	configDir     string
	defaultConfig *Config
	configs       map[string]*Config
	mu            sync.RWMutex
}

// NewManager creates a new profile manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Config),
	}
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return m, nil
}

// LoadConfig loads a profile by name, with or without its extension
func (m *Manager) LoadConfig(name string) (*Config, error) {
	id := profileID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	var config *Config
	var err error
	for _, ext := range []string{".yaml", ".yml"} {
		config, err = Load(filepath.Join(m.configDir, id+ext))
		if !errors.Is(err, ErrConfigNotFound) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	if config.Name == "" || config.Name == Defaults().Name {
		config.Name = id
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns every valid profile in the directory, sorted by id
func (m *Manager) ListConfigs() ([]*ProfileInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var profiles []*ProfileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		id := profileID(entry.Name())
		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid configs
			continue
		}

		profiles = append(profiles, &ProfileInfo{
			Filename:       entry.Name(),
			ProfileID:      id,
			Name:           config.Name,
			Description:    config.Description,
			PlayersPerRoom: config.Room.PlayersPerRoom,
			GameDuration:   config.Room.GameDuration.String(),
			BaseSize:       config.Game.BaseSize,
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ProfileID < profiles[j].ProfileID })
	return profiles, nil
}

// GetDefault returns the default profile
func (m *Manager) GetDefault() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default profile by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached profile and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*Config)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig validates and writes a profile to disk
func (m *Manager) SaveConfig(name string, config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	data, err := config.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	id := profileID(name)
	if err := os.WriteFile(filepath.Join(m.configDir, id+".yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()
	return nil
}

// loadDefaultConfig prefers classic, then the first valid profile, then built-in defaults
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultProfile)
	if err != nil {
		profiles, listErr := m.ListConfigs()
		if listErr != nil || len(profiles) == 0 {
			config = Defaults()
		} else if config, err = m.LoadConfig(profiles[0].ProfileID); err != nil {
			config = Defaults()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func profileID(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
}
