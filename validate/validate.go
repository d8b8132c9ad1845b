// Package validate checks Train Rush YAML configuration files before they are deployed.
//
// Beyond config.Validate it rejects unknown keys (a typo otherwise silently keeps the
// default) and flags settings that parse fine but make for a broken match:
//   - a respawn cooldown that outlasts the game
//   - a delivery zone covering most of a full room's world
//   - an inactivity timeout that leaves clients a single ping to answer
//   - a bot fill timeout longer than the game itself
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/engine"
)

// Result captures the outcome of validating a single file.
type Result struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *Result) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// File loads and validates one configuration file
func File(path string) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}
	return Bytes(result.File, data)
}

// Bytes validates configuration YAML held in memory
func Bytes(name string, data []byte) Result {
	result := Result{File: name, Valid: true}

	cfg := config.Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			result.fail("File is empty")
		} else {
			result.fail("Invalid YAML: %v", err)
		}
		return result
	}

	if err := cfg.Validate(); err != nil {
		result.fail("%v", err)
		return result
	}

	checkPlayability(cfg, &result)

	if result.Valid {
		full := cfg.Room.PlayersPerRoom
		world := engine.TargetSize(full, &cfg.Game)
		zone := cfg.Game.ZoneBase + cfg.Game.ZonePerPlayer*full
		result.Info = append(result.Info,
			fmt.Sprintf("Name: %s", displayName(cfg, name)),
			fmt.Sprintf("Players per room: %d (AI: %s)", full, cfg.Room.AIKind),
			fmt.Sprintf("Game duration: %s", cfg.Room.GameDuration),
			fmt.Sprintf("World: %dx%d alone, %dx%d full", engine.TargetSize(1, &cfg.Game), engine.TargetSize(1, &cfg.Game), world, world),
			fmt.Sprintf("Delivery zone when full: %dx%d", zone, zone),
			fmt.Sprintf("Ticks per game: %d", int(cfg.Room.GameDuration/cfg.Room.TickInterval)),
		)
	}
	return result
}

func displayName(cfg *config.Config, fallback string) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return fallback
}

// checkPlayability reports settings that validate but ruin a match
func checkPlayability(cfg *config.Config, result *Result) {
	if cfg.Game.RespawnCooldown >= cfg.Room.GameDuration {
		result.fail("respawn_cooldown (%s) must be shorter than game_duration (%s)",
			cfg.Game.RespawnCooldown, cfg.Room.GameDuration)
	}

	full := cfg.Room.PlayersPerRoom
	world := engine.TargetSize(full, &cfg.Game)
	zone := cfg.Game.ZoneBase + cfg.Game.ZonePerPlayer*full
	if zone*zone*2 > world*world {
		result.fail("delivery zone (%dx%d) covers more than half of a full room's world (%dx%d)",
			zone, zone, world, world)
	}
	if cfg.Game.BaseSize+cfg.Game.PerPlayerSize*full > cfg.Game.MaxSize {
		result.warn("max_size (%d) caps the world before the room is full", cfg.Game.MaxSize)
	}

	if cfg.Server.InactivityTimeout < 2*cfg.Server.PingInterval {
		result.warn("inactivity_timeout (%s) allows fewer than two pings at ping_interval %s",
			cfg.Server.InactivityTimeout, cfg.Server.PingInterval)
	}
	if cfg.Room.BotFillTimeout > cfg.Room.GameDuration {
		result.warn("bot_fill_timeout (%s) is longer than game_duration (%s)",
			cfg.Room.BotFillTimeout, cfg.Room.GameDuration)
	}
	if cfg.Room.BroadcastInterval < cfg.Room.TickInterval {
		result.warn("broadcast_interval (%s) is shorter than tick_interval (%s); extra broadcasts carry no change",
			cfg.Room.BroadcastInterval, cfg.Room.TickInterval)
	}
}

// Dir validates every *.yaml and *.yml file in dir, sorted by name
func Dir(dir string) ([]Result, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, File(f))
	}
	return results, nil
}

// Files lists the configuration files in dir
func Files(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("error finding config files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
