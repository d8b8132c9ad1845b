package engine

import (
	"fmt"
	"time"
)

// GameConfig holds the simulation rules for one world
type GameConfig struct {
	BaseSize           int           `yaml:"base_size" json:"base_size"`
	PerPlayerSize      int           `yaml:"per_player_size" json:"per_player_size"`
	MaxSize            int           `yaml:"max_size" json:"max_size"`
	ShrinkStep         int           `yaml:"shrink_step" json:"shrink_step"`
	PassengersPerTrain float64       `yaml:"passengers_per_train" json:"passengers_per_train"`
	PassengerMinValue  int           `yaml:"passenger_min_value" json:"passenger_min_value"`
	PassengerMaxValue  int           `yaml:"passenger_max_value" json:"passenger_max_value"`
	RespawnCooldown    time.Duration `yaml:"respawn_cooldown" json:"respawn_cooldown"`
	DeliveryPoints     int           `yaml:"delivery_points" json:"delivery_points"`
	ZoneBase           int           `yaml:"zone_base" json:"zone_base"`
	ZonePerPlayer      int           `yaml:"zone_per_player" json:"zone_per_player"`
	SpawnAttempts      int           `yaml:"spawn_attempts" json:"spawn_attempts"`
	SpawnMargin        int           `yaml:"spawn_margin" json:"spawn_margin"`
}

// DefaultGameConfig returns the rules used when no config file overrides them
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		BaseSize:           20,
		PerPlayerSize:      5,
		MaxSize:            80,
		ShrinkStep:         1,
		PassengersPerTrain: 1.0,
		PassengerMinValue:  1,
		PassengerMaxValue:  3,
		RespawnCooldown:    5 * time.Second,
		DeliveryPoints:     1,
		ZoneBase:           2,
		ZonePerPlayer:      1,
		SpawnAttempts:      200,
		SpawnMargin:        2,
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// World sizing
	if config.BaseSize < MinWorldSize || config.BaseSize > MaxWorldSize {
		return fmt.Errorf("config validation: base_size must be between %d and %d, got %d", MinWorldSize, MaxWorldSize, config.BaseSize)
	}
	if config.MaxSize < config.BaseSize || config.MaxSize > MaxWorldSize {
		return fmt.Errorf("config validation: max_size must be between base_size (%d) and %d, got %d", config.BaseSize, MaxWorldSize, config.MaxSize)
	}
	if config.PerPlayerSize < 0 {
		return fmt.Errorf("config validation: per_player_size must not be negative, got %d", config.PerPlayerSize)
	}
	if config.ShrinkStep < 1 {
		return fmt.Errorf("config validation: shrink_step must be at least 1, got %d", config.ShrinkStep)
	}

	// Passengers
	if config.PassengersPerTrain <= 0 {
		return fmt.Errorf("config validation: passengers_per_train must be positive, got %v", config.PassengersPerTrain)
	}
	if config.PassengerMinValue < 1 {
		return fmt.Errorf("config validation: passenger_min_value must be at least 1, got %d", config.PassengerMinValue)
	}
	if config.PassengerMaxValue < config.PassengerMinValue {
		return fmt.Errorf("config validation: passenger_max_value must be >= passenger_min_value (%d), got %d",
			config.PassengerMinValue, config.PassengerMaxValue)
	}

	if config.RespawnCooldown < 0 {
		return fmt.Errorf("config validation: respawn_cooldown must not be negative, got %s", config.RespawnCooldown)
	}
	if config.DeliveryPoints < 0 {
		return fmt.Errorf("config validation: delivery_points must not be negative, got %d", config.DeliveryPoints)
	}

	// Delivery zone must fit in the smallest world
	if config.ZoneBase < 1 {
		return fmt.Errorf("config validation: zone_base must be at least 1, got %d", config.ZoneBase)
	}
	if config.ZoneBase >= config.BaseSize {
		return fmt.Errorf("config validation: zone_base must be smaller than base_size (%d), got %d", config.BaseSize, config.ZoneBase)
	}
	if config.ZonePerPlayer < 0 {
		return fmt.Errorf("config validation: zone_per_player must not be negative, got %d", config.ZonePerPlayer)
	}

	if config.SpawnAttempts < 1 || config.SpawnAttempts > MaxSpawnAttempts {
		return fmt.Errorf("config validation: spawn_attempts must be between 1 and %d, got %d", MaxSpawnAttempts, config.SpawnAttempts)
	}
	if config.SpawnMargin < 0 || 2*config.SpawnMargin >= config.BaseSize {
		return fmt.Errorf("config validation: spawn_margin must leave room inside base_size, got %d", config.SpawnMargin)
	}

	return nil
}
