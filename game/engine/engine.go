package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

var (
	ErrGameNotRunning  = errors.New("game is not running")
	ErrTrainNotFound   = errors.New("train not found")
	ErrUnknownPlayer   = errors.New("player is not part of this game")
	ErrTrainAlive      = errors.New("train is already alive")
	ErrRespawnCooldown = errors.New("respawn cooldown has not elapsed")
)

// Option customizes a Game
type Option func(*Game)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// WithRand seeds the game's random source
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rng = r }
}

// WithLogger sets the logger used for spawn warnings
func WithLogger(l *log.Logger) Option {
	return func(g *Game) { g.log = l }
}

// Game owns one world's entities and advances them tick by tick.
// It is not safe for concurrent use; the owning room serializes access.
type Game struct {
	config *GameConfig
	now    func() time.Time
	rng    *rand.Rand
	log    *log.Logger

	players    map[string]bool
	trains     map[string]*Train
	passengers []*Passenger
	zone       DeliveryZone
	size       Size
	dirty      map[Field]bool
	running    bool
	startedAt  time.Time
	ticks      int

	bestScores map[string]int
	deaths     map[string]time.Time
}

// NewGame creates a stopped game using the provided configuration
func NewGame(config *GameConfig, opts ...Option) (*Game, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	g := &Game{
		config:     config,
		now:        time.Now,
		log:        log.Default(),
		players:    make(map[string]bool),
		trains:     make(map[string]*Train),
		passengers: []*Passenger{},
		size:       Size{Width: config.BaseSize, Height: config.BaseSize},
		dirty:      make(map[Field]bool),
		bestScores: make(map[string]int),
		deaths:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(g.now().UnixNano()))
	}
	return g, nil
}

// Start registers the players, sizes the world and spawns every train
func (g *Game) Start(names []string) {
	if g.running {
		return
	}
	for _, name := range names {
		g.players[name] = true
		if _, ok := g.bestScores[name]; !ok {
			g.bestScores[name] = 0
		}
	}

	g.size = NextSize(len(g.players), g.size, nil, g.config)
	g.zone = NewDeliveryZone(len(g.players), g.size, g.config)
	g.running = true
	g.startedAt = g.now()

	for _, name := range sortedKeys(g.players) {
		g.spawnTrain(name)
	}
	g.maintainPassengers()
	g.markAll()
}

// Stop halts the simulation; Tick becomes a no-op
func (g *Game) Stop() {
	g.running = false
}

// Running reports whether the simulation is active
func (g *Game) Running() bool {
	return g.running
}

// StartedAt returns the wall-clock time the game started
func (g *Game) StartedAt() time.Time {
	return g.startedAt
}

// Ticks returns the number of ticks simulated so far
func (g *Game) Ticks() int {
	return g.ticks
}

// Config returns the rules in use
func (g *Game) Config() *GameConfig {
	return g.config
}

// Size returns the current world extent
func (g *Game) Size() Size {
	return g.size
}

// Zone returns the delivery zone
func (g *Game) Zone() DeliveryZone {
	return g.zone
}

// HasPlayer reports whether name takes part in the game
func (g *Game) HasPlayer(name string) bool {
	return g.players[name]
}

// PlayerCount returns the number of registered players
func (g *Game) PlayerCount() int {
	return len(g.players)
}

// Train returns a copy of the named train's state
func (g *Game) Train(name string) (TrainState, bool) {
	t, ok := g.trains[name]
	if !ok {
		return TrainState{}, false
	}
	return t.State(), true
}

// TrainAlive reports whether the named train exists and is alive
func (g *Game) TrainAlive(name string) bool {
	t, ok := g.trains[name]
	return ok && t.Alive
}

// Passengers returns a copy of every passenger
func (g *Game) Passengers() []PassengerState {
	out := make([]PassengerState, len(g.passengers))
	for i, p := range g.passengers {
		out[i] = p.State()
	}
	return out
}

// BestScores returns the best score of every player over all of its lives
func (g *Game) BestScores() map[string]int {
	out := make(map[string]int, len(g.bestScores))
	for name, score := range g.bestScores {
		out[name] = score
	}
	return out
}

// SetDirection applies a heading change request for the named train
func (g *Game) SetDirection(name string, d Direction) error {
	t, ok := g.trains[name]
	if !ok {
		return ErrTrainNotFound
	}
	changed, err := t.SetDirection(d)
	if err != nil {
		return err
	}
	if changed {
		g.mark(FieldTrains)
	}
	return nil
}

// DropWagon converts the named train's tail wagon into a one point passenger
func (g *Game) DropWagon(name string) (Position, error) {
	t, ok := g.trains[name]
	if !ok {
		return Position{}, ErrTrainNotFound
	}
	pos, err := t.PopWagon()
	if err != nil {
		return Position{}, err
	}
	g.passengers = append(g.passengers, &Passenger{Position: pos, Value: 1, Dropped: true})
	g.mark(FieldTrains)
	g.mark(FieldPassengers)
	return pos, nil
}

// RespawnRemaining returns how long the named player must still wait before respawning
func (g *Game) RespawnRemaining(name string) time.Duration {
	died, ok := g.deaths[name]
	if !ok {
		return 0
	}
	remaining := g.config.RespawnCooldown - g.now().Sub(died)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Respawn places a fresh train for a player whose previous one was destroyed
func (g *Game) Respawn(name string) (TrainState, error) {
	if !g.running {
		return TrainState{}, ErrGameNotRunning
	}
	if !g.players[name] {
		return TrainState{}, ErrUnknownPlayer
	}
	if g.TrainAlive(name) {
		return TrainState{}, ErrTrainAlive
	}
	if remaining := g.RespawnRemaining(name); remaining > 0 {
		return TrainState{}, fmt.Errorf("%w: %.1fs remaining", ErrRespawnCooldown, remaining.Seconds())
	}
	t := g.spawnTrain(name)
	delete(g.deaths, name)
	g.maintainPassengers()
	return t.State(), nil
}

// RemovePlayer drops a player and its train from the game. Its best score is kept.
func (g *Game) RemovePlayer(name string) {
	if !g.players[name] {
		return
	}
	delete(g.players, name)
	delete(g.deaths, name)
	if _, ok := g.trains[name]; ok {
		delete(g.trains, name)
		g.mark(FieldTrains)
	}
}

// recordScore keeps the per-player best score in sync
func (g *Game) recordScore(t *Train) {
	if t.Score > g.bestScores[t.Name] {
		g.bestScores[t.Name] = t.Score
	}
}
