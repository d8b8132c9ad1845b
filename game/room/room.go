// Package room runs one isolated match: its participants, its Game and the loops that drive it.
//
// A room moves through waiting, running, over and closed. Every read of the Game used for a
// broadcast and every mutation happens under the room's single mutex. The room never calls
// back into the session manager while holding it.
package room

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/train-rush/game/agent"
	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/protocol"
	"github.com/wricardo/train-rush/game/scores"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrRoomStarted   = errors.New("room has already started")
	ErrRoomClosed    = errors.New("room is closed")
	ErrNameInRoom    = errors.New("name already used in this room")
	ErrNotInRoom     = errors.New("address is not in this room")
	ErrInvalidAction = errors.New("invalid action")
)

// State is a room lifecycle stage
type State int

const (
	Waiting State = iota
	Running
	Over
	Closed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Over:
		return "over"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Waiting, Running, Over, Closed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown room state %q", text)
}

// Sender delivers a message to one network address
type Sender interface {
	Send(addr string, msg protocol.Message) error
}

// Spectators receives a copy of every broadcast
type Spectators interface {
	Publish(roomID string, msg protocol.Message)
}

// Names hands out names for AI participants from the process-wide pool
type Names interface {
	AcquireAIName() string
	ClaimAIName(name string) bool
	ReleaseAIName(name string)
}

// Deps are the collaborators a room needs. Only Sender is required.
type Deps struct {
	Sender     Sender
	Spectators Spectators
	Scores     *scores.Store
	Recorder   history.Recorder
	Names      Names
	OnClosed   func(roomID string)
	Logger     *log.Logger
	Now        func() time.Time
	Rand       *rand.Rand
}

// Participant is a human address or an AI stand-in
type Participant struct {
	Key   string `json:"-"`
	Addr  string `json:"addr,omitempty"`
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Human bool   `json:"human"`
}

// AIKey returns the participant key used for AI controlled players
func AIKey(name string) string {
	return "ai:" + name
}

// Room owns one Game and its participants
type Room struct {
	ID string

	cfg     config.RoomConfig
	gameCfg engine.GameConfig
	deps    Deps
	log     *log.Logger
	now     func() time.Time

	mu           sync.Mutex
	state        State
	participants map[string]*Participant
	humans       map[string]string // every human name that played here -> id
	game         *engine.Game
	aiClients    map[string]*AIClient
	aiNames      map[string]bool // names acquired from the pool by this room
	createdAt    time.Time
	firstHumanAt time.Time
	startedAt    time.Time
	endedAt      time.Time
	botFilled    bool
	sentFull     bool
	finalScores  []protocol.Standing

	stop      chan struct{}
	tickDone  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a waiting room and starts its waiting loop
func New(cfg config.RoomConfig, gameCfg engine.GameConfig, deps Deps) (*Room, error) {
	if deps.Sender == nil {
		return nil, fmt.Errorf("room: sender is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(deps.Now().UnixNano()))
	}

	id := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stdout, fmt.Sprintf("[room %s] ", id[:8]), log.Flags())
	}

	gc := gameCfg
	game, err := engine.NewGame(&gc, engine.WithClock(deps.Now), engine.WithRand(deps.Rand), engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:           id,
		cfg:          cfg,
		gameCfg:      gc,
		deps:         deps,
		log:          logger,
		now:          deps.Now,
		state:        Waiting,
		participants: make(map[string]*Participant),
		humans:       make(map[string]string),
		game:         game,
		aiClients:    make(map[string]*AIClient),
		aiNames:      make(map[string]bool),
		createdAt:    deps.Now(),
		stop:         make(chan struct{}),
	}

	r.wg.Add(1)
	go r.waitingLoop()
	return r, nil
}

// State returns the current lifecycle stage
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Capacity returns the number of players the room starts with
func (r *Room) Capacity() int {
	return r.cfg.PlayersPerRoom
}

// Joinable reports whether a new human could join right now
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == Waiting && len(r.participants) < r.cfg.PlayersPerRoom
}

// Join adds a human and replies with join_success and the waiting room snapshot.
// The room starts once it is full.
func (r *Room) Join(addr, name, id string) error {
	r.mu.Lock()
	switch {
	case r.state == Closed:
		r.mu.Unlock()
		return ErrRoomClosed
	case r.state != Waiting:
		r.mu.Unlock()
		return ErrRoomStarted
	case len(r.participants) >= r.cfg.PlayersPerRoom:
		r.mu.Unlock()
		return ErrRoomFull
	case r.nameUsedLocked(name):
		r.mu.Unlock()
		return ErrNameInRoom
	}

	r.participants[addr] = &Participant{Key: addr, Addr: addr, Name: name, ID: id, Human: true}
	r.humans[name] = id
	if r.firstHumanAt.IsZero() {
		r.firstHumanAt = r.now()
	}
	join := r.joinDataLocked()
	waiting := r.waitingDataLocked()
	full := len(r.participants) >= r.cfg.PlayersPerRoom
	r.mu.Unlock()

	r.log.Printf("%s joined (%d/%d)", name, join.CurrentPlayers, join.MaxPlayers)
	r.send(addr, protocol.JoinSuccess(join))
	r.send(addr, protocol.WaitingRoom(waiting))

	if full {
		r.Start()
	}
	return nil
}

// SendJoin repeats join_success to an already joined address
func (r *Room) SendJoin(addr string) {
	r.mu.Lock()
	_, ok := r.participants[addr]
	join := r.joinDataLocked()
	r.mu.Unlock()
	if ok {
		r.send(addr, protocol.JoinSuccess(join))
	}
}

// Rename changes a human's name while the room is still waiting
func (r *Room) Rename(addr, name, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[addr]
	if !ok {
		return ErrNotInRoom
	}
	if r.state != Waiting {
		return ErrRoomStarted
	}
	if p.Name != name && r.nameUsedLocked(name) {
		return ErrNameInRoom
	}
	delete(r.humans, p.Name)
	p.Name = name
	p.ID = id
	r.humans[name] = id
	return nil
}

// Participants returns a copy of every participant, sorted by name
func (r *Room) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

// HumanCount returns the number of connected humans
func (r *Room) HumanCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.humanCountLocked()
}

// Snapshot returns the full game state
func (r *Room) Snapshot() engine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Full()
}

// Info summarizes the room for the admin surfaces
type Info struct {
	ID           string               `json:"id"`
	State        State                `json:"state"`
	Capacity     int                  `json:"capacity"`
	Participants []Participant        `json:"participants"`
	Humans       int                  `json:"humans"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	Remaining    float64              `json:"remaining_seconds"`
	Ticks        int                  `json:"ticks"`
	Size         engine.Size          `json:"size"`
	Scores       map[string]int       `json:"scores"`
	FinalScores  []protocol.Standing  `json:"final_scores,omitempty"`
}

// Info returns a summary of the room
func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{
		ID:           r.ID,
		State:        r.state,
		Capacity:     r.cfg.PlayersPerRoom,
		Participants: r.participantsLocked(),
		Humans:       r.humanCountLocked(),
		CreatedAt:    r.createdAt,
		Ticks:        r.game.Ticks(),
		Size:         r.game.Size(),
		Scores:       r.game.BestScores(),
		FinalScores:  r.finalScores,
	}
	if !r.startedAt.IsZero() {
		started := r.startedAt
		info.StartedAt = &started
		info.Remaining = r.remainingLocked().Seconds()
	}
	return info
}

func (r *Room) participantsLocked() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Room) humanCountLocked() int {
	n := 0
	for _, p := range r.participants {
		if p.Human {
			n++
		}
	}
	return n
}

func (r *Room) nameUsedLocked(name string) bool {
	for _, p := range r.participants {
		if p.Name == name {
			return true
		}
	}
	return false
}

// humanAddrsLocked returns every human address
func (r *Room) humanAddrsLocked() []string {
	addrs := make([]string, 0, len(r.participants))
	for _, p := range r.participants {
		if p.Human {
			addrs = append(addrs, p.Addr)
		}
	}
	sort.Strings(addrs)
	return addrs
}

func (r *Room) addrOfLocked(name string) (string, bool) {
	for _, p := range r.participants {
		if p.Human && p.Name == name {
			return p.Addr, true
		}
	}
	return "", false
}

func (r *Room) namesLocked() []string {
	names := make([]string, 0, len(r.participants))
	for _, p := range r.participants {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Room) joinDataLocked() protocol.JoinSuccessData {
	return protocol.JoinSuccessData{
		RoomID:         r.ID,
		CurrentPlayers: len(r.participants),
		MaxPlayers:     r.cfg.PlayersPerRoom,
	}
}

func (r *Room) waitingDataLocked() protocol.WaitingRoomData {
	return protocol.WaitingRoomData{
		RoomID:      r.ID,
		Players:     r.namesLocked(),
		NbPlayers:   r.cfg.PlayersPerRoom,
		GameStarted: r.state != Waiting,
		WaitingTime: r.botFillRemainingLocked().Seconds(),
	}
}

// botFillRemainingLocked is the time left before bots fill the room. The clock only runs once a human joined.
func (r *Room) botFillRemainingLocked() time.Duration {
	if r.firstHumanAt.IsZero() {
		return r.cfg.BotFillTimeout
	}
	remaining := r.cfg.BotFillTimeout - r.now().Sub(r.firstHumanAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *Room) remainingLocked() time.Duration {
	if r.startedAt.IsZero() {
		return r.cfg.GameDuration
	}
	end := r.now()
	if !r.endedAt.IsZero() {
		end = r.endedAt
	}
	remaining := r.cfg.GameDuration - end.Sub(r.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// send delivers to one address; failures are logged and never block the caller's other sends
func (r *Room) send(addr string, msg protocol.Message) {
	if err := r.deps.Sender.Send(addr, msg); err != nil {
		r.log.Printf("Warning: send %s to %s failed: %v", msg.Type, addr, err)
	}
}

// broadcast sends msg to every address and to spectators
func (r *Room) broadcast(addrs []string, msg protocol.Message) {
	for _, addr := range addrs {
		r.send(addr, msg)
	}
	if r.deps.Spectators != nil {
		r.deps.Spectators.Publish(r.ID, msg)
	}
}

func (r *Room) newAgent() agent.Agent {
	a, err := agent.New(r.cfg.AIKind, rand.New(rand.NewSource(r.deps.Rand.Int63())))
	if err != nil {
		r.log.Printf("Warning: %v, falling back to %s", err, agent.KindGreedy)
		return agent.NewGreedy()
	}
	return a
}
