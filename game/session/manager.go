package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/protocol"
	"github.com/wricardo/train-rush/game/room"
	"github.com/wricardo/train-rush/game/scores"
)

// MaxNameLength bounds player names
const MaxNameLength = 32

var (
	ErrNameTaken      = errors.New("name already in use")
	ErrIDTaken        = errors.New("id already in use")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidID      = errors.New("invalid id")
	ErrAlreadyPlaying = errors.New("already playing in a started room")
	ErrNotRegistered  = errors.New("address is not registered")
	ErrRoomNotFound   = errors.New("room not found")
	ErrShuttingDown   = errors.New("server is shutting down")
)

// Deps are the collaborators shared by every room. Sender is required.
type Deps struct {
	Sender     room.Sender
	Spectators room.Spectators
	Scores     *scores.Store
	Recorder   history.Recorder
	Logger     *log.Logger
	Now        func() time.Time
}

type client struct {
	addr     string
	name     string
	id       string
	room     *room.Room
	lastSeen time.Time
	pinged   bool
}

type limiter struct {
	lim  *rate.Limiter
	last time.Time
}

// Manager demultiplexes datagrams by address, owns identity bindings and the room table
type Manager struct {
	cfg  *config.Config
	deps Deps
	log  *log.Logger
	now  func() time.Time

	mu           sync.RWMutex
	rooms        map[string]*room.Room
	order        []string
	clients      map[string]*client // addr -> client
	names        map[string]string  // name -> addr
	ids          map[string]string  // id -> addr
	aiNames      map[string]bool
	nextBot      int
	unregistered map[string]*limiter
	disconnected map[string]time.Time
	closed       bool
}

// NewManager creates a session manager. The configuration must already be validated.
func NewManager(cfg *config.Config, deps Deps) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session: config is required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("session: sender is required")
	}
	if deps.Scores == nil {
		deps.Scores = scores.NewStore(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[session] ", log.Flags())
	}

	return &Manager{
		cfg:          cfg,
		deps:         deps,
		log:          logger,
		now:          deps.Now,
		rooms:        make(map[string]*room.Room),
		clients:      make(map[string]*client),
		names:        make(map[string]string),
		ids:          make(map[string]string),
		aiNames:      make(map[string]bool),
		unregistered: make(map[string]*limiter),
		disconnected: make(map[string]time.Time),
	}, nil
}

// Config returns the configuration rooms are created with
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Scores returns the high-score store
func (m *Manager) Scores() *scores.Store {
	return m.deps.Scores
}

// ValidateIdentity checks a name and id pair
func ValidateIdentity(name, id string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidName, MaxNameLength)
	}
	if strings.HasPrefix(name, "ai:") {
		return fmt.Errorf("%w: reserved prefix", ErrInvalidName)
	}
	if !protocol.ID(id).Valid() {
		return fmt.Errorf("%w: must be digits", ErrInvalidID)
	}
	return nil
}

// RegisterClient binds name and id to addr and places the client in a room
func (m *Manager) RegisterClient(addr, name, id string) error {
	name = strings.TrimSpace(name)
	if err := ValidateIdentity(name, id); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShuttingDown
	}
	if c, ok := m.clients[addr]; ok {
		m.mu.Unlock()
		return m.reregister(c, name, id)
	}
	if err := m.conflictLocked(addr, name, id); err != nil {
		m.mu.Unlock()
		return err
	}

	c := &client{addr: addr, name: name, id: id, lastSeen: m.now()}
	m.clients[addr] = c
	m.names[name] = addr
	m.ids[id] = addr
	delete(m.disconnected, addr)
	delete(m.unregistered, addr)
	candidates := m.waitingRoomsLocked()
	m.mu.Unlock()

	r, err := m.place(addr, name, id, candidates)
	if err != nil {
		m.mu.Lock()
		m.unbindLocked(c)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	current, still := m.clients[addr]
	if still && current == c {
		c.room = r
	}
	m.mu.Unlock()

	if !still || current != c {
		// Disconnected while being placed
		r.RemoveParticipant(addr)
		return nil
	}
	m.log.Printf("%s (%s) registered from %s in room %s", name, id, addr, r.ID)
	return nil
}

// reregister handles an address that is already bound: the same identity repeats join_success,
// a new identity renames the player while its room is still waiting
func (m *Manager) reregister(c *client, name, id string) error {
	m.mu.Lock()
	r := c.room
	if c.name == name && c.id == id {
		m.mu.Unlock()
		if r != nil {
			r.SendJoin(c.addr)
		}
		return nil
	}
	if err := m.conflictLocked(c.addr, name, id); err != nil {
		m.mu.Unlock()
		return err
	}
	if r == nil {
		m.mu.Unlock()
		return ErrAlreadyPlaying
	}
	oldName, oldID := c.name, c.id
	m.names[name] = c.addr
	m.ids[id] = c.addr
	m.mu.Unlock()

	if err := r.Rename(c.addr, name, id); err != nil {
		m.mu.Lock()
		if name != oldName {
			delete(m.names, name)
		}
		if id != oldID {
			delete(m.ids, id)
		}
		m.mu.Unlock()
		if errors.Is(err, room.ErrRoomStarted) {
			return ErrAlreadyPlaying
		}
		return err
	}

	m.mu.Lock()
	if name != oldName && m.names[oldName] == c.addr {
		delete(m.names, oldName)
	}
	if id != oldID && m.ids[oldID] == c.addr {
		delete(m.ids, oldID)
	}
	c.name, c.id = name, id
	m.mu.Unlock()

	m.log.Printf("%s renamed to %s", oldName, name)
	r.SendJoin(c.addr)
	return nil
}

func (m *Manager) conflictLocked(addr, name, id string) error {
	if a, ok := m.names[name]; ok && a != addr {
		return ErrNameTaken
	}
	if m.aiNames[name] {
		return ErrNameTaken
	}
	if a, ok := m.ids[id]; ok && a != addr {
		return ErrIDTaken
	}
	return nil
}

func (m *Manager) unbindLocked(c *client) {
	if cur, ok := m.clients[c.addr]; ok && cur == c {
		delete(m.clients, c.addr)
	}
	if m.names[c.name] == c.addr {
		delete(m.names, c.name)
	}
	if m.ids[c.id] == c.addr {
		delete(m.ids, c.id)
	}
}

func (m *Manager) waitingRoomsLocked() []*room.Room {
	out := make([]*room.Room, 0, len(m.order))
	for _, id := range m.order {
		if r, ok := m.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// place joins the first room that accepts the client, creating one when none does
func (m *Manager) place(addr, name, id string, candidates []*room.Room) (*room.Room, error) {
	for _, r := range candidates {
		if !r.Joinable() {
			continue
		}
		if err := r.Join(addr, name, id); err == nil {
			return r, nil
		}
	}

	r, err := m.createRoom()
	if err != nil {
		return nil, err
	}
	if err := r.Join(addr, name, id); err != nil {
		return nil, fmt.Errorf("join new room: %w", err)
	}
	return r, nil
}

func (m *Manager) createRoom() (*room.Room, error) {
	r, err := room.New(m.cfg.Room, m.cfg.Game, room.Deps{
		Sender:     m.deps.Sender,
		Spectators: m.deps.Spectators,
		Scores:     m.deps.Scores,
		Recorder:   m.deps.Recorder,
		Names:      m,
		OnClosed:   m.roomClosed,
		Now:        m.now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		r.Close()
		return nil, ErrShuttingDown
	}
	m.rooms[r.ID] = r
	m.order = append(m.order, r.ID)
	total := len(m.rooms)
	m.mu.Unlock()

	m.log.Printf("Created room %s (%d active)", r.ID, total)
	return r, nil
}

// roomClosed drops the room from the table and releases whoever was still bound to it
func (m *Manager) roomClosed(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	var released []string
	for addr, c := range m.clients {
		if c.room != nil && c.room.ID == id {
			m.unbindLocked(c)
			m.disconnected[addr] = m.now()
			released = append(released, addr)
		}
	}
	m.mu.Unlock()

	for _, addr := range released {
		m.send(addr, protocol.Disconnect("room closed"))
	}
}

// Disconnect releases an address. Calling it for an unknown address is a no-op.
func (m *Manager) Disconnect(addr, reason string) {
	m.mu.Lock()
	c, ok := m.clients[addr]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.unbindLocked(c)
	m.disconnected[addr] = m.now()
	r := c.room
	m.mu.Unlock()

	m.send(addr, protocol.Disconnect(reason))
	if r != nil {
		r.RemoveParticipant(addr)
	}
	m.log.Printf("%s disconnected: %s", c.name, reason)
}

// Room returns the room with the given id
func (m *Manager) Room(id string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[strings.ToLower(id)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Rooms returns every live room in creation order
func (m *Manager) Rooms() []*room.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waitingRoomsLocked()
}

// RoomCount returns the number of live rooms
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// ClientCount returns the number of registered addresses
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Registered reports the name bound to addr
func (m *Manager) Registered(addr string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[addr]
	if !ok {
		return "", false
	}
	return c.name, true
}

// Shutdown disconnects every client and closes every room
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	addrs := make([]string, 0, len(m.clients))
	for addr := range m.clients {
		addrs = append(addrs, addr)
	}
	rooms := m.waitingRoomsLocked()
	m.mu.Unlock()

	m.log.Printf("Shutting down: %d clients, %d rooms", len(addrs), len(rooms))
	for _, addr := range addrs {
		m.Disconnect(addr, "server shutting down")
	}
	for _, r := range rooms {
		r.Close()
	}
}

func (m *Manager) send(addr string, msg protocol.Message) {
	if err := m.deps.Sender.Send(addr, msg); err != nil {
		m.log.Printf("Warning: send %s to %s failed: %v", msg.Type, addr, err)
	}
}
