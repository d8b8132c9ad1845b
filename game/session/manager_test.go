package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/protocol"
	"github.com/wricardo/train-rush/game/room"
	"github.com/wricardo/train-rush/game/scores"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]protocol.Message
}

func (f *fakeSender) Send(addr string, msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string][]protocol.Message)
	}
	f.sent[addr] = append(f.sent[addr], msg)
	return nil
}

func (f *fakeSender) of(addr, typ string) []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Message
	for _, m := range f.sent[addr] {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) count(addr, typ string) int {
	return len(f.of(addr, typ))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createTestManager(t *testing.T, playersPerRoom int) (*Manager, *fakeSender, *fakeClock) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Room.PlayersPerRoom = playersPerRoom
	cfg.Room.TickInterval = time.Hour

	sender := &fakeSender{}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := scores.NewStore(nil)
	store.Update("424242", 17)

	m, err := NewManager(cfg, Deps{Sender: sender, Scores: store, Now: clock.Now})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(m.Shutdown)
	return m, sender, clock
}

func roomOf(t *testing.T, m *Manager, addr string) *room.Room {
	t.Helper()
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[addr]
	if !ok || c.room == nil {
		t.Fatalf("Expected %s to be placed in a room", addr)
	}
	return c.room
}

func TestManager_RegisterClient(t *testing.T) {
	m, sender, _ := createTestManager(t, 2)

	if err := m.RegisterClient("10.0.0.1:1", "alice", "111111"); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	if sender.count("10.0.0.1:1", protocol.TypeJoinSuccess) != 1 || sender.count("10.0.0.1:1", protocol.TypeWaitingRoom) == 0 {
		t.Error("Expected join_success and waiting_room replies")
	}
	if m.RoomCount() != 1 {
		t.Errorf("Expected 1 room, got %d", m.RoomCount())
	}

	if err := m.RegisterClient("10.0.0.2:1", "bob", "222222"); err != nil {
		t.Fatalf("Register bob: %v", err)
	}
	r := roomOf(t, m, "10.0.0.1:1")
	if roomOf(t, m, "10.0.0.2:1") != r {
		t.Error("Expected both players in the same room")
	}
	if r.State() != room.Running {
		t.Errorf("Expected full room to start, got %s", r.State())
	}

	// A third player gets a fresh room
	if err := m.RegisterClient("10.0.0.3:1", "carol", "333333"); err != nil {
		t.Fatalf("Register carol: %v", err)
	}
	if roomOf(t, m, "10.0.0.3:1") == r {
		t.Error("Expected carol in a new room")
	}
	if m.RoomCount() != 2 {
		t.Errorf("Expected 2 rooms, got %d", m.RoomCount())
	}
}

func TestManager_IdentityUniqueness(t *testing.T) {
	m, _, _ := createTestManager(t, 4)

	if err := m.RegisterClient("a:1", "alice", "111111"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name    string
		addr    string
		player  string
		id      string
		wantErr error
	}{
		{"name taken", "b:1", "alice", "222222", ErrNameTaken},
		{"id taken", "b:1", "bob", "111111", ErrIDTaken},
		{"empty name", "b:1", "", "222222", ErrInvalidName},
		{"long name", "b:1", "abcdefghijklmnopqrstuvwxyz0123456789", "222222", ErrInvalidName},
		{"non numeric id", "b:1", "bob", "12ab", ErrInvalidID},
		{"empty id", "b:1", "bob", "", ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.RegisterClient(tt.addr, tt.player, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if m.ClientCount() != 1 {
		t.Errorf("Expected failed registrations to leave no binding, got %d clients", m.ClientCount())
	}
}

func TestManager_AINamesCountAsTaken(t *testing.T) {
	m, _, _ := createTestManager(t, 2)

	name := m.AcquireAIName()
	if name != "Bot-1" {
		t.Fatalf("Expected Bot-1, got %s", name)
	}
	if err := m.RegisterClient("a:1", name, "111111"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected ErrNameTaken for AI name, got %v", err)
	}
	if m.NameAvailable("a:1", name) {
		t.Error("Expected AI name to be unavailable")
	}

	m.ReleaseAIName(name)
	if err := m.RegisterClient("a:1", name, "111111"); err != nil {
		t.Errorf("Expected released AI name to be usable, got %v", err)
	}
	if next := m.AcquireAIName(); next == name {
		t.Errorf("Expected pool to skip a human's name, got %s", next)
	}
}

func TestManager_Reregister(t *testing.T) {
	m, sender, _ := createTestManager(t, 3)

	if err := m.RegisterClient("a:1", "alice", "111111"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("same identity is idempotent", func(t *testing.T) {
		if err := m.RegisterClient("a:1", "alice", "111111"); err != nil {
			t.Fatalf("Re-register: %v", err)
		}
		if n := sender.count("a:1", protocol.TypeJoinSuccess); n != 2 {
			t.Errorf("Expected join_success re-sent, got %d", n)
		}
		if m.RoomCount() != 1 || m.ClientCount() != 1 {
			t.Errorf("Expected no new room or client, got rooms=%d clients=%d", m.RoomCount(), m.ClientCount())
		}
	})

	t.Run("rename while waiting", func(t *testing.T) {
		if err := m.RegisterClient("a:1", "alicia", "111111"); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		if name, _ := m.Registered("a:1"); name != "alicia" {
			t.Errorf("Expected alicia, got %s", name)
		}
		if !m.NameAvailable("b:1", "alice") {
			t.Error("Expected old name to be released")
		}
		participants := roomOf(t, m, "a:1").Participants()
		if len(participants) != 1 || participants[0].Name != "alicia" {
			t.Errorf("Expected room to see the new name, got %+v", participants)
		}
	})

	t.Run("rename after start is rejected", func(t *testing.T) {
		_ = m.RegisterClient("b:1", "bob", "222222")
		_ = m.RegisterClient("c:1", "carol", "333333")
		if roomOf(t, m, "a:1").State() != room.Running {
			t.Fatal("Expected room to be running")
		}
		if err := m.RegisterClient("a:1", "al", "111111"); !errors.Is(err, ErrAlreadyPlaying) {
			t.Errorf("Expected ErrAlreadyPlaying, got %v", err)
		}
		if name, _ := m.Registered("a:1"); name != "alicia" {
			t.Errorf("Expected name unchanged, got %s", name)
		}
		if !m.NameAvailable("z:1", "al") {
			t.Error("Expected rejected name to stay free")
		}
	})
}

func TestManager_Disconnect(t *testing.T) {
	m, sender, _ := createTestManager(t, 2)

	_ = m.RegisterClient("a:1", "alice", "111111")
	m.Disconnect("a:1", "bye")

	if sender.count("a:1", protocol.TypeDisconnect) != 1 {
		t.Error("Expected disconnect message")
	}
	if m.ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", m.ClientCount())
	}
	if m.RoomCount() != 0 {
		t.Errorf("Expected the empty room to close, got %d rooms", m.RoomCount())
	}

	// Idempotent
	m.Disconnect("a:1", "bye")
	if sender.count("a:1", protocol.TypeDisconnect) != 1 {
		t.Error("Expected a second disconnect to be a no-op")
	}

	// Bindings are released
	if err := m.RegisterClient("b:1", "alice", "111111"); err != nil {
		t.Errorf("Expected name and id to be free again, got %v", err)
	}
}

func TestManager_DisconnectTakeover(t *testing.T) {
	m, _, _ := createTestManager(t, 3)

	_ = m.RegisterClient("a:1", "alice", "111111")
	_ = m.RegisterClient("b:1", "bob", "222222")
	_ = m.RegisterClient("c:1", "carol", "333333")
	r := roomOf(t, m, "a:1")

	m.Disconnect("c:1", "bye")

	if r.State() != room.Running {
		t.Fatalf("Expected room to keep running, got %s", r.State())
	}
	if m.NameAvailable("z:1", "carol") {
		t.Error("Expected carol's name to be held by the AI stand-in")
	}
	if m.AINames() != 1 {
		t.Errorf("Expected one AI name in use, got %d", m.AINames())
	}

	m.Disconnect("a:1", "bye")
	m.Disconnect("b:1", "bye")
	if r.State() != room.Closed {
		t.Errorf("Expected room to close when no human remains, got %s", r.State())
	}
	if m.AINames() != 0 {
		t.Errorf("Expected AI names released, got %d", m.AINames())
	}
}

func TestManager_Probes(t *testing.T) {
	m, sender, _ := createTestManager(t, 2)
	_ = m.RegisterClient("a:1", "alice", "111111")

	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypeCheckName, AgentName: "alice"})
	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypeCheckName, AgentName: "zed"})
	checks := sender.of("x:1", protocol.TypeNameCheck)
	if len(checks) != 2 || *checks[0].Available || !*checks[1].Available {
		t.Errorf("Unexpected name checks %+v", checks)
	}

	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypeCheckSciper, AgentSciper: "424242"})
	sciper := sender.of("x:1", protocol.TypeSciperCheck)
	if len(sciper) != 1 || !*sciper[0].Available || sciper[0].BestScore == nil || *sciper[0].BestScore != 17 {
		t.Errorf("Expected available id with best score 17, got %+v", sciper)
	}
	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypeCheckSciper, AgentSciper: "111111"})
	sciper = sender.of("x:1", protocol.TypeSciperCheck)
	if len(sciper) != 2 || *sciper[1].Available || sciper[1].BestScore != nil {
		t.Errorf("Expected taken id without best score, got %+v", sciper[1])
	}

	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypePing})
	if sender.count("x:1", protocol.TypePong) != 1 {
		t.Error("Expected pong")
	}
	if sender.count("x:1", protocol.TypeDisconnect) != 0 {
		t.Error("Expected probes to be answered without a disconnect")
	}
}

func TestManager_UnregisteredCooldown(t *testing.T) {
	m, sender, clock := createTestManager(t, 2)
	dir := [2]int{1, 0}
	action := protocol.Inbound{Action: protocol.ActionDirection, Direction: &dir}

	m.RouteMessage("x:1", action)
	m.RouteMessage("x:1", action)
	m.RouteMessage("x:1", protocol.Inbound{Type: protocol.TypePong})
	if n := sender.count("x:1", protocol.TypeDisconnect); n != 1 {
		t.Fatalf("Expected exactly one disconnect during cooldown, got %d", n)
	}

	clock.Advance(m.cfg.Server.UnregisteredCooldown + time.Second)
	m.RouteMessage("x:1", action)
	if n := sender.count("x:1", protocol.TypeDisconnect); n != 2 {
		t.Errorf("Expected another disconnect after cooldown, got %d", n)
	}
}

func TestManager_Liveness(t *testing.T) {
	t.Run("missed pong disconnects", func(t *testing.T) {
		m, sender, _ := createTestManager(t, 2)
		_ = m.RegisterClient("a:1", "alice", "111111")

		m.Sweep()
		if sender.count("a:1", protocol.TypePing) != 1 {
			t.Fatal("Expected a ping on the first sweep")
		}
		m.Sweep()
		if _, ok := m.Registered("a:1"); ok {
			t.Error("Expected client without pong to be disconnected")
		}
	})

	t.Run("pong keeps client", func(t *testing.T) {
		m, sender, _ := createTestManager(t, 2)
		_ = m.RegisterClient("a:1", "alice", "111111")

		for i := 0; i < 3; i++ {
			m.Sweep()
			m.RouteMessage("a:1", protocol.Inbound{Type: protocol.TypePong})
		}
		if _, ok := m.Registered("a:1"); !ok {
			t.Error("Expected responsive client to stay registered")
		}
		if sender.count("a:1", protocol.TypePing) != 3 {
			t.Errorf("Expected 3 pings, got %d", sender.count("a:1", protocol.TypePing))
		}
	})

	t.Run("inactivity disconnects", func(t *testing.T) {
		m, sender, clock := createTestManager(t, 2)
		_ = m.RegisterClient("a:1", "alice", "111111")

		clock.Advance(m.cfg.Server.InactivityTimeout)
		m.Sweep()
		if _, ok := m.Registered("a:1"); ok {
			t.Error("Expected inactive client to be disconnected")
		}
		msgs := sender.of("a:1", protocol.TypeDisconnect)
		if len(msgs) != 1 || msgs[0].Reason != "inactive" {
			t.Errorf("Expected inactive disconnect, got %+v", msgs)
		}
	})
}

func TestManager_HandleDatagram(t *testing.T) {
	m, sender, _ := createTestManager(t, 2)

	datagram := []byte(`{"type":"agent_ids","agent_name":"alice","agent_sciper":"111111"}` + "\n" +
		`not json` + "\n" +
		`{"type":"ping"}` + "\n")
	m.HandleDatagram("a:1", datagram)

	if _, ok := m.Registered("a:1"); !ok {
		t.Error("Expected registration from the first line")
	}
	if sender.count("a:1", protocol.TypePong) != 1 {
		t.Error("Expected the line after a bad one to be handled")
	}

	// Conflicting registration is answered with a disconnect
	m.HandleDatagram("b:1", []byte(`{"type":"agent_ids","agent_name":"alice","agent_sciper":222222}`))
	msgs := sender.of("b:1", protocol.TypeDisconnect)
	if len(msgs) != 1 || msgs[0].Reason != ErrNameTaken.Error() {
		t.Errorf("Expected name taken disconnect, got %+v", msgs)
	}
}

func TestManager_Shutdown(t *testing.T) {
	m, sender, _ := createTestManager(t, 3)
	_ = m.RegisterClient("a:1", "alice", "111111")
	_ = m.RegisterClient("b:1", "bob", "222222")

	m.Shutdown()

	for _, addr := range []string{"a:1", "b:1"} {
		if sender.count(addr, protocol.TypeDisconnect) != 1 {
			t.Errorf("Expected %s to be disconnected", addr)
		}
	}
	if m.RoomCount() != 0 || m.ClientCount() != 0 {
		t.Errorf("Expected empty manager, got rooms=%d clients=%d", m.RoomCount(), m.ClientCount())
	}
	if err := m.RegisterClient("c:1", "carol", "333333"); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Expected ErrShuttingDown, got %v", err)
	}
}

func TestManager_RoomLookup(t *testing.T) {
	m, _, _ := createTestManager(t, 2)
	_ = m.RegisterClient("a:1", "alice", "111111")

	rooms := m.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("Expected 1 room, got %d", len(rooms))
	}
	got, err := m.Room(rooms[0].ID)
	if err != nil || got != rooms[0] {
		t.Errorf("Expected room lookup to succeed, got %v", err)
	}
	if _, err := m.Room("nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}
