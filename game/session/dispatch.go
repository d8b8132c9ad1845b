package session

import (
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wricardo/train-rush/game/protocol"
	"github.com/wricardo/train-rush/game/room"
)

// HandleDatagram decodes every message in a datagram and routes them in order
func (m *Manager) HandleDatagram(addr string, data []byte) {
	msgs, errs := protocol.Decode(data)
	for _, err := range errs {
		m.log.Printf("Warning: dropping message from %s: %v", addr, err)
	}
	for _, msg := range msgs {
		m.RouteMessage(addr, msg)
	}
}

// RouteMessage handles one decoded message from addr. Probes are answered for anyone;
// everything else needs a registered address.
func (m *Manager) RouteMessage(addr string, msg protocol.Inbound) {
	c := m.touch(addr, msg.Kind() == protocol.TypePong)

	switch msg.Kind() {
	case protocol.TypeCheckName:
		m.send(addr, protocol.NameCheck(m.NameAvailable(addr, strings.TrimSpace(msg.AgentName))))
		return
	case protocol.TypeCheckSciper:
		id := string(msg.AgentSciper)
		best, known := m.deps.Scores.Get(id)
		m.send(addr, protocol.SciperCheck(m.IDAvailable(addr, id), best, known))
		return
	case protocol.TypePing:
		m.send(addr, protocol.Pong())
		return
	case protocol.TypeAgentIDs:
		if err := m.RegisterClient(addr, msg.AgentName, string(msg.AgentSciper)); err != nil {
			m.log.Printf("Registration from %s refused: %v", addr, err)
			m.send(addr, protocol.Disconnect(err.Error()))
		}
		return
	}

	if c == nil {
		m.unregisteredSender(addr)
		return
	}
	if msg.Kind() == protocol.TypePong {
		return
	}

	m.mu.RLock()
	r := c.room
	m.mu.RUnlock()
	if r == nil {
		return
	}
	if err := r.HandleAction(addr, msg); err != nil && errors.Is(err, room.ErrInvalidAction) {
		m.log.Printf("Warning: %s: %v", c.name, err)
	}
}

// touch records activity for a registered address and returns its client
func (m *Manager) touch(addr string, pong bool) *client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[addr]
	if !ok {
		return nil
	}
	c.lastSeen = m.now()
	if pong {
		c.pinged = false
	}
	return c
}

// unregisteredSender answers once with a disconnect, then stays silent for the cooldown
func (m *Manager) unregisteredSender(addr string) {
	m.mu.Lock()
	l, ok := m.unregistered[addr]
	if !ok {
		l = &limiter{lim: rate.NewLimiter(rate.Every(m.cfg.Server.UnregisteredCooldown), 1)}
		m.unregistered[addr] = l
	}
	l.last = m.now()
	allow := l.lim.AllowN(l.last, 1)
	reason := ErrNotRegistered.Error()
	if _, gone := m.disconnected[addr]; gone {
		reason = "disconnected"
	}
	m.mu.Unlock()

	if allow {
		m.send(addr, protocol.Disconnect(reason))
	}
}

// NameAvailable reports whether addr could register name
func (m *Manager) NameAvailable(addr, name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.names[name]; ok && a != addr {
		return false
	}
	return !m.aiNames[name]
}

// IDAvailable reports whether addr could register id
func (m *Manager) IDAvailable(addr, id string) bool {
	if !protocol.ID(id).Valid() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.ids[id]
	return !ok || a == addr
}
