package session

import (
	"context"
	"sort"
	"time"

	"github.com/wricardo/train-rush/game/protocol"
)

// Run sweeps client liveness every ping interval until ctx is done
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Server.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep disconnects clients that missed the previous ping or went silent, and pings the rest
func (m *Manager) Sweep() {
	now := m.now()
	drop := make(map[string]string)
	var ping []string

	m.mu.Lock()
	for addr, c := range m.clients {
		switch {
		case c.pinged:
			drop[addr] = "ping timeout"
		case now.Sub(c.lastSeen) >= m.cfg.Server.InactivityTimeout:
			drop[addr] = "inactive"
		default:
			c.pinged = true
			ping = append(ping, addr)
		}
	}
	cooldown := m.cfg.Server.UnregisteredCooldown
	for addr, l := range m.unregistered {
		if now.Sub(l.last) > cooldown {
			delete(m.unregistered, addr)
		}
	}
	for addr, at := range m.disconnected {
		if now.Sub(at) > cooldown {
			delete(m.disconnected, addr)
		}
	}
	m.mu.Unlock()

	addrs := make([]string, 0, len(drop))
	for addr := range drop {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		m.Disconnect(addr, drop[addr])
	}
	for _, addr := range ping {
		m.send(addr, protocol.Ping())
	}
}
