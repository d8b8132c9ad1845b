package session

import "strconv"

// AcquireAIName reserves the next free Bot-<n> name
func (m *Manager) AcquireAIName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		m.nextBot++
		name := "Bot-" + strconv.Itoa(m.nextBot)
		if _, human := m.names[name]; human || m.aiNames[name] {
			continue
		}
		m.aiNames[name] = true
		return name
	}
}

// ClaimAIName reserves a specific name for an AI, as when one takes over a player's train
func (m *Manager) ClaimAIName(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, human := m.names[name]; human || m.aiNames[name] {
		return false
	}
	m.aiNames[name] = true
	return true
}

// ReleaseAIName returns a name to the pool
func (m *Manager) ReleaseAIName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.aiNames, name)
}

// AINames returns the number of AI names in use
func (m *Manager) AINames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aiNames)
}
