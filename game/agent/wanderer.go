package agent

import (
	"math/rand"
	"sync"
	"time"
)

// Wanderer drives straight and turns at random, either when blocked or now and then
type Wanderer struct {
	TurnChance float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWanderer creates a wanderer; a nil rng is seeded from the clock
func NewWanderer(rng *rand.Rand) *Wanderer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Wanderer{TurnChance: 0.1, rng: rng}
}

// Decide implements Agent
func (w *Wanderer) Decide(v View) Intent {
	if !v.Alive {
		return Intent{}
	}
	safe := safeHeadings(v)
	if len(safe) == 0 {
		return Intent{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	straight := false
	for _, d := range safe {
		if d == v.Self.Direction {
			straight = true
		}
	}
	if straight && w.rng.Float64() >= w.TurnChance {
		return Intent{Direction: v.Self.Direction}
	}
	return Intent{Direction: safe[w.rng.Intn(len(safe))]}
}
