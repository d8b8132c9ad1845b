package room

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/wricardo/train-rush/game/agent"
	"github.com/wricardo/train-rush/game/engine"
)

// AIClient drives one train through the room's command surface, like a remote player would
type AIClient struct {
	room     *Room
	name     string
	agent    agent.Agent
	interval time.Duration
	log      *log.Logger

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	mu        sync.Mutex
}

func newAIClient(r *Room, name string, a agent.Agent, interval time.Duration, logger *log.Logger) *AIClient {
	return &AIClient{
		room:     r,
		name:     name,
		agent:    a,
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the train name the client controls
func (c *AIClient) Name() string {
	return c.name
}

// Start launches the polling goroutine
func (c *AIClient) Start() {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
		go c.run()
	})
}

// Stop ends the polling goroutine and waits for it
func (c *AIClient) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

func (c *AIClient) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
		if !c.poll() {
			return
		}
	}
}

// poll makes one decision. It reports false once the room no longer needs the client.
func (c *AIClient) poll() bool {
	view, running := c.room.AIView(c.name)
	if !running {
		switch c.room.State() {
		case Waiting:
			if !c.room.Joinable() {
				_ = c.room.StartGame()
			}
			return true
		default:
			return false
		}
	}

	if !view.Alive {
		if c.room.RespawnRemaining(c.name) > 0 {
			return true
		}
		if err := c.room.RequestRespawn(c.name); err != nil && !errors.Is(err, engine.ErrRespawnCooldown) {
			c.log.Printf("AI %s respawn failed: %v", c.name, err)
		}
		return true
	}

	intent := c.agent.Decide(view)
	if intent.Direction.Valid() && intent.Direction != view.Self.Direction {
		if err := c.room.ChangeDirection(c.name, intent.Direction); err != nil &&
			!errors.Is(err, engine.ErrTurnTooSoon) && !errors.Is(err, engine.ErrTrainNotFound) {
			c.log.Printf("AI %s direction rejected: %v", c.name, err)
		}
	}
	if intent.DropWagon {
		_, _ = c.room.DropWagon(c.name)
	}
	return true
}
