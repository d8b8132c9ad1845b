package room

import (
	"runtime/debug"
	"time"

	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/protocol"
)

// waitingLoop broadcasts the waiting room until the game starts, filling with bots once the deadline passes
func (r *Room) waitingLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.WaitingBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		if r.state != Waiting {
			r.mu.Unlock()
			return
		}
		data := r.waitingDataLocked()
		addrs := r.humanAddrsLocked()
		due := !r.firstHumanAt.IsZero() && !r.botFilled && r.botFillRemainingLocked() <= 0
		r.mu.Unlock()

		r.broadcast(addrs, protocol.WaitingRoom(data))
		if due {
			r.fillWithBots()
			return
		}
	}
}

// tickLoop advances the simulation at a fixed rate
func (r *Room) tickLoop() {
	defer close(r.tickDone)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
		if !r.step() {
			return
		}
	}
}

type death struct {
	addr      string
	remaining float64
}

// step runs one tick and notifies dead humans. It reports whether the game is still running.
func (r *Room) step() (running bool) {
	running = true
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Printf("Warning: tick panicked: %v\n%s", rec, debug.Stack())
		}
	}()

	events, deaths, ok := r.tick()
	if !ok {
		return false
	}
	for _, ev := range events {
		if ev.Kind == engine.EventDeath {
			r.log.Printf("%s died (%s)", ev.Train, ev.Cause)
		}
	}
	for _, d := range deaths {
		r.send(d.addr, protocol.Death(d.remaining))
	}
	return true
}

func (r *Room) tick() ([]engine.Event, []death, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Running || !r.game.Running() {
		return nil, nil, false
	}
	events := r.game.Tick()
	var deaths []death
	for _, ev := range events {
		if ev.Kind != engine.EventDeath {
			continue
		}
		if addr, ok := r.addrOfLocked(ev.Train); ok {
			deaths = append(deaths, death{addr: addr, remaining: r.game.RespawnRemaining(ev.Train).Seconds()})
		}
	}
	return events, deaths, true
}

// broadcastLoop sends the full state once, then diffs whenever something changed
func (r *Room) broadcastLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
		if !r.broadcastState() {
			return
		}
	}
}

func (r *Room) broadcastState() (running bool) {
	running = true
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Printf("Warning: broadcast panicked: %v\n%s", rec, debug.Stack())
		}
	}()

	snap, addrs, send, ok := r.nextSnapshot()
	if !ok {
		return false
	}
	if send {
		r.broadcast(addrs, protocol.State(snap))
	}
	return true
}

// nextSnapshot returns the full state on first use and the diff afterwards
func (r *Room) nextSnapshot() (snap engine.Snapshot, addrs []string, send, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Running {
		return snap, nil, false, false
	}
	switch {
	case !r.sentFull:
		snap = r.game.Full()
		r.game.Diff()
		r.sentFull = true
	case r.game.Dirty():
		snap = r.game.Diff()
	default:
		return snap, nil, false, true
	}
	return snap, r.humanAddrsLocked(), true, true
}

// timerLoop ends the game once its duration elapsed
func (r *Room) timerLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.TimerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		state := r.state
		expired := state == Running && r.remainingLocked() <= 0
		r.mu.Unlock()

		if state != Running {
			return
		}
		if expired {
			r.endGame()
			return
		}
	}
}
