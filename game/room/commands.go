package room

import (
	"fmt"

	"github.com/wricardo/train-rush/game/agent"
	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/protocol"
)

// HandleAction applies a game command from a human address and sends the reply the command calls for
func (r *Room) HandleAction(addr string, msg protocol.Inbound) error {
	r.mu.Lock()
	p, ok := r.participants[addr]
	var name string
	if ok {
		name = p.Name
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotInRoom
	}

	switch msg.Action {
	case protocol.ActionDirection:
		if msg.Direction == nil {
			return fmt.Errorf("%w: direction missing", ErrInvalidAction)
		}
		d := engine.Direction{DX: msg.Direction[0], DY: msg.Direction[1]}
		return r.ChangeDirection(name, d)

	case protocol.ActionRespawn:
		if err := r.RequestRespawn(name); err != nil {
			r.send(addr, protocol.RespawnFailed(err.Error()))
			return err
		}
		r.send(addr, protocol.SpawnSuccess(name))
		return nil

	case protocol.ActionDropWagon:
		pos, err := r.DropWagon(name)
		if err != nil {
			r.send(addr, protocol.DropWagonFailed(err.Error()))
			return err
		}
		r.send(addr, protocol.DropWagonSuccess(pos))
		return nil

	case protocol.ActionStartGame:
		return r.StartGame()
	}
	return fmt.Errorf("%w: %q", ErrInvalidAction, msg.Kind())
}

// ChangeDirection requests a new heading for the named train
func (r *Room) ChangeDirection(name string, d engine.Direction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Running {
		return engine.ErrGameNotRunning
	}
	return r.game.SetDirection(name, d)
}

// DropWagon releases the named train's tail wagon as a passenger
func (r *Room) DropWagon(name string) (engine.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Running {
		return engine.Position{}, engine.ErrGameNotRunning
	}
	return r.game.DropWagon(name)
}

// RequestRespawn spawns a new train for a player whose previous one died
func (r *Room) RequestRespawn(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Running {
		return engine.ErrGameNotRunning
	}
	_, err := r.game.Respawn(name)
	return err
}

// StartGame starts a waiting room early, provided at least one participant is present
func (r *Room) StartGame() error {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	if state != Waiting {
		return ErrRoomStarted
	}
	r.Start()
	return nil
}

// RespawnRemaining returns the cooldown left for the named player
func (r *Room) RespawnRemaining(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.RespawnRemaining(name).Seconds()
}

// AIView captures what an agent may see. The second value reports whether the room is still running.
func (r *Room) AIView(name string) (agent.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Running {
		return agent.View{}, false
	}
	full := r.game.Full()
	self, alive := full.Trains[name]
	return agent.View{
		Name:       name,
		Self:       self,
		Alive:      alive && self.Alive,
		Trains:     full.Trains,
		Passengers: full.Passengers,
		Size:       r.game.Size(),
		Zone:       r.game.Zone(),
	}, true
}
