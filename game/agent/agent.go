// Package agent holds the decision algorithms that drive bot trains.
//
// An Agent only sees a View copied out of the game under the room lock and returns an
// Intent; it never touches the game itself. The room applies the intent through the same
// command surface a networked client uses.
package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wricardo/train-rush/game/engine"
)

// Agent kinds accepted by New
const (
	KindGreedy   = "greedy"
	KindWanderer = "wanderer"
)

var ErrUnknownKind = errors.New("unknown agent kind")

// View is the read-only picture of the world an agent decides from
type View struct {
	Name       string
	Self       engine.TrainState
	Alive      bool
	Trains     map[string]engine.TrainState
	Passengers []engine.PassengerState
	Size       engine.Size
	Zone       engine.DeliveryZone
}

// Intent is what an agent wants to happen on its train.
// A zero Direction keeps the current heading.
type Intent struct {
	Direction engine.Direction
	DropWagon bool
}

// Agent decides the next move for one train
type Agent interface {
	Decide(View) Intent
}

// New returns the agent registered under kind
func New(kind string, rng *rand.Rand) (Agent, error) {
	switch kind {
	case KindGreedy, "":
		return NewGreedy(), nil
	case KindWanderer:
		return NewWanderer(rng), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// blocked returns every cell a head must not enter next tick
func blocked(v View) map[engine.Position]bool {
	cells := make(map[engine.Position]bool)
	for _, t := range v.Trains {
		if !t.Alive {
			continue
		}
		if t.Name != v.Name {
			cells[t.Position] = true
			cells[t.Position.Add(t.Direction)] = true
		}
		for _, w := range t.Wagons {
			cells[w] = true
		}
	}
	return cells
}

// safeHeadings lists the headings whose next cell is inside the world and unoccupied
func safeHeadings(v View) []engine.Direction {
	occ := blocked(v)
	var safe []engine.Direction
	for _, d := range engine.Directions {
		if d == v.Self.Direction.Reverse() {
			continue
		}
		next := v.Self.Position.Add(d)
		if v.Size.Contains(next) && !occ[next] {
			safe = append(safe, d)
		}
	}
	return safe
}
