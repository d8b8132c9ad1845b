package agent

import "github.com/wricardo/train-rush/game/engine"

// DefaultUnloadAt is the wagon count at which Greedy heads for the delivery zone
const DefaultUnloadAt = 3

// Greedy chases the nearest passenger and unloads in the delivery zone once it carries
// enough wagons. It only ever picks a safe heading.
type Greedy struct {
	UnloadAt int
}

// NewGreedy creates a greedy agent with default thresholds
func NewGreedy() *Greedy {
	return &Greedy{UnloadAt: DefaultUnloadAt}
}

// Decide implements Agent
func (g *Greedy) Decide(v View) Intent {
	if !v.Alive {
		return Intent{}
	}

	target, ok := g.target(v)
	safe := safeHeadings(v)
	if len(safe) == 0 {
		// Boxed in; drop weight so the body behind frees up sooner
		return Intent{DropWagon: len(v.Self.Wagons) > 0}
	}
	if !ok {
		return Intent{Direction: prefer(v.Self.Direction, safe)}
	}

	best := safe[0]
	bestDist := engine.ManhattanDistance(v.Self.Position.Add(best), target)
	for _, d := range safe[1:] {
		dist := engine.ManhattanDistance(v.Self.Position.Add(d), target)
		if dist < bestDist || (dist == bestDist && d == v.Self.Direction) {
			best, bestDist = d, dist
		}
	}
	return Intent{Direction: best}
}

func (g *Greedy) target(v View) (engine.Position, bool) {
	if g.UnloadAt > 0 && len(v.Self.Wagons) >= g.UnloadAt && v.Zone.Width > 0 {
		return engine.ZoneCenter(v.Zone), true
	}
	p, _, ok := engine.NearestPassenger(v.Self.Position, v.Passengers)
	return p.Position, ok
}

// prefer keeps the current heading when it is safe
func prefer(current engine.Direction, safe []engine.Direction) engine.Direction {
	for _, d := range safe {
		if d == current {
			return d
		}
	}
	return safe[0]
}
