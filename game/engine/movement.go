package engine

// Collision causes reported in death events
const (
	CauseWall   = "wall"
	CauseTrain  = "train"
	CauseWagon  = "wagon"
	CauseHeadOn = "head_on"
)

// Tick advances the world by one step and returns what happened.
//
// Order: every alive train moves, then collisions are resolved (bounds first, then heads and
// wagons), then survivors pick up passengers or unload in the delivery zone. A train whose
// move is fatal never scores on that move.
func (g *Game) Tick() []Event {
	if !g.running {
		return nil
	}
	g.ticks++

	names := g.aliveNames()
	if len(names) == 0 {
		g.maintainPassengers()
		g.resize()
		return nil
	}

	// Movement
	previous := make(map[string]Position, len(names))
	for _, name := range names {
		t := g.trains[name]
		previous[name] = t.Head
		t.Advance()
	}
	g.mark(FieldTrains)

	// Collisions are evaluated against post-move positions
	heads := make(map[Position][]string, len(names))
	wagons := make(map[Position]string)
	for _, name := range names {
		t := g.trains[name]
		heads[t.Head] = append(heads[t.Head], name)
		for _, w := range t.Wagons {
			wagons[w] = name
		}
	}

	var events []Event
	dead := make(map[string]Event)
	for _, name := range names {
		t := g.trains[name]
		switch {
		case !g.size.Contains(t.Head):
			dead[name] = Event{Kind: EventDeath, Train: name, Cause: CauseWall, Where: t.Head}
		case len(heads[t.Head]) > 1:
			dead[name] = Event{Kind: EventDeath, Train: name, Cause: CauseTrain, Where: t.Head, Killer: otherThan(heads[t.Head], name)}
		default:
			if owner, ok := wagons[t.Head]; ok {
				dead[name] = Event{Kind: EventDeath, Train: name, Cause: CauseWagon, Where: t.Head, Killer: owner}
			}
		}
	}

	// Trains that swap cells pass through each other unless caught here
	for i, a := range names {
		for _, b := range names[i+1:] {
			ta, tb := g.trains[a], g.trains[b]
			if ta.Head == previous[b] && tb.Head == previous[a] {
				if _, ok := dead[a]; !ok {
					dead[a] = Event{Kind: EventDeath, Train: a, Cause: CauseHeadOn, Where: ta.Head, Killer: b}
				}
				if _, ok := dead[b]; !ok {
					dead[b] = Event{Kind: EventDeath, Train: b, Cause: CauseHeadOn, Where: tb.Head, Killer: a}
				}
			}
		}
	}

	// Pickups and deliveries for survivors
	for _, name := range names {
		if _, isDead := dead[name]; isDead {
			continue
		}
		t := g.trains[name]
		if idx := g.passengerAt(t.Head); idx >= 0 {
			p := g.passengers[idx]
			t.Score += p.Value
			t.AppendWagon()
			g.recordScore(t)
			events = append(events, Event{Kind: EventPickup, Train: name, Value: p.Value, Where: p.Position})
			if p.Dropped {
				g.removePassenger(idx)
			} else {
				g.respawnPassenger(idx)
			}
			continue
		}
		if g.zone.Contains(t.Head) && len(t.Wagons) > 0 {
			if _, err := t.PopWagon(); err == nil {
				t.Score += g.config.DeliveryPoints
				g.recordScore(t)
				events = append(events, Event{Kind: EventDelivery, Train: name, Value: g.config.DeliveryPoints, Where: t.Head})
			}
		}
	}

	// Destroyed trains leave the world on the same tick
	for _, name := range names {
		ev, isDead := dead[name]
		if !isDead {
			continue
		}
		g.trains[name].Alive = false
		delete(g.trains, name)
		g.deaths[name] = g.now()
		events = append(events, ev)
	}

	g.maintainPassengers()
	g.resize()
	return events
}

// aliveNames returns alive train names in a stable order
func (g *Game) aliveNames() []string {
	names := make([]string, 0, len(g.trains))
	for _, name := range sortedKeys(g.trains) {
		if g.trains[name].Alive {
			names = append(names, name)
		}
	}
	return names
}

// passengerAt returns the index of the passenger at p, or -1
func (g *Game) passengerAt(p Position) int {
	for i, passenger := range g.passengers {
		if passenger.Position == p {
			return i
		}
	}
	return -1
}

// resize applies NextSize to the current occupancy
func (g *Game) resize() {
	occupied := g.occupiedCells(true)
	if g.zone.Width > 0 {
		occupied = append(occupied, g.zone.FarCorner())
	}
	next := NextSize(len(g.players), g.size, occupied, g.config)
	if next != g.size {
		g.size = next
		g.mark(FieldSize)
	}
}

func otherThan(names []string, self string) string {
	for _, n := range names {
		if n != self {
			return n
		}
	}
	return ""
}
