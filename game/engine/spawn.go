package engine

import "math"

// occupiedCells lists every head and wagon, plus passengers when asked
func (g *Game) occupiedCells(withPassengers bool) []Position {
	var cells []Position
	for _, t := range g.trains {
		cells = append(cells, t.Cells()...)
	}
	if withPassengers {
		for _, p := range g.passengers {
			cells = append(cells, p.Position)
		}
	}
	return cells
}

func (g *Game) occupancy() map[Position]bool {
	occ := make(map[Position]bool)
	for _, p := range g.occupiedCells(true) {
		occ[p] = true
	}
	return occ
}

// spawnTrain places a new train for name on a free cell away from the walls
func (g *Game) spawnTrain(name string) *Train {
	occ := g.occupancy()
	margin := g.config.SpawnMargin
	free := func(p Position) bool {
		return g.size.Contains(p) && !occ[p] && !g.zone.Contains(p)
	}

	var pos Position
	found := false
	for i := 0; i < g.config.SpawnAttempts; i++ {
		candidate := g.randomCell(margin)
		if free(candidate) {
			pos, found = candidate, true
			break
		}
	}
	if !found {
		pos, found = g.scanFreeCell(free)
	}
	if !found {
		pos = g.randomCell(0)
		g.log.Printf("Warning: no safe spawn cell for train %s, placing at (%d,%d)", name, pos.X, pos.Y)
	}

	heading := g.openHeading(pos, occ)
	t := NewTrain(name, pos, heading)
	g.trains[name] = t
	g.mark(FieldTrains)
	return t
}

// openHeading picks the heading with the most free cells ahead, preferring the wall farthest away
func (g *Game) openHeading(pos Position, occ map[Position]bool) Direction {
	best, bestRun := Right, -1
	for _, d := range Directions {
		run := 0
		for p := pos.Add(d); g.size.Contains(p) && !occ[p]; p = p.Add(d) {
			run++
		}
		if run > bestRun {
			best, bestRun = d, run
		}
	}
	return best
}

// randomCell returns a cell at least margin cells from every wall
func (g *Game) randomCell(margin int) Position {
	w := g.size.Width - 2*margin
	h := g.size.Height - 2*margin
	if w < 1 || h < 1 {
		margin, w, h = 0, g.size.Width, g.size.Height
	}
	return Position{X: margin + g.rng.Intn(w), Y: margin + g.rng.Intn(h)}
}

// scanFreeCell walks the grid from a random offset looking for a free cell
func (g *Game) scanFreeCell(free func(Position) bool) (Position, bool) {
	total := g.size.Width * g.size.Height
	if total == 0 {
		return Position{}, false
	}
	offset := g.rng.Intn(total)
	for i := 0; i < total; i++ {
		idx := (offset + i) % total
		p := Position{X: idx % g.size.Width, Y: idx / g.size.Width}
		if free(p) {
			return p, true
		}
	}
	return Position{}, false
}

// passengerCell finds a cell for a passenger outside the zone and away from trains
func (g *Game) passengerCell() Position {
	occ := g.occupancy()
	free := func(p Position) bool {
		return g.size.Contains(p) && !occ[p] && !g.zone.Contains(p)
	}
	var candidate Position
	for i := 0; i < g.config.SpawnAttempts; i++ {
		candidate = g.randomCell(0)
		if free(candidate) {
			return candidate
		}
	}
	if p, ok := g.scanFreeCell(free); ok {
		return p
	}
	g.log.Printf("Warning: no safe passenger cell after %d attempts, using (%d,%d)", g.config.SpawnAttempts, candidate.X, candidate.Y)
	return candidate
}

func (g *Game) passengerValue() int {
	span := g.config.PassengerMaxValue - g.config.PassengerMinValue + 1
	return g.config.PassengerMinValue + g.rng.Intn(span)
}

// respawnPassenger moves the passenger at idx to a new safe cell with a new value
func (g *Game) respawnPassenger(idx int) {
	p := g.passengers[idx]
	// park it off-grid so its old cell counts as free
	p.Position = Position{X: -1, Y: -1}
	p.Position = g.passengerCell()
	p.Value = g.passengerValue()
	g.mark(FieldPassengers)
}

// targetPassengers is the passenger count the world converges to
func (g *Game) targetPassengers() int {
	if len(g.trains) == 0 {
		return 0
	}
	target := int(math.Ceil(float64(len(g.trains)) * g.config.PassengersPerTrain))
	if target < 1 {
		target = 1
	}
	return target
}

// maintainPassengers keeps the spawned passengers at target: it adds every missing one and
// removes one surplus per call. Dropped passengers are not counted.
func (g *Game) maintainPassengers() {
	target := g.targetPassengers()
	spawned := 0
	last := -1
	for i, p := range g.passengers {
		if !p.Dropped {
			spawned++
			last = i
		}
	}
	for ; spawned < target; spawned++ {
		g.passengers = append(g.passengers, &Passenger{Position: g.passengerCell(), Value: g.passengerValue()})
		g.mark(FieldPassengers)
	}
	if spawned > target && last >= 0 {
		g.removePassenger(last)
	}
}

// removePassenger deletes the passenger at idx, keeping the order of the rest
func (g *Game) removePassenger(idx int) {
	g.passengers = append(g.passengers[:idx], g.passengers[idx+1:]...)
	g.mark(FieldPassengers)
}
