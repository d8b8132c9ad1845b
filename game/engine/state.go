package engine

func (g *Game) mark(f Field) {
	g.dirty[f] = true
}

func (g *Game) markAll() {
	for _, f := range []Field{FieldTrains, FieldPassengers, FieldSize, FieldDeliveryZone} {
		g.dirty[f] = true
	}
}

// Dirty reports whether any field changed since the last Diff
func (g *Game) Dirty() bool {
	return len(g.dirty) > 0
}

// DirtyFields returns the set of fields changed since the last Diff
func (g *Game) DirtyFields() []Field {
	fields := make([]Field, 0, len(g.dirty))
	for _, f := range []Field{FieldTrains, FieldPassengers, FieldSize, FieldDeliveryZone} {
		if g.dirty[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// Diff returns only the fields changed since the previous call and clears the dirty set
func (g *Game) Diff() Snapshot {
	var snap Snapshot
	if g.dirty[FieldTrains] {
		snap.Trains = g.trainStates()
	}
	if g.dirty[FieldPassengers] {
		snap.Passengers = g.Passengers()
	}
	if g.dirty[FieldSize] {
		size := g.size
		snap.Size = &size
	}
	if g.dirty[FieldDeliveryZone] {
		zone := g.zone
		snap.DeliveryZone = &zone
	}
	g.dirty = make(map[Field]bool)
	return snap
}

// Full returns every field without touching the dirty set
func (g *Game) Full() Snapshot {
	size := g.size
	zone := g.zone
	return Snapshot{
		Trains:       g.trainStates(),
		Passengers:   g.Passengers(),
		Size:         &size,
		DeliveryZone: &zone,
	}
}

func (g *Game) trainStates() map[string]TrainState {
	out := make(map[string]TrainState, len(g.trains))
	for name, t := range g.trains {
		out[name] = t.State()
	}
	return out
}
