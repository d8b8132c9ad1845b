package engine

import "errors"

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrReverseDirection = errors.New("cannot reverse direction")
	ErrTurnTooSoon      = errors.New("train has not moved since last turn")
	ErrTrainNotAlive    = errors.New("train is not alive")
	ErrNoWagons         = errors.New("train has no wagons")
)

// Train is a player or bot controlled head with its trailing wagons
type Train struct {
	Name    string
	Head    Position
	Heading Direction
	Wagons  []Position // head to tail
	Alive   bool
	Score   int

	movedSinceTurn bool
	vacated        Position // cell released by the tail on the last move
}

// NewTrain creates a live train at pos facing heading
func NewTrain(name string, pos Position, heading Direction) *Train {
	return &Train{
		Name:           name,
		Head:           pos,
		Heading:        heading,
		Wagons:         []Position{},
		Alive:          true,
		movedSinceTurn: true,
		vacated:        pos.Add(heading.Reverse()),
	}
}

// SetDirection changes the heading. It returns true when the heading actually changed.
func (t *Train) SetDirection(d Direction) (bool, error) {
	if !t.Alive {
		return false, ErrTrainNotAlive
	}
	if !d.Valid() {
		return false, ErrInvalidDirection
	}
	if d == t.Heading {
		return false, nil
	}
	if d == t.Heading.Reverse() {
		return false, ErrReverseDirection
	}
	if !t.movedSinceTurn {
		return false, ErrTurnTooSoon
	}
	t.Heading = d
	t.movedSinceTurn = false
	return true, nil
}

// CanTurn reports whether a turn would be accepted right now
func (t *Train) CanTurn() bool {
	return t.Alive && t.movedSinceTurn
}

// Advance moves the head one cell and shifts each wagon into the cell of the one ahead
func (t *Train) Advance() {
	prev := t.Head
	t.Head = t.Head.Add(t.Heading)
	for i := range t.Wagons {
		t.Wagons[i], prev = prev, t.Wagons[i]
	}
	t.vacated = prev
	t.movedSinceTurn = true
}

// AppendWagon adds a wagon at the cell the tail vacated on the last move
func (t *Train) AppendWagon() Position {
	t.Wagons = append(t.Wagons, t.vacated)
	return t.vacated
}

// PopWagon removes the tail wagon and returns its position
func (t *Train) PopWagon() (Position, error) {
	if !t.Alive {
		return Position{}, ErrTrainNotAlive
	}
	if len(t.Wagons) == 0 {
		return Position{}, ErrNoWagons
	}
	last := len(t.Wagons) - 1
	pos := t.Wagons[last]
	t.Wagons = t.Wagons[:last]
	return pos, nil
}

// OnWagon reports whether p is covered by one of the train's wagons
func (t *Train) OnWagon(p Position) bool {
	for _, w := range t.Wagons {
		if w == p {
			return true
		}
	}
	return false
}

// Cells returns the head followed by every wagon
func (t *Train) Cells() []Position {
	cells := make([]Position, 0, len(t.Wagons)+1)
	cells = append(cells, t.Head)
	return append(cells, t.Wagons...)
}

// State returns a copy suitable for broadcast
func (t *Train) State() TrainState {
	wagons := make([]Position, len(t.Wagons))
	copy(wagons, t.Wagons)
	return TrainState{
		Name:      t.Name,
		Position:  t.Head,
		Direction: t.Heading,
		Wagons:    wagons,
		Score:     t.Score,
		Alive:     t.Alive,
	}
}
