package engine

import (
	"encoding/json"
	"fmt"
)

// Field names a top-level piece of game state tracked for broadcast diffs
type Field string

const (
	FieldTrains       Field = "trains"
	FieldPassengers   Field = "passengers"
	FieldSize         Field = "size"
	FieldDeliveryZone Field = "delivery_zone"

	// Validation constants
	MinWorldSize     = 5
	MaxWorldSize     = 500
	MaxNameLength    = 32
	MaxSpawnAttempts = 10000
)

// Position represents x,y grid coordinates. It is encoded as [x, y] on the wire.
type Position struct {
	X int
	Y int
}

// Add returns the position displaced by d
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

// MarshalJSON encodes the position as a two element array
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a two element array
func (p *Position) UnmarshalJSON(data []byte) error {
	var xy [2]int
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Direction is a unit heading. Y grows downwards.
type Direction struct {
	DX int
	DY int
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}

	// Directions lists the four headings in a stable order
	Directions = []Direction{Up, Right, Down, Left}
)

// Valid reports whether d is one of the four unit headings
func (d Direction) Valid() bool {
	return (d.DX == 0) != (d.DY == 0) && d.DX >= -1 && d.DX <= 1 && d.DY >= -1 && d.DY <= 1
}

// Reverse returns the opposite heading
func (d Direction) Reverse() Direction {
	return Direction{DX: -d.DX, DY: -d.DY}
}

// String returns a readable name for logs
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("(%d,%d)", d.DX, d.DY)
}

// MarshalJSON encodes the direction as [dx, dy]
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{d.DX, d.DY})
}

// UnmarshalJSON decodes [dx, dy]
func (d *Direction) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("direction: %w", err)
	}
	d.DX, d.DY = v[0], v[1]
	return nil
}

// Size is the world extent in cells
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether p lies inside [0,Width) x [0,Height)
func (s Size) Contains(p Position) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// TrainState is the broadcast view of one train
type TrainState struct {
	Name      string     `json:"name"`
	Position  Position   `json:"position"`
	Direction Direction  `json:"direction"`
	Wagons    []Position `json:"wagons"`
	Score     int        `json:"score"`
	Alive     bool       `json:"alive"`
}

// PassengerState is the broadcast view of one passenger
type PassengerState struct {
	Position Position `json:"position"`
	Value    int      `json:"value"`
}

// Snapshot carries the top-level fields of a game. In a diff, nil fields were not dirty.
// Trains and passengers always encode, so a full snapshot of an empty world still lists them.
type Snapshot struct {
	Trains       map[string]TrainState `json:"trains"`
	Passengers   []PassengerState      `json:"passengers"`
	Size         *Size                 `json:"size,omitempty"`
	DeliveryZone *DeliveryZone         `json:"delivery_zone,omitempty"`
}

// Empty reports whether the snapshot carries no field
func (s *Snapshot) Empty() bool {
	return s.Trains == nil && s.Passengers == nil && s.Size == nil && s.DeliveryZone == nil
}

// EventKind classifies things that happen during a tick
type EventKind string

const (
	EventDeath    EventKind = "death"
	EventPickup   EventKind = "pickup"
	EventDelivery EventKind = "delivery"
)

// Event is emitted by Tick so the room can notify clients
type Event struct {
	Kind   EventKind `json:"kind"`
	Train  string    `json:"train"`
	Cause  string    `json:"cause,omitempty"`
	Value  int       `json:"value,omitempty"`
	Where  Position  `json:"where"`
	Killer string    `json:"killer,omitempty"`
}
