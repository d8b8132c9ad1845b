package engine

// Passenger is a pickup worth Value points that extends the train collecting it
type Passenger struct {
	Position Position
	Value    int
	// Dropped passengers come from wagons; they are consumed on pickup and never trimmed
	Dropped bool
}

// State returns the broadcast view of the passenger
func (p *Passenger) State() PassengerState {
	return PassengerState{Position: p.Position, Value: p.Value}
}

// DeliveryZone is a static rectangle where passengers never spawn and wagons are unloaded
type DeliveryZone struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewDeliveryZone sizes the zone from the player count and centres it in the world
func NewDeliveryZone(players int, world Size, config *GameConfig) DeliveryZone {
	side := config.ZoneBase + config.ZonePerPlayer*players
	if limit := min(world.Width, world.Height) - 2; side > limit {
		side = limit
	}
	if side < 1 {
		side = 1
	}
	return DeliveryZone{
		X:      (world.Width - side) / 2,
		Y:      (world.Height - side) / 2,
		Width:  side,
		Height: side,
	}
}

// Contains reports whether p lies inside the zone
func (z DeliveryZone) Contains(p Position) bool {
	return p.X >= z.X && p.X < z.X+z.Width && p.Y >= z.Y && p.Y < z.Y+z.Height
}

// FarCorner returns the bottom-right cell covered by the zone
func (z DeliveryZone) FarCorner() Position {
	return Position{X: z.X + z.Width - 1, Y: z.Y + z.Height - 1}
}
