package engine

import "sort"

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// NearestPassenger finds the closest passenger to pos and returns it with its distance
func NearestPassenger(pos Position, passengers []PassengerState) (PassengerState, int, bool) {
	minDistance := -1
	var nearest PassengerState
	for _, p := range passengers {
		d := ManhattanDistance(pos, p.Position)
		if minDistance == -1 || d < minDistance {
			minDistance = d
			nearest = p
		}
	}
	return nearest, minDistance, minDistance >= 0
}

// ZoneCenter returns the cell at the middle of the zone
func ZoneCenter(z DeliveryZone) Position {
	return Position{X: z.X + z.Width/2, Y: z.Y + z.Height/2}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
