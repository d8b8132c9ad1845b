package engine

// TargetSize returns the world edge length wanted for the given number of players
func TargetSize(players int, config *GameConfig) int {
	target := config.BaseSize + config.PerPlayerSize*players
	if target > config.MaxSize {
		target = config.MaxSize
	}
	return target
}

// NextSize computes the world extent for the next tick.
//
// Growth to the target happens at once. Shrinking moves at most ShrinkStep cells per axis
// and only when no occupied cell would fall outside the smaller bound. Each axis is decided
// on its own. The function is pure.
func NextSize(players int, current Size, occupied []Position, config *GameConfig) Size {
	target := TargetSize(players, config)

	maxX, maxY := -1, -1
	for _, p := range occupied {
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return Size{
		Width:  nextAxis(target, current.Width, maxX, config.ShrinkStep),
		Height: nextAxis(target, current.Height, maxY, config.ShrinkStep),
	}
}

func nextAxis(target, current, maxOccupied, step int) int {
	if target >= current {
		return target
	}
	candidate := current - step
	if candidate < target {
		candidate = target
	}
	if maxOccupied >= candidate {
		return current
	}
	return candidate
}
