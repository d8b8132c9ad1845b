// Package engine provides the core simulation for the Train Rush game.
//
// The engine package implements the game mechanics including:
//   - Grid-based train movement with wagons following as a shift register
//   - Collision detection against walls, train heads and wagons
//   - Passenger pickup, delivery zone unloading and scoring
//   - World resizing driven by the number of players
//   - Dirty-field tracking so broadcasts only carry what changed
//
// Core Types:
//
// Game owns one world and is advanced by Tick. Train, Passenger and DeliveryZone are
// the entities it manipulates. GameConfig defines the rules, usually loaded through
// the config package.
//
// Usage:
//
//	game, err := engine.NewGame(engine.DefaultGameConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.Start([]string{"alice", "bob"})
//	_ = game.SetDirection("alice", engine.Up)
//	events := game.Tick()
//	diff := game.Diff()
//
// Concurrency:
//
// A Game is not safe for concurrent use. The room that owns it serializes every call
// behind its own lock, including the snapshots taken for broadcast.
//
// Game Rules:
//
// Every tick each live train advances one cell. A train dies when its head leaves the
// world, meets another head, or lands on any wagon. Collisions are resolved before
// pickups, so a fatal move never scores. Picking up a passenger credits its value and
// appends a wagon; driving through the delivery zone unloads one wagon per tick for
// delivery points.
package engine
