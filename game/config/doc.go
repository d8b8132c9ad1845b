// Package config provides configuration loading for the Train Rush server.
//
// The config package handles:
//   - Loading the server configuration from a YAML file
//   - Filling omitted keys with built-in defaults
//   - Validation of every section before the server starts
//   - Discovery of named profiles in a configs directory
//
// Configuration Format:
//
// A configuration has three sections. server covers the UDP listener, the admin HTTP
// address, persistence paths and liveness timing. room covers players per room, bot fill
// and the loop intervals. game holds the simulation rules passed to the engine.
// Durations use Go duration strings such as 500ms or 5m.
//
// Available Profiles:
//
//   - classic: two player rooms, five minute matches
//   - party: eight player rooms with more passengers
//   - training: fast bot fill for testing agents
//
// Usage:
//
//	cfg, err := config.Load("configs/classic.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := config.NewManager("configs")
//	party, err := manager.LoadConfig("party")
//	profiles, err := manager.ListConfigs()
package config
