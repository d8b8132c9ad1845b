package service

import "time"

// HealthInfo summarizes the running server
type HealthInfo struct {
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Rooms         int       `json:"rooms"`
	RunningRooms  int       `json:"running_rooms"`
	Clients       int       `json:"clients"`
	StoredScores  int       `json:"stored_scores"`
	History       bool      `json:"history"`
	Sent          uint64    `json:"datagrams_sent"`
	Received      uint64    `json:"datagrams_received"`
}

// ScoreEntry is one stored personal best
type ScoreEntry struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}
