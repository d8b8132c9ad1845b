// Package history records finished matches.
//
// Every match is appended to a zstd-compressed JSONL archive, which is the source of truth,
// and indexed in SQLite for the admin API. Either sink can be used alone through Recorder.
package history

import (
	"errors"
	"time"
)

var ErrMatchNotFound = errors.New("match not found")

// PlayerResult is one participant's outcome
type PlayerResult struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Human bool   `json:"human"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// Match summarizes one finished game
type Match struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"room_id"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Duration  float64        `json:"duration"`
	Ticks     int            `json:"ticks"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Winner    string         `json:"winner,omitempty"`
	Players   []PlayerResult `json:"players"`
}

// Recorder persists finished matches
type Recorder interface {
	RecordMatch(Match) error
	Close() error
}

// Reader lists indexed matches
type Reader interface {
	RecentMatches(limit int) ([]Match, error)
	MatchByID(id string) (Match, error)
}

type multi []Recorder

// Multi fans a match out to every recorder. Errors are joined; one failing sink does not skip the others.
func Multi(recorders ...Recorder) Recorder {
	var out multi
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) RecordMatch(match Match) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordMatch(match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
