package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteIndex indexes matches for querying. Writes go through a single writer goroutine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan Match
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// OpenSQLite opens (creating if needed) the index database at path
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan Match, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration REAL NOT NULL,
			ticks INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			winner TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ended_at ON matches(ended_at);`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			player_id TEXT,
			human INTEGER NOT NULL,
			score INTEGER NOT NULL,
			place INTEGER NOT NULL,
			PRIMARY KEY (match_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_player ON match_players(player_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending writes and closes the database
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordMatch queues the match for indexing. It never blocks; when the writer falls behind
// the match is dropped from the index, the archive remains the source of truth.
func (s *SQLiteIndex) RecordMatch(m Match) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- m:
	default:
		log.Printf("Warning: match index queue full, dropping %s", m.ID)
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	for m := range s.ch {
		if err := s.insert(context.Background(), m); err != nil {
			log.Printf("Warning: failed to index match %s: %v", m.ID, err)
		}
	}
}

func (s *SQLiteIndex) insert(ctx context.Context, m Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO matches(id,room_id,started_at,ended_at,duration,ticks,width,height,winner) VALUES(?,?,?,?,?,?,?,?,?)`,
		m.ID, m.RoomID,
		m.StartedAt.UTC().Format(timeLayout),
		m.EndedAt.UTC().Format(timeLayout),
		m.Duration, m.Ticks, m.Width, m.Height, m.Winner,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM match_players WHERE match_id=?`, m.ID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO match_players(match_id,name,player_id,human,score,place) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range m.Players {
		human := 0
		if p.Human {
			human = 1
		}
		if _, err := stmt.Exec(m.ID, p.Name, p.ID, human, p.Score, p.Rank); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentMatches returns up to limit matches, newest first
func (s *SQLiteIndex) RecentMatches(limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id,room_id,started_at,ended_at,duration,ticks,width,height,COALESCE(winner,'') FROM matches ORDER BY ended_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range matches {
		players, err := s.players(matches[i].ID)
		if err != nil {
			return nil, err
		}
		matches[i].Players = players
	}
	return matches, nil
}

// MatchByID returns one indexed match
func (s *SQLiteIndex) MatchByID(id string) (Match, error) {
	row := s.db.QueryRow(
		`SELECT id,room_id,started_at,ended_at,duration,ticks,width,height,COALESCE(winner,'') FROM matches WHERE id=?`,
		id,
	)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrMatchNotFound
	}
	if err != nil {
		return Match{}, err
	}
	m.Players, err = s.players(id)
	return m, err
}

func (s *SQLiteIndex) players(matchID string) ([]PlayerResult, error) {
	rows, err := s.db.Query(
		`SELECT name,COALESCE(player_id,''),human,score,place FROM match_players WHERE match_id=? ORDER BY place, name`,
		matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerResult
	for rows.Next() {
		var p PlayerResult
		var human int
		if err := rows.Scan(&p.Name, &p.ID, &human, &p.Score, &p.Rank); err != nil {
			return nil, err
		}
		p.Human = human == 1
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (Match, error) {
	var m Match
	var started, ended string
	if err := row.Scan(&m.ID, &m.RoomID, &started, &ended, &m.Duration, &m.Ticks, &m.Width, &m.Height, &m.Winner); err != nil {
		return m, err
	}
	m.StartedAt, _ = time.Parse(timeLayout, started)
	m.EndedAt, _ = time.Parse(timeLayout, ended)
	return m, nil
}
