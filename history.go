package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// History wraps the SQLite database of finished matches
type History struct {
	conn *sql.DB
}

// MatchRow represents a completed match
type MatchRow struct {
	ID         string
	Room       string
	Scene      string
	StartedAt  time.Time
	Duration   time.Duration
	Winner     int
	WinnerName string
	Draw       bool
	Local      int
	LocalWon   bool
}

// Totals aggregates the local participant's record
type Totals struct {
	Played int
	Won    int
	Draws  int
}

// OpenHistory opens (or creates) the SQLite database
func OpenHistory(path string) (*History, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	h := &History{conn: conn}
	if err := h.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.conn.Close()
}

// migrate creates tables if they don't exist
func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		room TEXT NOT NULL DEFAULT '',
		scene TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		winner_actor INTEGER NOT NULL DEFAULT 0,
		winner_name TEXT NOT NULL DEFAULT '',
		draw INTEGER NOT NULL DEFAULT 0,
		local_actor INTEGER NOT NULL DEFAULT 0,
		local_won INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS match_participants (
		match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		actor INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		health INTEGER NOT NULL DEFAULT 0,
		left_room INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, actor)
	);

	CREATE INDEX IF NOT EXISTS idx_matches_started ON matches(started_at);
	`
	_, err := h.conn.Exec(schema)
	if err != nil {
		log.Printf("history migration error: %v", err)
	}
	return err
}

// RecordMatch stores a finished match and its snapshot participants
func (h *History) RecordMatch(ctx context.Context, s MatchSummary) error {
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, room, scene, started_at, duration_ms, winner_actor, winner_name, draw, local_actor, local_won)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Room, s.Scene, s.Started.UnixMilli(), s.Duration.Milliseconds(),
		s.Winner, s.WinnerName, boolInt(s.Draw), s.Local, boolInt(s.LocalWon()),
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", s.ID, err)
	}
	for _, p := range s.Participants {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_participants (match_id, actor, name, health, left_room)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID, p.Actor, p.Name, p.Health, boolInt(p.Left),
		)
		if err != nil {
			return fmt.Errorf("insert participant %d of %s: %w", p.Actor, s.ID, err)
		}
	}
	return tx.Commit()
}

// RecentMatches returns the latest matches, newest first
func (h *History) RecentMatches(ctx context.Context, limit int) ([]MatchRow, error) {
	rows, err := h.conn.QueryContext(ctx, `
		SELECT id, room, scene, started_at, duration_ms, winner_actor, winner_name, draw, local_actor, local_won
		FROM matches ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var m MatchRow
		var started, dur int64
		var draw, won int
		if err := rows.Scan(&m.ID, &m.Room, &m.Scene, &started, &dur, &m.Winner, &m.WinnerName, &draw, &m.Local, &won); err != nil {
			return nil, err
		}
		m.StartedAt = time.UnixMilli(started)
		m.Duration = time.Duration(dur) * time.Millisecond
		m.Draw = draw != 0
		m.LocalWon = won != 0
		result = append(result, m)
	}
	return result, rows.Err()
}

// Participants returns the snapshot participants of a match
func (h *History) Participants(ctx context.Context, matchID string) ([]ParticipantResult, error) {
	rows, err := h.conn.QueryContext(ctx, `
		SELECT actor, name, health, left_room FROM match_participants
		WHERE match_id = ? ORDER BY actor`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ParticipantResult
	for rows.Next() {
		var p ParticipantResult
		var left int
		if err := rows.Scan(&p.Actor, &p.Name, &p.Health, &left); err != nil {
			return nil, err
		}
		p.Left = left != 0
		result = append(result, p)
	}
	return result, rows.Err()
}

// Totals returns how many matches were played, won and drawn
func (h *History) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := h.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(local_won), 0), COALESCE(SUM(draw), 0) FROM matches`,
	).Scan(&t.Played, &t.Won, &t.Draws)
	return t, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
