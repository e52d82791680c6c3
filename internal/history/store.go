// Package history persists finished play-throughs and per-user stats.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Game is one finished play-through.
type Game struct {
	SessionID   string    `json:"sessionId"`
	Round       int       `json:"round"`
	UserID      string    `json:"-"`
	AnonymousID string    `json:"-"`
	Mode        string    `json:"mode"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	TimeLimit   int       `json:"timeLimit"`
	Status      string    `json:"status"` // won | lost
	Moves       int       `json:"moves"`
	ElapsedSec  int       `json:"elapsedSec"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// LBRow is one leaderboard entry.
type LBRow struct {
	Username   string `json:"username"`
	Moves      int    `json:"moves"`
	ElapsedSec int    `json:"elapsedSec"`
}

// Stats are the running counters kept on the users table.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	Wins        int `json:"wins"`
	Streak      int `json:"streak"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RecordGame inserts a finished play-through. A second insert for the same
// session round is ignored.
func (s *Store) RecordGame(ctx context.Context, g Game) error {
	if g.FinishedAt.IsZero() {
		g.FinishedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO games
			(session_id, round, user_id, anonymous_id, mode, grid_rows, grid_columns,
			 time_limit, status, moves, elapsed_s, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		g.SessionID, g.Round, nullable(g.UserID), nullable(g.AnonymousID), g.Mode,
		g.Rows, g.Columns, g.TimeLimit, g.Status, g.Moves, g.ElapsedSec,
		g.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	return nil
}

// RecentGames lists a user's latest play-throughs, newest first.
func (s *Store) RecentGames(ctx context.Context, userID string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, round, mode, grid_rows, grid_columns, time_limit, status, moves, elapsed_s, finished_at
		FROM games WHERE user_id=?
		ORDER BY finished_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	defer rows.Close()

	out := []Game{}
	for rows.Next() {
		var g Game
		var finished string
		if err := rows.Scan(&g.SessionID, &g.Round, &g.Mode, &g.Rows, &g.Columns, &g.TimeLimit,
			&g.Status, &g.Moves, &g.ElapsedSec, &finished); err != nil {
			return nil, err
		}
		g.UserID = userID
		g.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Leaderboard returns the fastest registered wins for a board size.
// Ordered by elapsed time, then moves, then finish time.
func (s *Store) Leaderboard(ctx context.Context, rows, columns, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rs, err := s.db.QueryContext(ctx, `
		SELECT u.username, g.moves, g.elapsed_s
		FROM games g JOIN users u ON u.id = g.user_id
		WHERE g.status='won' AND g.grid_rows=? AND g.grid_columns=?
		ORDER BY g.elapsed_s ASC, g.moves ASC, g.finished_at ASC
		LIMIT ?`, rows, columns, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rs.Close()

	out := make([]LBRow, 0, limit)
	for rs.Next() {
		var r LBRow
		if err := rs.Scan(&r.Username, &r.Moves, &r.ElapsedSec); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// BumpStats increments games played and updates wins and streak.
func (s *Store) BumpStats(ctx context.Context, userID string, won bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var st Stats
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&st.GamesPlayed, &st.Wins, &st.Streak); err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	st.GamesPlayed++
	if won {
		st.Wins++
		st.Streak++
	} else {
		st.Streak = 0
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`,
		st.GamesPlayed, st.Wins, st.Streak, userID); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return tx.Commit()
}

// Stats loads a user's counters.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID).
		Scan(&st.GamesPlayed, &st.Wins, &st.Streak)
	return st, err
}

// ClaimAnonymous moves a guest's games onto a registered account.
func (s *Store) ClaimAnonymous(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}
