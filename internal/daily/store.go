package daily

import (
	"context"
	"database/sql"
	"fmt"
)

// Result is one player's finished daily board, won or lost.
type Result struct {
	UserID     string `json:"userId"`
	Date       string `json:"date"`
	Won        bool   `json:"won"`
	Moves      int    `json:"moves"`
	ElapsedSec int    `json:"elapsedSec"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the player finished the board for date,
// whatever the outcome.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult stores a result; a second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, won, moves, elapsed_s)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.Won, r.Moves, r.ElapsedSec,
	)
	if err != nil {
		return fmt.Errorf("insert daily result: %w", err)
	}
	return nil
}

type LBRow struct {
	UserID     string `json:"userId"`
	Moves      int    `json:"moves"`
	ElapsedSec int    `json:"elapsedSec"`
}

// Leaderboard lists the fastest wins for date.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, moves, elapsed_s
		 FROM daily_results
		 WHERE date=? AND won=1
		 ORDER BY elapsed_s ASC, moves ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Moves, &r.ElapsedSec); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
