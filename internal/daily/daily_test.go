package daily

import (
	"context"
	"testing"
	"time"

	"github.com/robalobadob/matchgrid/internal/db"
	"github.com/robalobadob/matchgrid/internal/game"
)

func TestDateKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2026, 3, 2, 5, 0, 0, 0, loc)
	if got := DateKey(ts); got != "2026-03-01" {
		t.Fatalf("DateKey = %s want 2026-03-01", got)
	}
}

func TestSeedDeterministic(t *testing.T) {
	day := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	later := day.Add(6 * time.Hour)

	a1, a2 := Seed(day, "salt")
	b1, b2 := Seed(later, "salt")
	if a1 != b1 || a2 != b2 {
		t.Fatalf("same day produced different seeds")
	}

	c1, c2 := Seed(day, "other")
	if a1 == c1 && a2 == c2 {
		t.Fatalf("different salts produced the same seed")
	}
	d1, d2 := Seed(day.AddDate(0, 0, 1), "salt")
	if a1 == d1 && a2 == d2 {
		t.Fatalf("different days produced the same seed")
	}
}

func TestRandSharesBoard(t *testing.T) {
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	cfg := Config()

	g1, err := game.BuildGrid(cfg.Rows, cfg.Columns, Rand(day, "salt"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	g2, _ := game.BuildGrid(cfg.Rows, cfg.Columns, Rand(day, "salt"))

	c1, c2 := g1.Cards(), g2.Cards()
	for i := range c1 {
		if c1[i].Value != c2[i].Value {
			t.Fatalf("card %d differs between players: %d vs %d", i, c1[i].Value, c2[i].Value)
		}
	}
}

func TestStoreOnePlayPerDay(t *testing.T) {
	conn, err := db.OpenMigrated(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()

	played, err := s.AlreadyPlayed(ctx, "u1", "2026-10-19")
	if err != nil || played {
		t.Fatalf("played = %v err = %v want false", played, err)
	}

	if err := s.InsertResult(ctx, Result{UserID: "u1", Date: "2026-10-19", Won: true, Moves: 12, ElapsedSec: 30}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertResult(ctx, Result{UserID: "u1", Date: "2026-10-19", Won: true, Moves: 10, ElapsedSec: 5}); err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}
	if err := s.InsertResult(ctx, Result{UserID: "u2", Date: "2026-10-19", Won: true, Moves: 11, ElapsedSec: 20}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	played, _ = s.AlreadyPlayed(ctx, "u1", "2026-10-19")
	if !played {
		t.Fatalf("expected u1 to have played")
	}

	top, err := s.Leaderboard(ctx, "2026-10-19", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u2" || top[1].ElapsedSec != 30 {
		t.Fatalf("leaderboard = %+v", top)
	}
}

func TestStoreLossCountsAsPlayed(t *testing.T) {
	conn, err := db.OpenMigrated(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()

	if err := s.InsertResult(ctx, Result{UserID: "u3", Date: "2026-10-20", Won: false, Moves: 7, ElapsedSec: 40}); err != nil {
		t.Fatalf("insert loss: %v", err)
	}
	played, err := s.AlreadyPlayed(ctx, "u3", "2026-10-20")
	if err != nil || !played {
		t.Fatalf("played = %v err = %v want true after a loss", played, err)
	}

	top, err := s.Leaderboard(ctx, "2026-10-20", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("leaderboard lists a loss: %+v", top)
	}
}
