// internal/game/types.go
//
// Core type definitions for the memory-matching game engine.
// Defines:
//   - Card:   a single grid cell with a hidden value.
//   - Grid:   rows × columns of cards, addressed row-major by card id.
//   - Status: lifecycle of a session (idle → running ⇄ paused → won/lost).
//   - Config, State, Result: inputs and snapshots exchanged with callers.

package game

import "errors"

// ErrInvalidDimensions is returned when rows*columns is not a positive even
// number or exceeds the board size limit.
var ErrInvalidDimensions = errors.New("invalid dimensions: rows*columns must be positive and even")

// Status is the coarse lifecycle state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Finished reports whether s is a terminal status.
func (s Status) Finished() bool { return s == StatusWon || s == StatusLost }

// Card is one cell of the grid.
type Card struct {
	ID      int  `json:"id"`      // row-major index, unique within the grid
	Value   int  `json:"value"`   // 1..N/2, appears exactly twice
	Flipped bool `json:"flipped"` // face up; stays true once matched
	Matched bool `json:"matched"` // permanently revealed
}

// Grid holds the cards of one play-through.
type Grid struct {
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Cells   [][]Card `json:"cells"`
}

// Size is the total number of cards.
func (g *Grid) Size() int { return g.Rows * g.Columns }

// card returns a pointer into the grid for id, or nil when id is out of range.
func (g *Grid) card(id int) *Card {
	if g == nil || id < 0 || id >= g.Size() {
		return nil
	}
	return &g.Cells[id/g.Columns][id%g.Columns]
}

// Cards returns a row-major copy of every card.
func (g *Grid) Cards() []Card {
	out := make([]Card, 0, g.Size())
	for _, row := range g.Cells {
		out = append(out, row...)
	}
	return out
}

// clone deep-copies the grid so renderers never alias session state.
func (g *Grid) clone() Grid {
	cp := Grid{Rows: g.Rows, Columns: g.Columns, Cells: make([][]Card, len(g.Cells))}
	for i, row := range g.Cells {
		cp.Cells[i] = append([]Card(nil), row...)
	}
	return cp
}

// Config describes the board and countdown for a play-through.
type Config struct {
	Rows      int `json:"rows"`
	Columns   int `json:"columns"`
	TimeLimit int `json:"timeLimit"` // seconds
	MaxCards  int `json:"-"`         // largest rows*columns accepted; 0 or above MaxCards means MaxCards
}

// Defaults mirror the classic board: 5 rows, 4 columns, 40 seconds.
const (
	DefaultRows      = 5
	DefaultColumns   = 4
	DefaultTimeLimit = 40
)

// DefaultConfig returns the classic board configuration.
func DefaultConfig() Config {
	return Config{Rows: DefaultRows, Columns: DefaultColumns, TimeLimit: DefaultTimeLimit}
}

// Validate checks the board dimensions.
func (c Config) Validate() error {
	return validateDimensions(c.Rows, c.Columns, c.cardLimit())
}

func (c Config) cardLimit() int {
	if c.MaxCards <= 0 || c.MaxCards > MaxCards {
		return MaxCards
	}
	return c.MaxCards
}

func (c Config) withDefaults() Config {
	if c.TimeLimit <= 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	return c
}

// State is a point-in-time snapshot of a session.
type State struct {
	ID        string `json:"id"`
	Round     int    `json:"round"`
	Status    Status `json:"status"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	TimeLimit int    `json:"timeLimit"`
	Remaining int    `json:"remaining"`
	Moves     int    `json:"moves"`
	Cards     []Card `json:"cards"`
	Flipped   []int  `json:"flipped"`
	Matched   []int  `json:"matched"`
}

// Result is reported exactly once when a play-through reaches won or lost.
type Result struct {
	SessionID string
	Round     int
	Won       bool
	Rows      int
	Columns   int
	TimeLimit int
	Remaining int
	Moves     int
}

// Elapsed is the number of countdown seconds consumed.
func (r Result) Elapsed() int { return r.TimeLimit - r.Remaining }
