// internal/game/grid.go
//
// Board construction: dimension checks and the shuffled value layout.

package game

import "math/rand/v2"

// MaxCards is the hard ceiling on rows*columns for any board.
const MaxCards = 10000

// BuildGrid lays out a freshly shuffled board.
//
// Every value in [1, rows*columns/2] appears exactly twice. The multiset is
// shuffled with Fisher–Yates and assigned row-major, so card id = row*columns+col.
func BuildGrid(rows, columns int, r *rand.Rand) (*Grid, error) {
	if err := validateDimensions(rows, columns, MaxCards); err != nil {
		return nil, err
	}
	values := shuffledValues(rows*columns, r)

	g := &Grid{Rows: rows, Columns: columns, Cells: make([][]Card, rows)}
	for row := 0; row < rows; row++ {
		g.Cells[row] = make([]Card, columns)
		for col := 0; col < columns; col++ {
			id := row*columns + col
			g.Cells[row][col] = Card{ID: id, Value: values[id]}
		}
	}
	return g, nil
}

// validateDimensions rejects non-positive factors, odd totals and boards
// larger than limit. The limit check runs before multiplying so huge factors
// cannot overflow into a small product.
func validateDimensions(rows, columns, limit int) error {
	if rows <= 0 || columns <= 0 || rows > limit/columns || (rows*columns)%2 != 0 {
		return ErrInvalidDimensions
	}
	return nil
}

// shuffledValues returns 1,1,2,2,...,n/2,n/2 in uniformly random order.
func shuffledValues(n int, r *rand.Rand) []int {
	half := n / 2
	out := make([]int, 0, n)
	for v := 1; v <= half; v++ {
		out = append(out, v, v)
	}
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
