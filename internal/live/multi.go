// internal/live/multi.go
//
// Renderer that forwards each event to several renderers in order.

package live

import "github.com/robalobadob/matchgrid/internal/game"

type multi []game.Renderer

// Multi forwards every command to each renderer in order. Nil entries are skipped.
func Multi(rs ...game.Renderer) game.Renderer {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) GridBuilt(g game.Grid) {
	for _, r := range m {
		r.GridBuilt(g)
	}
}

func (m multi) CardFlipped(c game.Card) {
	for _, r := range m {
		r.CardFlipped(c)
	}
}

func (m multi) CardUnflipped(c game.Card) {
	for _, r := range m {
		r.CardUnflipped(c)
	}
}

func (m multi) CardMatched(c game.Card) {
	for _, r := range m {
		r.CardMatched(c)
	}
}

func (m multi) Tick(remaining int) {
	for _, r := range m {
		r.Tick(remaining)
	}
}

func (m multi) GameEnded(won bool) {
	for _, r := range m {
		r.GameEnded(won)
	}
}
