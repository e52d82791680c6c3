// internal/game/renderer.go
//
// Renderer hooks a session calls as the board changes, plus a no-op default.

package game

// Renderer receives drawing commands from a session.
//
// Calls are made while the session lock is held and in the order the
// transitions happen. Implementations must return quickly and must not call
// back into the session.
type Renderer interface {
	GridBuilt(g Grid)
	CardFlipped(c Card)
	CardUnflipped(c Card)
	CardMatched(c Card)
	Tick(remaining int)
	GameEnded(won bool)
}

// NopRenderer discards every command.
type NopRenderer struct{}

func (NopRenderer) GridBuilt(Grid)     {}
func (NopRenderer) CardFlipped(Card)   {}
func (NopRenderer) CardUnflipped(Card) {}
func (NopRenderer) CardMatched(Card)   {}
func (NopRenderer) Tick(int)           {}
func (NopRenderer) GameEnded(bool)     {}
