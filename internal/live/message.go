// internal/live/message.go
//
// Wire envelope and payload types shared by the hub and the socket.

// Package live streams renderer events to connected players and accepts
// their commands.
package live

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/matchgrid/internal/game"
)

// Message is the envelope for every frame in either direction.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound message types, one per renderer command plus replies.
const (
	TypeGridBuilt     = "grid_built"
	TypeCardFlipped   = "card_flipped"
	TypeCardUnflipped = "card_unflipped"
	TypeCardMatched   = "card_matched"
	TypeTick          = "tick"
	TypeGameEnded     = "game_ended"
	TypeState         = "state"
	TypeError         = "error"
)

// Inbound command types.
const (
	CmdSelect = "select"
	CmdStart  = "start"
	CmdPause  = "pause"
	CmdResume = "resume"
	CmdReset  = "reset"
	CmdReplay = "replay"
	CmdState  = "state"
)

// CardView is a card as a player may see it: face-down values are hidden.
type CardView struct {
	ID      int  `json:"id"`
	Value   int  `json:"value,omitempty"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// View hides the value of a face-down card.
func View(c game.Card) CardView {
	v := CardView{ID: c.ID, Flipped: c.Flipped, Matched: c.Matched}
	if c.Flipped || c.Matched {
		v.Value = c.Value
	}
	return v
}

// Views converts a row-major card list.
func Views(cards []game.Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = View(c)
	}
	return out
}

// GridView is the payload of grid_built.
type GridView struct {
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Cards   []CardView `json:"cards"`
}

// StateView is the player-facing session snapshot.
type StateView struct {
	ID        string      `json:"id"`
	Round     int         `json:"round"`
	Status    game.Status `json:"status"`
	Rows      int         `json:"rows"`
	Columns   int         `json:"columns"`
	TimeLimit int         `json:"timeLimit"`
	Remaining int         `json:"remaining"`
	Moves     int         `json:"moves"`
	Cards     []CardView  `json:"cards"`
	Flipped   []int       `json:"flipped"`
	Matched   []int       `json:"matched"`
}

// ViewState hides face-down values in a snapshot.
func ViewState(st game.State) StateView {
	return StateView{
		ID:        st.ID,
		Round:     st.Round,
		Status:    st.Status,
		Rows:      st.Rows,
		Columns:   st.Columns,
		TimeLimit: st.TimeLimit,
		Remaining: st.Remaining,
		Moves:     st.Moves,
		Cards:     Views(st.Cards),
		Flipped:   st.Flipped,
		Matched:   st.Matched,
	}
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type endPayload struct {
	Won bool `json:"won"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// NewMessage encodes v as the payload of a typed message.
func NewMessage(typ string, v any) Message {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("type", typ).Msg("encode live message")
		return Message{Type: TypeError}
	}
	return Message{Type: typ, Payload: b}
}

func gridMessage(g game.Grid) Message {
	return NewMessage(TypeGridBuilt, GridView{Rows: g.Rows, Columns: g.Columns, Cards: Views(g.Cards())})
}

func errorMessage(err error) Message {
	return NewMessage(TypeError, errorPayload{Error: err.Error()})
}
