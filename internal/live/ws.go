// internal/live/ws.go
//
// WebSocket endpoint: pumps hub messages out and dispatches player commands.

package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/matchgrid/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Controller is the set of session operations a connected player may drive.
type Controller interface {
	Start()
	SelectCard(id int)
	Pause()
	Resume()
	Reset(cfg game.Config) error
	Replay()
	State() game.State
}

var _ Controller = (*game.Session)(nil)

var errUnknownCommand = errors.New("unknown command")

var errMissingCardID = errors.New("select: cardId is required")

type selectPayload struct {
	CardID *int `json:"cardId"`
}

type resetPayload struct {
	Rows      int `json:"rows"`
	Columns   int `json:"columns"`
	TimeLimit int `json:"timeLimit"`
}

// Dispatch applies one inbound command. It returns a reply for commands that
// need one (state snapshots and errors), or nil.
func Dispatch(ctrl Controller, m Message) *Message {
	var reply Message
	switch m.Type {
	case CmdSelect:
		var p selectPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			reply = errorMessage(fmt.Errorf("decode select: %w", err))
			return &reply
		}
		if p.CardID == nil {
			reply = errorMessage(errMissingCardID)
			return &reply
		}
		ctrl.SelectCard(*p.CardID)
	case CmdStart:
		ctrl.Start()
	case CmdPause:
		ctrl.Pause()
	case CmdResume:
		ctrl.Resume()
	case CmdReplay:
		ctrl.Replay()
	case CmdReset:
		var p resetPayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				reply = errorMessage(fmt.Errorf("decode reset: %w", err))
				return &reply
			}
		}
		// Omitted fields keep the current board.
		if (p.Rows == 0 && p.Columns == 0) || p.TimeLimit <= 0 {
			st := ctrl.State()
			if p.Rows == 0 && p.Columns == 0 {
				p.Rows, p.Columns = st.Rows, st.Columns
			}
			if p.TimeLimit <= 0 {
				p.TimeLimit = st.TimeLimit
			}
		}
		if err := ctrl.Reset(game.Config{Rows: p.Rows, Columns: p.Columns, TimeLimit: p.TimeLimit}); err != nil {
			reply = errorMessage(err)
			return &reply
		}
	case CmdState:
		reply = NewMessage(TypeState, ViewState(ctrl.State()))
		return &reply
	default:
		reply = errorMessage(fmt.Errorf("%w: %q", errUnknownCommand, m.Type))
		return &reply
	}
	return nil
}

// NewUpgrader accepts same-host requests, requests without an Origin header
// and requests from allowedOrigin.
func NewUpgrader(allowedOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == allowedOrigin {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

// client is one websocket connection bound to a session hub.
type client struct {
	conn    *websocket.Conn
	ctrl    Controller
	events  <-chan Message
	replies chan Message
	leave   func()
}

// ServeWS upgrades the request and streams hub events to the connection while
// feeding its commands to ctrl. It returns once the connection is set up; the
// read and write loops run in their own goroutines.
func ServeWS(up *websocket.Upgrader, hub *Hub, ctrl Controller, w http.ResponseWriter, r *http.Request) {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	events, leave := hub.Subscribe(sendBuffer)
	c := &client{
		conn:    conn,
		ctrl:    ctrl,
		events:  events,
		replies: make(chan Message, 8),
		leave:   leave,
	}
	c.replies <- NewMessage(TypeState, ViewState(ctrl.State()))

	go c.writeLoop()
	go c.readLoop()
}

func (c *client) readLoop() {
	defer func() {
		c.leave()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		if reply := Dispatch(c.ctrl, m); reply != nil {
			select {
			case c.replies <- *reply:
			default:
				log.Debug().Str("type", reply.Type).Msg("reply dropped")
			}
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				return
			}
		case m := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
