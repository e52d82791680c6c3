package live

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/matchgrid/internal/game"
)

type fakeController struct {
	calls    []string
	selected []int
	resetCfg game.Config
	resetErr error
	state    game.State
}

func (f *fakeController) Start()            { f.calls = append(f.calls, "start") }
func (f *fakeController) SelectCard(id int) { f.selected = append(f.selected, id) }
func (f *fakeController) Pause()            { f.calls = append(f.calls, "pause") }
func (f *fakeController) Resume()           { f.calls = append(f.calls, "resume") }
func (f *fakeController) Replay()           { f.calls = append(f.calls, "replay") }
func (f *fakeController) State() game.State { return f.state }
func (f *fakeController) Reset(cfg game.Config) error {
	f.resetCfg = cfg
	return f.resetErr
}

func cmd(t *testing.T, typ string, payload any) Message {
	t.Helper()
	m := Message{Type: typ}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		m.Payload = b
	}
	return m
}

func TestDispatch(t *testing.T) {
	f := &fakeController{state: game.State{ID: "s", Rows: 2, Columns: 3, TimeLimit: 30}}

	for _, typ := range []string{CmdStart, CmdPause, CmdResume, CmdReplay} {
		if reply := Dispatch(f, cmd(t, typ, nil)); reply != nil {
			t.Fatalf("%s replied %q", typ, reply.Type)
		}
	}
	if got := strings.Join(f.calls, ","); got != "start,pause,resume,replay" {
		t.Fatalf("calls = %s", got)
	}

	four := 4
	Dispatch(f, cmd(t, CmdSelect, selectPayload{CardID: &four}))
	if len(f.selected) != 1 || f.selected[0] != 4 {
		t.Fatalf("selected = %v want [4]", f.selected)
	}

	Dispatch(f, cmd(t, CmdReset, nil))
	if f.resetCfg != (game.Config{Rows: 2, Columns: 3, TimeLimit: 30}) {
		t.Fatalf("empty reset cfg = %+v want current board", f.resetCfg)
	}
	Dispatch(f, cmd(t, CmdReset, resetPayload{Rows: 4, Columns: 4}))
	if f.resetCfg != (game.Config{Rows: 4, Columns: 4, TimeLimit: 30}) {
		t.Fatalf("reset without timeLimit = %+v want current limit kept", f.resetCfg)
	}
	Dispatch(f, cmd(t, CmdReset, resetPayload{Rows: 4, Columns: 4, TimeLimit: 12}))
	if f.resetCfg != (game.Config{Rows: 4, Columns: 4, TimeLimit: 12}) {
		t.Fatalf("reset cfg = %+v", f.resetCfg)
	}

	reply := Dispatch(f, cmd(t, CmdState, nil))
	if reply == nil || reply.Type != TypeState {
		t.Fatalf("state reply = %+v", reply)
	}
}

func TestDispatchErrors(t *testing.T) {
	f := &fakeController{resetErr: game.ErrInvalidDimensions}

	cases := []Message{
		{Type: "bogus"},
		{Type: CmdSelect, Payload: json.RawMessage(`{"cardId":"x"}`)},
		{Type: CmdSelect, Payload: json.RawMessage(`{}`)},
		{Type: CmdSelect},
		cmd(t, CmdReset, resetPayload{Rows: 3, Columns: 3}),
	}
	for _, m := range cases {
		reply := Dispatch(f, m)
		if reply == nil || reply.Type != TypeError {
			t.Fatalf("%s: reply = %+v want error", m.Type, reply)
		}
	}
	if len(f.selected) != 0 {
		t.Fatalf("selected = %v want none", f.selected)
	}

	var p errorPayload
	_ = json.Unmarshal(Dispatch(f, cases[4]).Payload, &p)
	if !strings.Contains(p.Error, game.ErrInvalidDimensions.Error()) {
		t.Fatalf("error = %q", p.Error)
	}
}

func TestServeWSPlaysARound(t *testing.T) {
	hub := NewHub()
	s, err := game.New(game.Config{Rows: 1, Columns: 2, TimeLimit: 30},
		game.WithRenderer(hub),
		game.WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer s.Close()

	up := NewUpgrader("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(up, hub, s, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if first.Type != TypeState {
		t.Fatalf("first message = %q want %q", first.Type, TypeState)
	}
	var st StateView
	if err := json.Unmarshal(first.Payload, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Status != game.StatusIdle || len(st.Cards) != 2 {
		t.Fatalf("state = %+v", st)
	}

	for _, m := range []Message{
		cmd(t, CmdStart, nil),
		cmd(t, CmdSelect, map[string]int{"cardId": 0}),
		cmd(t, CmdSelect, map[string]int{"cardId": 1}),
	} {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write %s: %v", m.Type, err)
		}
	}

	seen := map[string]int{}
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		seen[m.Type]++
		if m.Type != TypeGameEnded {
			continue
		}
		var p endPayload
		_ = json.Unmarshal(m.Payload, &p)
		if !p.Won {
			t.Fatalf("game_ended won = false")
		}
		break
	}
	if seen[TypeCardFlipped] != 2 || seen[TypeCardMatched] != 2 {
		t.Fatalf("events = %v want 2 flips and 2 matches", seen)
	}
}

func TestUpgraderOrigin(t *testing.T) {
	up := NewUpgrader("http://localhost:5173")
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://example.test", true},
		{"http://evil.test", false},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://example.test/ws", nil)
		if c.origin != "" {
			r.Header.Set("Origin", c.origin)
		}
		if got := up.CheckOrigin(r); got != c.want {
			t.Errorf("origin %q: got %v want %v", c.origin, got, c.want)
		}
	}
}
