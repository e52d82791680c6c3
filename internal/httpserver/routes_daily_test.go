package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/robalobadob/matchgrid/internal/game"
	"github.com/robalobadob/matchgrid/internal/store"
)

func TestDailyBoardIsSharedAndLocked(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	h.srv.now = func() time.Time { return day }

	alice := []*http.Cookie{{Name: anonCookieName, Value: "alice"}}
	bob := []*http.Cookie{{Name: anonCookieName, Value: "bob"}}

	var a1, a2, b dailyRes
	if rec := h.do(http.MethodPost, "/daily/new", nil, alice, &a1); rec.Code != http.StatusCreated {
		t.Fatalf("daily new status = %d (%s)", rec.Code, rec.Body.String())
	}
	if a1.Date != "2026-03-14" || a1.Played || a1.Match == nil || a1.Match.Mode != store.ModeDaily {
		t.Fatalf("daily res = %+v", a1)
	}
	h.do(http.MethodPost, "/daily/new", nil, alice, &a2)
	if a2.Match.ID != a1.Match.ID {
		t.Fatalf("second call created a new match: %s != %s", a2.Match.ID, a1.Match.ID)
	}
	h.do(http.MethodPost, "/daily/new", nil, bob, &b)
	if b.Match.ID == a1.Match.ID {
		t.Fatalf("players share a match")
	}

	ma, err := h.st.Get(t.Context(), a1.Match.ID)
	if err != nil {
		t.Fatalf("get alice match: %v", err)
	}
	mb, err := h.st.Get(t.Context(), b.Match.ID)
	if err != nil {
		t.Fatalf("get bob match: %v", err)
	}
	ca, cb := ma.Session.State().Cards, mb.Session.State().Cards
	for i := range ca {
		if ca[i].Value != cb[i].Value {
			t.Fatalf("daily boards differ at card %d", i)
		}
	}

	base := "/game/" + a1.Match.ID
	for _, path := range []string{"/reset", "/replay"} {
		var out map[string]string
		rec := h.do(http.MethodPost, base+path, nil, alice, &out)
		if rec.Code != http.StatusConflict || out["error"] != "daily_locked" {
			t.Fatalf("%s status = %d body = %v", path, rec.Code, out)
		}
	}
}

func TestDailyWinIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.srv.now = func() time.Time { return time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC) }
	cookies := []*http.Cookie{{Name: anonCookieName, Value: "dana"}}

	var res dailyRes
	h.do(http.MethodPost, "/daily/new", nil, cookies, &res)
	m, err := h.st.Get(t.Context(), res.Match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}

	m.Session.Start()
	pairs := map[int][]int{}
	for _, c := range m.Session.State().Cards {
		pairs[c.Value] = append(pairs[c.Value], c.ID)
	}
	for _, ids := range pairs {
		m.Session.SelectCard(ids[0])
		m.Session.SelectCard(ids[1])
	}

	var again dailyRes
	h.do(http.MethodPost, "/daily/new", nil, cookies, &again)
	if !again.Played {
		t.Fatalf("played = false after a win")
	}

	var lb struct {
		Date string           `json:"date"`
		Top  []map[string]any `json:"top"`
	}
	h.do(http.MethodGet, "/daily/leaderboard", nil, nil, &lb)
	if lb.Date != "2026-03-15" || len(lb.Top) != 1 || lb.Top[0]["userId"] != "dana" {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if moves, _ := lb.Top[0]["moves"].(float64); int(moves) != len(pairs) {
		t.Fatalf("moves = %v want %d", lb.Top[0]["moves"], len(pairs))
	}
}

func TestDailyLossLocksBoardAfterSweep(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	h.srv.now = func() time.Time { return day }
	cookies := []*http.Cookie{{Name: anonCookieName, Value: "frank"}}

	var res dailyRes
	if rec := h.do(http.MethodPost, "/daily/new", nil, cookies, &res); rec.Code != http.StatusCreated {
		t.Fatalf("daily new status = %d", rec.Code)
	}
	m, err := h.st.Get(context.Background(), res.Match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}

	m.Session.Start()
	for i := 0; i < res.Match.TimeLimit; i++ {
		m.Session.Tick()
	}
	if got := m.Session.Status(); got != game.StatusLost {
		t.Fatalf("status = %s want lost", got)
	}

	if ids := h.st.Sweep(context.Background(), time.Now().Add(time.Hour)); len(ids) != 1 {
		t.Fatalf("swept %v want the daily match", ids)
	}

	var again dailyRes
	rec := h.do(http.MethodPost, "/daily/new", nil, cookies, &again)
	if rec.Code != http.StatusOK || !again.Played || again.Match != nil {
		t.Fatalf("after loss and sweep: status = %d res = %+v want played", rec.Code, again)
	}

	var lb struct {
		Top []map[string]any `json:"top"`
	}
	h.do(http.MethodGet, "/daily/leaderboard", nil, nil, &lb)
	if len(lb.Top) != 0 {
		t.Fatalf("leaderboard lists a loss: %+v", lb.Top)
	}
}

func TestDailyKeysResetOnNewDay(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 3, 17, 23, 0, 0, 0, time.UTC)
	h.srv.now = func() time.Time { return day }
	cookies := []*http.Cookie{{Name: anonCookieName, Value: "gina"}}

	var first dailyRes
	h.do(http.MethodPost, "/daily/new", nil, cookies, &first)

	day = day.Add(2 * time.Hour)
	var next dailyRes
	h.do(http.MethodPost, "/daily/new", nil, cookies, &next)
	if next.Date != "2026-03-18" || next.Match == nil || next.Match.ID == first.Match.ID {
		t.Fatalf("next day res = %+v", next)
	}

	h.srv.dailyMu.Lock()
	defer h.srv.dailyMu.Unlock()
	if len(h.srv.dailyIDs) != 1 {
		t.Fatalf("daily keys = %v want only today's", h.srv.dailyIDs)
	}
	if _, ok := h.srv.dailyIDs["gina|2026-03-17"]; ok {
		t.Fatalf("yesterday's key kept")
	}
}
