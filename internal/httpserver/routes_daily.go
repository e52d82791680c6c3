// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge, mounted under /daily.
//   - POST /daily/new         → start today's board (creates or reuses a match)
//   - GET  /daily/leaderboard → fastest wins for today (or ?date=YYYY-MM-DD)
//
// Every player gets the same board for a UTC day: the shuffle is seeded from
// the date and DAILY_SALT. A player who already finished today's board, won
// or lost, gets played=true.
// Daily matches are driven through the regular /game/{id} routes but cannot
// be reset or replayed.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/matchgrid/internal/daily"
	"github.com/robalobadob/matchgrid/internal/store"
)

// dailyRes is returned by /daily/new.
type dailyRes struct {
	Match  *matchRes `json:"match,omitempty"`
	Date   string    `json:"date"`
	Played bool      `json:"played"`
}

func (s *Server) mountDaily(r chi.Router) {
	r.Post("/new", s.handleDailyNew)
	r.Get("/leaderboard", s.handleDailyLeaderboard)
}

// handleDailyNew returns the caller's match for today's board.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	date := daily.DateKey(now)

	p := s.caller(w, r)
	uid := p.id()

	played, err := s.daily.AlreadyPlayed(r.Context(), uid, date)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily lookup")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		_ = json.NewEncoder(w).Encode(dailyRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	s.dailyMu.Lock()
	defer s.dailyMu.Unlock()

	if s.dailyDate != date {
		clear(s.dailyIDs)
		s.dailyDate = date
	}

	if id, ok := s.dailyIDs[key]; ok {
		if m, err := s.store.Get(r.Context(), id); err == nil {
			res := viewMatch(m)
			_ = json.NewEncoder(w).Encode(dailyRes{Match: &res, Date: date})
			return
		}
		delete(s.dailyIDs, key)
	}

	m, err := s.newMatch(r.Context(), p, daily.Config(), store.ModeDaily, date, daily.Rand(now, s.cfg.DailySalt))
	if err != nil {
		writeGameError(w, err)
		return
	}
	s.dailyIDs[key] = m.ID()
	res := viewMatch(m)
	writeJSON(w, http.StatusCreated, dailyRes{Match: &res, Date: date})
}

// handleDailyLeaderboard returns the leaderboard for ?date= (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	}
	top, err := s.daily.Leaderboard(r.Context(), date, 20)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"date": date, "top": top})
}
