// internal/httpserver/routes_game.go
//
// HTTP routes for free-play matches, mounted under /game.
//   - POST /game/new              → create a match ({rows, columns, timeLimit})
//   - GET  /game/{id}             → snapshot (face-down values hidden)
//   - POST /game/{id}/start|pause|resume|replay
//   - POST /game/{id}/select      → {cardId}
//   - POST /game/{id}/reset       → {rows, columns, timeLimit}
//   - DELETE /game/{id}           → abandon the match
//   - GET  /game/{id}/ws          → live renderer events + commands
//
// Only the match owner (signed-in user or guest cookie) may drive a match.
// Finished play-throughs are persisted from the session's finish hook.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/matchgrid/internal/daily"
	"github.com/robalobadob/matchgrid/internal/game"
	"github.com/robalobadob/matchgrid/internal/history"
	"github.com/robalobadob/matchgrid/internal/live"
	"github.com/robalobadob/matchgrid/internal/store"
)

var errDailyLocked = errors.New("daily board cannot be reset or replayed")

type ctxMatchKey struct{}

func matchFrom(ctx context.Context) *store.Match {
	m, _ := ctx.Value(ctxMatchKey{}).(*store.Match)
	return m
}

// boardReq is the body of /game/new and /game/{id}/reset.
type boardReq struct {
	Rows      int `json:"rows"`
	Columns   int `json:"columns"`
	TimeLimit int `json:"timeLimit"`
}

type selectReq struct {
	CardID *int `json:"cardId"`
}

// matchRes is a match snapshot as returned to players.
type matchRes struct {
	live.StateView
	Mode store.Mode `json:"mode"`
	Date string     `json:"date,omitempty"`
}

func viewMatch(m *store.Match) matchRes {
	return matchRes{StateView: live.ViewState(m.Session.State()), Mode: m.Mode, Date: m.Date}
}

func (s *Server) mountGame(r chi.Router) {
	r.Post("/new", s.handleNewGame)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(s.loadMatch)
		r.Get("/", s.handleState)

		r.Group(func(r chi.Router) {
			r.Use(requireOwner)
			r.Post("/start", s.handleCommand(func(m *store.Match) error {
				m.Session.Start()
				return nil
			}))
			r.Post("/pause", s.handleCommand(func(m *store.Match) error {
				m.Session.Pause()
				return nil
			}))
			r.Post("/resume", s.handleCommand(func(m *store.Match) error {
				m.Session.Resume()
				return nil
			}))
			r.Post("/replay", s.handleCommand(func(m *store.Match) error {
				if m.Mode == store.ModeDaily {
					return errDailyLocked
				}
				m.Session.Replay()
				return nil
			}))
			r.Post("/select", s.handleSelect)
			r.Post("/reset", s.handleReset)
			r.Delete("/", s.handleAbandon)
		})
	})
}

// decodeOptional decodes a JSON body; an empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeGameError maps domain errors to HTTP responses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidDimensions):
		writeError(w, http.StatusBadRequest, "invalid_dimensions")
	case errors.Is(err, errDailyLocked):
		writeError(w, http.StatusConflict, "daily_locked")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		log.Error().Err(err).Msg("game request")
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

// handleNewGame creates a free-play match owned by the caller.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req boardReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	cfg := game.Config{Rows: req.Rows, Columns: req.Columns, TimeLimit: req.TimeLimit, MaxCards: s.cfg.MaxCards}
	if cfg.Rows == 0 && cfg.Columns == 0 {
		cfg.Rows, cfg.Columns = s.cfg.DefaultRows, s.cfg.DefaultColumns
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = s.cfg.DefaultTimeLimit
	}

	m, err := s.newMatch(r.Context(), s.caller(w, r), cfg, store.ModeNormal, "", nil)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewMatch(m))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(viewMatch(matchFrom(r.Context())))
}

// handleCommand runs a body-less transition and returns the new snapshot.
func (s *Server) handleCommand(fn func(*store.Match) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := matchFrom(r.Context())
		if err := fn(m); err != nil {
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(viewMatch(m))
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	m := matchFrom(r.Context())
	m.Session.SelectCard(*req.CardID)
	_ = json.NewEncoder(w).Encode(viewMatch(m))
}

// handleReset rebuilds the board. An empty body keeps the current board size.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r.Context())
	if m.Mode == store.ModeDaily {
		writeGameError(w, errDailyLocked)
		return
	}
	var req boardReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	cur := m.Session.Config()
	cfg := game.Config{Rows: req.Rows, Columns: req.Columns, TimeLimit: req.TimeLimit}
	if cfg.Rows == 0 && cfg.Columns == 0 {
		cfg.Rows, cfg.Columns = cur.Rows, cur.Columns
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = cur.TimeLimit
	}
	if err := m.Session.Reset(cfg); err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewMatch(m))
}

// handleWS streams live events to the owner and accepts their commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r.Context())
	if !ownsMatch(r, m) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	live.ServeWS(s.upgrader, s.hubs.Open(m.ID()), s.controllerFor(m), w, r)
}

// handleAbandon closes the match and disconnects its live subscribers.
func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r.Context())
	if err := s.store.Delete(r.Context(), m.ID()); err != nil {
		writeGameError(w, err)
		return
	}
	s.hubs.Close(m.ID())
	w.WriteHeader(http.StatusNoContent)
}

// controllerFor returns the command surface a live connection drives. Every
// command marks the match active so the idle sweeper leaves it alone.
func (s *Server) controllerFor(m *store.Match) live.Controller {
	var ctrl live.Controller = m.Session
	if m.Mode == store.ModeDaily {
		ctrl = dailyControl{m.Session}
	}
	return touchControl{Controller: ctrl, touch: func() { m.Touch(s.now()) }}
}

// dailyControl rejects board changes on a daily match.
type dailyControl struct{ *game.Session }

func (dailyControl) Reset(game.Config) error { return errDailyLocked }
func (dailyControl) Replay()                 {}

type touchControl struct {
	live.Controller
	touch func()
}

func (c touchControl) Start() {
	c.touch()
	c.Controller.Start()
}

func (c touchControl) SelectCard(id int) {
	c.touch()
	c.Controller.SelectCard(id)
}

func (c touchControl) Pause() {
	c.touch()
	c.Controller.Pause()
}

func (c touchControl) Resume() {
	c.touch()
	c.Controller.Resume()
}

func (c touchControl) Reset(cfg game.Config) error {
	c.touch()
	return c.Controller.Reset(cfg)
}

func (c touchControl) Replay() {
	c.touch()
	c.Controller.Replay()
}

func (c touchControl) State() game.State {
	c.touch()
	return c.Controller.State()
}

// --------------------------- middleware ------------------------------------

// loadMatch resolves {id} into the request context and marks the match active.
func (s *Server) loadMatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		m.Touch(s.now())
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxMatchKey{}, m)))
	})
}

func ownsMatch(r *http.Request, m *store.Match) bool {
	var uid string
	if me := userFrom(r.Context()); me != nil {
		uid = me.ID
	}
	return m.OwnedBy(uid, anonID(r))
}

func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ownsMatch(r, matchFrom(r.Context())) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ matches ------------------------------------

// newMatch builds a session owned by the caller, wires its renderers and
// registers it. rng may be nil for a random board.
func (s *Server) newMatch(ctx context.Context, p player, cfg game.Config, mode store.Mode, date string, rng *rand.Rand) (*store.Match, error) {
	id := uuid.NewString()
	m := &store.Match{UserID: p.userID, AnonymousID: p.anonID, Mode: mode, Date: date}

	var renderer game.Renderer = s.hubs.Open(id)
	if s.bus != nil {
		renderer = live.Multi(renderer, live.NewPublisher(s.bus, id))
	}
	opts := []game.Option{
		game.WithID(id),
		game.WithRenderer(renderer),
		game.WithFinishHook(func(res game.Result) { s.recordResult(m, res) }),
	}
	if rng != nil {
		opts = append(opts, game.WithRand(rng))
	}

	sess, err := game.New(cfg, opts...)
	if err != nil {
		s.hubs.Close(id)
		return nil, err
	}
	m.Session = sess
	if err := s.store.Save(ctx, m); err != nil {
		sess.Close()
		s.hubs.Close(id)
		return nil, err
	}
	log.Info().Str("session", id).Str("mode", string(mode)).
		Int("rows", cfg.Rows).Int("columns", cfg.Columns).Msg("match created")
	return m, nil
}

// player identifies the caller: a signed-in user or a guest cookie.
type player struct {
	userID string
	anonID string
}

// id is the key used for per-player records such as daily results.
func (p player) id() string {
	if p.userID != "" {
		return p.userID
	}
	return p.anonID
}

// caller resolves the requesting player, issuing a guest cookie when needed.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) player {
	if me := userFrom(r.Context()); me != nil {
		return player{userID: me.ID}
	}
	return player{anonID: s.ensureAnonID(w, r)}
}

// recordResult persists a finished play-through. Failures are logged only.
func (s *Server) recordResult(m *store.Match, res game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := string(game.StatusLost)
	if res.Won {
		status = string(game.StatusWon)
	}
	l := log.With().Str("session", res.SessionID).Int("round", res.Round).Logger()

	err := s.history.RecordGame(ctx, history.Game{
		SessionID:   res.SessionID,
		Round:       res.Round,
		UserID:      m.UserID,
		AnonymousID: m.AnonymousID,
		Mode:        string(m.Mode),
		Rows:        res.Rows,
		Columns:     res.Columns,
		TimeLimit:   res.TimeLimit,
		Status:      status,
		Moves:       res.Moves,
		ElapsedSec:  res.Elapsed(),
	})
	if err != nil {
		l.Warn().Err(err).Msg("record game")
	}
	if m.UserID != "" {
		if err := s.history.BumpStats(ctx, m.UserID, res.Won); err != nil {
			l.Warn().Err(err).Str("user", m.UserID).Msg("bump stats")
		}
	}
	if m.Mode == store.ModeDaily {
		err := s.daily.InsertResult(ctx, daily.Result{
			UserID:     player{userID: m.UserID, anonID: m.AnonymousID}.id(),
			Date:       m.Date,
			Won:        res.Won,
			Moves:      res.Moves,
			ElapsedSec: res.Elapsed(),
		})
		if err != nil {
			l.Warn().Err(err).Msg("record daily result")
		}
	}
	l.Info().Bool("won", res.Won).Int("moves", res.Moves).Msg("match finished")
}
