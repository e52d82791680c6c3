// internal/game/engine.go
//
// Core game engine for a single memory-matching session.
// Responsibilities:
//   - Build shuffled boards and rebuild them on reset/replay.
//   - Apply card selections: flip, compare, match or schedule an unflip.
//   - Drive the countdown: one tick per second, pause/resume, loss at zero.
//   - Track state transitions: idle → running ⇄ paused → won/lost.
//
// Notes:
//   - Every mutation happens under one mutex, so timer callbacks and caller
//     commands never interleave.
//   - Pending callbacks are identified by token; a callback whose token was
//     cancelled or replaced does nothing.
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TickInterval is the countdown resolution.
	TickInterval = time.Second
	// UnflipDelay is how long a mismatched pair stays face up.
	UnflipDelay = time.Second
)

// Option customises a Session at construction.
type Option func(*Session)

// WithID sets the session id; a random UUID is used otherwise.
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

// WithRand sets the shuffle source, e.g. a seeded one for daily boards.
func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

// WithRenderer attaches a renderer.
func WithRenderer(r Renderer) Option { return func(s *Session) { s.renderer = r } }

// WithFinishHook registers f to run once per play-through when it is won or
// lost. f runs after the session lock is released.
func WithFinishHook(f func(Result)) Option { return func(s *Session) { s.onFinish = f } }

// pending is the cancellation token of one scheduled callback.
type pending struct{ timer Timer }

// Session is one owned game instance with an explicit lifecycle.
type Session struct {
	mu sync.Mutex

	id        string
	cfg       Config
	round     int
	grid      *Grid
	flipped   []int // face-up, unmatched, at most 2
	matched   []int
	remaining int
	status    Status
	moves     int

	clock    Clock
	rng      *rand.Rand
	renderer Renderer
	onFinish func(Result)

	ticker *pending
	unflip *pending
	result *Result // set by finish, consumed by do
	closed bool
}

// New builds a session in the idle state.
// A non-positive time limit falls back to DefaultTimeLimit.
func New(cfg Config, opts ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{clock: SystemClock{}, renderer: NopRenderer{}}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.rng == nil {
		s.rng = newRand()
	}
	g, err := BuildGrid(cfg.Rows, cfg.Columns, s.rng)
	if err != nil {
		return nil, err
	}
	s.install(cfg, g)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the configuration of the current play-through.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start moves an idle session to running and starts the countdown.
// It does nothing in any other state.
func (s *Session) Start() {
	s.do(s.start)
}

// SelectCard handles a click on card id.
//
// It is ignored unless the session is running, and for unknown, matched or
// already flipped cards. A click while two cards are face up force-unflips
// them and does nothing else.
func (s *Session) SelectCard(id int) {
	s.do(func() { s.selectCard(id) })
}

// Tick advances the countdown by one second. The scheduled ticker calls it
// internally; it is exported for callers that drive time themselves.
func (s *Session) Tick() {
	s.do(s.tick)
}

// Pause stops the countdown and any pending unflip without touching the
// remaining time.
func (s *Session) Pause() {
	s.do(func() {
		if s.status != StatusRunning {
			return
		}
		s.cancel(&s.ticker)
		s.cancel(&s.unflip)
		s.status = StatusPaused
	})
}

// Resume restarts a paused countdown. It is a no-op when no time remains.
func (s *Session) Resume() {
	s.do(func() {
		if s.status != StatusPaused || s.remaining == 0 {
			return
		}
		s.status = StatusRunning
		s.armTicker()
		if len(s.flipped) == 2 {
			s.armUnflip()
		}
	})
}

// Reset rebuilds the board for cfg and returns the session to idle.
// Invalid dimensions are rejected before anything is mutated. A zero
// MaxCards keeps the session's current limit.
func (s *Session) Reset(cfg Config) error {
	if cfg.MaxCards == 0 {
		cfg.MaxCards = s.Config().MaxCards
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	var err error
	s.do(func() { err = s.reset(cfg) })
	return err
}

// Replay resets with the current configuration and starts immediately.
func (s *Session) Replay() {
	s.do(func() {
		if err := s.reset(s.cfg); err != nil {
			return
		}
		s.start()
	})
}

// Close cancels all pending callbacks. Every later call is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel(&s.ticker)
	s.cancel(&s.unflip)
	s.closed = true
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.id,
		Round:     s.round,
		Status:    s.status,
		Rows:      s.cfg.Rows,
		Columns:   s.cfg.Columns,
		TimeLimit: s.cfg.TimeLimit,
		Remaining: s.remaining,
		Moves:     s.moves,
		Cards:     s.grid.Cards(),
		Flipped:   append([]int{}, s.flipped...),
		Matched:   append([]int{}, s.matched...),
	}
}

// do runs fn under the lock, then fires the finish hook if fn ended the
// play-through.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	res := s.result
	s.result = nil
	s.mu.Unlock()

	if res != nil && s.onFinish != nil {
		s.onFinish(*res)
	}
}

func (s *Session) install(cfg Config, g *Grid) {
	s.cfg = cfg
	s.grid = g
	s.flipped = nil
	s.matched = nil
	s.remaining = cfg.TimeLimit
	s.status = StatusIdle
	s.moves = 0
	s.round++
	s.renderer.GridBuilt(g.clone())
}

func (s *Session) reset(cfg Config) error {
	g, err := BuildGrid(cfg.Rows, cfg.Columns, s.rng)
	if err != nil {
		return err
	}
	s.cancel(&s.ticker)
	s.cancel(&s.unflip)
	s.install(cfg, g)
	return nil
}

func (s *Session) start() {
	if s.status != StatusIdle {
		return
	}
	s.status = StatusRunning
	s.renderer.Tick(s.remaining)
	s.armTicker()
}

func (s *Session) selectCard(id int) {
	if s.status != StatusRunning {
		return
	}
	c := s.grid.card(id)
	if c == nil || c.Matched || c.Flipped {
		return
	}
	if len(s.flipped) >= 2 {
		s.unflipAll()
		return
	}

	c.Flipped = true
	s.flipped = append(s.flipped, id)
	s.renderer.CardFlipped(*c)
	if len(s.flipped) == 2 {
		s.resolvePair()
	}
}

func (s *Session) resolvePair() {
	s.moves++
	a, b := s.grid.card(s.flipped[0]), s.grid.card(s.flipped[1])
	if a.Value != b.Value {
		s.armUnflip()
		return
	}

	a.Matched, b.Matched = true, true
	s.matched = append(s.matched, a.ID, b.ID)
	s.flipped = nil
	s.renderer.CardMatched(*a)
	s.renderer.CardMatched(*b)

	if len(s.matched) == s.grid.Size() {
		s.finish(true)
	}
}

// unflipAll turns every pending card face down and drops a scheduled unflip.
func (s *Session) unflipAll() {
	s.cancel(&s.unflip)
	for _, id := range s.flipped {
		c := s.grid.card(id)
		c.Flipped = false
		s.renderer.CardUnflipped(*c)
	}
	s.flipped = nil
}

func (s *Session) tick() {
	if s.status != StatusRunning {
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	s.renderer.Tick(s.remaining)
	if s.remaining == 0 {
		s.finish(false)
	}
}

func (s *Session) finish(won bool) {
	if s.status.Finished() {
		return
	}
	s.cancel(&s.ticker)
	if len(s.flipped) == 2 {
		s.unflipAll()
	}
	s.cancel(&s.unflip)

	if won {
		s.status = StatusWon
	} else {
		s.status = StatusLost
		s.remaining = 0
	}
	s.renderer.GameEnded(won)
	s.result = &Result{
		SessionID: s.id,
		Round:     s.round,
		Won:       won,
		Rows:      s.cfg.Rows,
		Columns:   s.cfg.Columns,
		TimeLimit: s.cfg.TimeLimit,
		Remaining: s.remaining,
		Moves:     s.moves,
	}
}

func (s *Session) armTicker() {
	p := &pending{}
	s.ticker = p
	p.timer = s.clock.AfterFunc(TickInterval, func() {
		s.do(func() {
			if s.ticker != p {
				return
			}
			s.ticker = nil
			s.tick()
			if s.status == StatusRunning {
				s.armTicker()
			}
		})
	})
}

func (s *Session) armUnflip() {
	p := &pending{}
	s.unflip = p
	p.timer = s.clock.AfterFunc(UnflipDelay, func() {
		s.do(func() {
			if s.unflip != p {
				return
			}
			s.unflip = nil
			s.unflipAll()
		})
	})
}

func (s *Session) cancel(p **pending) {
	if *p == nil {
		return
	}
	(*p).timer.Stop()
	*p = nil
}

// newRand seeds a PCG source from crypto/rand.
func newRand() *rand.Rand {
	var b [16]byte
	_, _ = crand.Read(b[:])
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}
