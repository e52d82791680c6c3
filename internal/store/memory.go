// internal/store/memory.go
//
// In-memory registry of live matches.
// A match wraps one game session with the identity of its owner; the session
// itself holds all play state, so nothing here needs to be durable.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Sweep closes and drops matches that have been idle past a TTL.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/matchgrid/internal/game"
)

// ErrNotFound is returned by Get for unknown match ids.
var ErrNotFound = errors.New("match not found")

// Mode distinguishes free play from the daily challenge.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDaily  Mode = "daily"
)

// Match is a live session plus its owner.
type Match struct {
	Session     *game.Session
	UserID      string // set when the creator was signed in
	AnonymousID string // guest cookie id otherwise
	Mode        Mode
	Date        string // daily matches only

	mu       sync.Mutex
	lastSeen time.Time
}

// ID returns the session id.
func (m *Match) ID() string { return m.Session.ID() }

// OwnedBy reports whether the caller identified by userID/anonID created the match.
func (m *Match) OwnedBy(userID, anonID string) bool {
	if m.UserID != "" {
		return m.UserID == userID
	}
	return m.AnonymousID != "" && m.AnonymousID == anonID
}

// Touch records activity on the match.
func (m *Match) Touch(now time.Time) {
	m.mu.Lock()
	m.lastSeen = now
	m.mu.Unlock()
}

func (m *Match) idleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

// Store defines the registry of live matches.
type Store interface {
	// Save adds or replaces a match.
	Save(ctx context.Context, m *Match) error

	// Get retrieves a match by session id.
	// Returns ErrNotFound if the match is not registered.
	Get(ctx context.Context, id string) (*Match, error)

	// Delete closes and removes a match.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes matches idle since before cutoff.
	// It returns the removed ids.
	Sweep(ctx context.Context, cutoff time.Time) []string
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards matches map
	matches map[string]*Match // keyed by session id
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{matches: make(map[string]*Match)}
}

func (m *memory) Save(ctx context.Context, mt *Match) error {
	if mt.idleSince().IsZero() {
		mt.Touch(time.Now())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[mt.ID()] = mt
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mt, ok := m.matches[id]; ok {
		return mt, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	mt, ok := m.matches[id]
	delete(m.matches, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	mt.Session.Close()
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) []string {
	m.mu.Lock()
	var stale []*Match
	for id, mt := range m.matches {
		if mt.idleSince().Before(cutoff) {
			stale = append(stale, mt)
			delete(m.matches, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, mt := range stale {
		mt.Session.Close()
		ids = append(ids, mt.ID())
	}
	return ids
}

// RunSweeper calls Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, s Store, interval, ttl time.Duration, onSweep func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ids := s.Sweep(ctx, now.Add(-ttl)); len(ids) > 0 && onSweep != nil {
				onSweep(ids)
			}
		}
	}
}
