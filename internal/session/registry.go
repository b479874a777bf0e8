package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

// DefaultIdleTTL is how long an open session may go untouched before Sweep
// aborts it.
const DefaultIdleTTL = 30 * time.Minute

// Registry holds the open sessions by id. Every lookup marks the session as
// seen; Sweep aborts sessions left idle past the TTL.
type Registry struct {
	clock   progress.Clock
	idleTTL time.Duration

	mu      sync.Mutex
	lessons map[string]*Lesson
	games   map[string]*Game
	seen    map[string]time.Time
}

func NewRegistry() *Registry {
	return NewRegistryWithIdleTTL(DefaultIdleTTL, nil)
}

// NewRegistryWithIdleTTL creates a registry that aborts sessions idle for
// longer than ttl. A non-positive ttl falls back to DefaultIdleTTL.
func NewRegistryWithIdleTTL(ttl time.Duration, clock progress.Clock) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if clock == nil {
		clock = progress.SystemClock{}
	}
	return &Registry{
		clock:   clock,
		idleTTL: ttl,
		lessons: make(map[string]*Lesson),
		games:   make(map[string]*Game),
		seen:    make(map[string]time.Time),
	}
}

// AddLesson registers a lesson session under its id.
func (r *Registry) AddLesson(s *Lesson) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lessons[s.ID] = s
	r.seen[s.ID] = r.clock.Now()
}

// Lesson returns an open lesson session.
func (r *Registry) Lesson(id string) (*Lesson, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.lessons[id]
	if ok {
		r.seen[id] = r.clock.Now()
	}
	return s, ok
}

// AddGame registers a game session under its id.
func (r *Registry) AddGame(g *Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
	r.seen[g.ID] = r.clock.Now()
}

// Game returns an open game session.
func (r *Registry) Game(id string) (*Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if ok {
		r.seen[id] = r.clock.Now()
	}
	return g, ok
}

// Remove forgets a session of either kind.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget(id)
}

func (r *Registry) forget(id string) {
	delete(r.lessons, id)
	delete(r.games, id)
	delete(r.seen, id)
}

// Sweep drops sessions that have been finished or aborted, aborts and drops
// open ones idle for longer than the TTL, and returns how many were removed.
// An idle lesson is never committed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	idle := func(id string) bool {
		return now.Sub(r.seen[id]) > r.idleTTL
	}

	var n int
	for id, s := range r.lessons {
		if s.Closed() {
			r.forget(id)
			n++
			continue
		}
		if idle(id) {
			_ = s.Abort()
			slog.Info("idle lesson session aborted", "session", id, "lesson", s.LessonID())
			r.forget(id)
			n++
		}
	}
	for id, g := range r.games {
		if g.Closed() {
			r.forget(id)
			n++
			continue
		}
		if idle(id) {
			_ = g.Abort()
			slog.Info("idle game session aborted", "session", id, "game_type", g.Type)
			r.forget(id)
			n++
		}
	}
	return n
}

// Len is the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lessons) + len(r.games)
}
