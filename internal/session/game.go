package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

// GameCommitter is the part of the academy service a game session needs.
type GameCommitter interface {
	CompleteGame(ctx context.Context, gameType string, score int) (academy.Outcome, error)
}

// Game is one mini-game round: a score and an optional countdown. The round
// is committed once, either by Finish or when the countdown expires.
type Game struct {
	ID   string
	Type string

	svc   GameCommitter
	timer *Timer

	mu       sync.Mutex
	score    int
	closed   bool
	outcome  academy.Outcome
	err      error
	finished chan struct{}
}

// NewGame prepares a round of gameType. Unknown types are rejected by the
// service at commit time, which makes them a no-op.
func NewGame(gameType string, svc GameCommitter) *Game {
	return &Game{
		ID:       uuid.NewString(),
		Type:     gameType,
		svc:      svc,
		finished: make(chan struct{}),
	}
}

// Known reports whether the game type earns XP.
func (g *Game) Known() bool {
	return xp.KnownGame(g.Type)
}

// StartCountdown runs a timer in the background. When it reaches zero the
// round is committed with ctx. Cancelling ctx stops the timer without
// committing. ticks may be nil for a real one-second clock.
func (g *Game) StartCountdown(ctx context.Context, seconds int, ticks <-chan time.Time) *Timer {
	g.mu.Lock()
	if g.closed || g.timer != nil {
		t := g.timer
		g.mu.Unlock()
		return t
	}
	t := NewTimer(seconds, ticks)
	g.timer = t
	g.mu.Unlock()

	go t.Run(ctx, nil, func() {
		if _, err := g.finish(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			slog.Error("game commit on expiry failed", "game_id", g.ID, "type", g.Type, "error", err)
		}
	})
	return t
}

// Remaining is the countdown's seconds left, or 0 without a countdown.
func (g *Game) Remaining() int {
	g.mu.Lock()
	t := g.timer
	g.mu.Unlock()
	if t == nil {
		return 0
	}
	return t.Remaining()
}

// AddPoints changes the score. The score never drops below zero.
func (g *Game) AddPoints(n int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return g.score, ErrSessionClosed
	}
	g.score = max(g.score+n, 0)
	return g.score, nil
}

// Score is the current score.
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

// Finish stops the countdown and commits the score.
func (g *Game) Finish(ctx context.Context) (academy.Outcome, error) {
	return g.finish(ctx)
}

func (g *Game) finish(ctx context.Context) (academy.Outcome, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return academy.Outcome{}, ErrSessionClosed
	}
	g.closed = true
	score := g.score
	t := g.timer
	g.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	out, err := g.svc.CompleteGame(ctx, g.Type, score)

	g.mu.Lock()
	g.outcome, g.err = out, err
	g.mu.Unlock()
	close(g.finished)
	return out, err
}

// Abort stops the countdown and discards the round.
func (g *Game) Abort() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrSessionClosed
	}
	g.closed = true
	t := g.timer
	g.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	close(g.finished)
	return nil
}

// Wait blocks until the round is finished or aborted and returns the commit
// outcome. An aborted round returns a zero outcome.
func (g *Game) Wait(ctx context.Context) (academy.Outcome, error) {
	select {
	case <-ctx.Done():
		return academy.Outcome{}, ctx.Err()
	case <-g.finished:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outcome, g.err
}

// Closed reports whether the round has ended.
func (g *Game) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
