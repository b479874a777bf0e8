package session

import (
	"context"
	"sync"
	"time"
)

// Timer counts down whole seconds. It is cooperative: it only advances when
// a tick arrives, so tests can drive it with their own channel.
type Timer struct {
	ticks  <-chan time.Time
	ticker *time.Ticker

	mu        sync.Mutex
	remaining int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTimer returns a countdown of seconds. A nil ticks channel uses a real
// one-second ticker.
func NewTimer(seconds int, ticks <-chan time.Time) *Timer {
	t := &Timer{
		remaining: max(seconds, 0),
		ticks:     ticks,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if t.ticks == nil {
		t.ticker = time.NewTicker(time.Second)
		t.ticks = t.ticker.C
	}
	return t
}

// Remaining is the number of seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Run blocks until the countdown expires, Stop is called or ctx is done.
// onTick sees the remaining seconds after each tick; onExpire runs once when
// the count reaches zero. Either callback may be nil.
func (t *Timer) Run(ctx context.Context, onTick func(remaining int), onExpire func()) {
	defer close(t.done)
	if t.ticker != nil {
		defer t.ticker.Stop()
	}

	for {
		if t.Remaining() <= 0 {
			if onExpire != nil {
				onExpire()
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-t.ticks:
		}

		t.mu.Lock()
		t.remaining--
		left := t.remaining
		t.mu.Unlock()
		if onTick != nil {
			onTick(left)
		}
	}
}

// Stop ends the countdown. Safe to call more than once.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		if t.ticker != nil {
			t.ticker.Stop()
		}
	})
}

// Done is closed when Run returns.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}
