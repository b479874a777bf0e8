package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-academy/internal/academy"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
)

// SignalMessage is one websocket frame on the signal stream.
type SignalMessage struct {
	ProfileID string           `json:"profile_id"`
	Signals   []academy.Signal `json:"signals"`
	SentAt    time.Time        `json:"sent_at"`
}

// Hub fans committed signals out to websocket subscribers. It implements
// academy.Publisher. Subscribers that fall behind are disconnected.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	msgs      chan SignalMessage
	closeSlow func()
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Publish never blocks the commit path.
func (h *Hub) Publish(profileID string, signals []academy.Signal) {
	msg := SignalMessage{ProfileID: profileID, Signals: signals, SentAt: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.msgs <- msg:
		default:
			go s.closeSlow()
		}
	}
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams signals until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	s := &subscriber{
		msgs: make(chan SignalMessage, subscriberBuffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with signals")
		},
	}
	h.add(s)
	defer h.remove(s)
	slog.Debug("signal subscriber connected", "remote", r.RemoteAddr)

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case msg := <-s.msgs:
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg SignalMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
