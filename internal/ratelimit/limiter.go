// Package ratelimit implements the per-client sliding-window gate in front
// of room creation, room join, and message send.
package ratelimit

import (
	"sync"
	"time"
)

// Action identifies which counter of a client's rate window to check.
type Action int

const (
	ActionCreate Action = iota
	ActionJoin
	ActionMessage
)

const (
	window     = 60 * time.Second
	staleAfter = 2 * window

	// CreateLimit, JoinLimit, and MessageLimit are the per-client,
	// per-window action caps, exported so the poll transport's health
	// endpoint can report the actual enforced limits rather than
	// duplicated literals.
	CreateLimit  = 5
	JoinLimit    = 20
	MessageLimit = 60
)

func limitFor(a Action) int {
	switch a {
	case ActionCreate:
		return CreateLimit
	case ActionJoin:
		return JoinLimit
	default:
		return MessageLimit
	}
}

// clientWindow is the per-client-key triple of counters plus the
// window's start time.
type clientWindow struct {
	creates, joins, messages int
	windowStart              time.Time
}

func (w *clientWindow) counter(a Action) *int {
	switch a {
	case ActionCreate:
		return &w.creates
	case ActionJoin:
		return &w.joins
	default:
		return &w.messages
	}
}

// Limiter tracks one clientWindow per client key. A client key is the
// caller's resolved network address; both transports resolve it with
// internal/clientkey's trusted-proxy algorithm.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

func New() *Limiter {
	return &Limiter{clients: make(map[string]*clientWindow)}
}

// Allow runs the check-before-effect gate: if the window has elapsed,
// reset and admit; otherwise increment and admit unless the
// action's counter is already at its limit.
func (l *Limiter) Allow(clientKey string, action Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[clientKey]
	if !ok {
		w = &clientWindow{windowStart: now}
		l.clients[clientKey] = w
	}

	if now.Sub(w.windowStart) > window {
		w.creates, w.joins, w.messages = 0, 0, 0
		w.windowStart = now
	}

	counter := w.counter(action)
	if *counter >= limitFor(action) {
		return false
	}
	*counter++
	return true
}

// Sweep removes windows idle for longer than 2x the window length, for
// the janitor's periodic collection pass.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, w := range l.clients {
		if now.Sub(w.windowStart) > staleAfter {
			delete(l.clients, key)
		}
	}
}
