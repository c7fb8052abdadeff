// Package relay is the lifecycle manager: the single aggregate that owns
// the registry, limiter, push server, poll router, and janitor, and
// binds the push upgrade and poll routes on one port behind one
// acceptor, following a startup order of config -> logging -> stores ->
// services -> transports -> signal handling.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghostwire/relay/internal/config"
	"github.com/ghostwire/relay/internal/janitor"
	"github.com/ghostwire/relay/internal/poll"
	"github.com/ghostwire/relay/internal/push"
	"github.com/ghostwire/relay/internal/ratelimit"
	"github.com/ghostwire/relay/internal/room"
)

const shutdownDeadline = 5 * time.Second

// Relay aggregates every long-lived collaborator as fields rather than
// module-level state, so a test can construct an isolated Relay with its
// own registry and limiter.
type Relay struct {
	cfg *config.Config

	registry *room.Registry
	limiter  *ratelimit.Limiter
	pushSrv  *push.Server
	pollMux  http.Handler
	janitor  *janitor.Janitor

	httpSrv *http.Server

	shuttingDown atomic.Bool
	janitorStop  context.CancelFunc
	janitorWG    sync.WaitGroup
}

func New(cfg *config.Config) *Relay {
	registry := room.NewRegistry()
	limiter := ratelimit.New()

	pushSrv := push.NewServer(registry, limiter, cfg.TrustedProxies, cfg.RoomTTLDefault)
	pollHandler := poll.NewHandler(registry, limiter, cfg.TrustedProxies, cfg.RoomTTLDefault)
	pollRouter := poll.NewRouter(pollHandler, cfg.CORSOrigin)

	rl := &Relay{
		cfg:      cfg,
		registry: registry,
		limiter:  limiter,
		pushSrv:  pushSrv,
		pollMux:  pollRouter,
		janitor:  janitor.New(registry, limiter),
	}

	rl.httpSrv = &http.Server{
		Handler:      http.HandlerFunc(rl.dispatch),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return rl
}

// dispatch is the single acceptor's one decision point: a framed
// WebSocket upgrade goes to the push transport, everything else goes to
// the poll router. Keeping this explicit avoids letting one chi router
// silently own both paths.
func (rl *Relay) dispatch(w http.ResponseWriter, r *http.Request) {
	if isUpgradeRequest(r) {
		rl.pushSrv.HandleWS(w, r)
		return
	}
	rl.pollMux.ServeHTTP(w, r)
}

func isUpgradeRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// ListenAndServe binds cfg.Port, starts the janitor loop, and blocks
// until the server stops (by Shutdown or by a listener error).
func (rl *Relay) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	rl.janitorStop = cancel

	rl.janitorWG.Add(1)
	go func() {
		defer rl.janitorWG.Done()
		rl.janitor.Run(ctx)
	}()

	rl.httpSrv.Addr = addrFromPort(rl.cfg.Port)
	slog.Info("relay listening", "addr", rl.httpSrv.Addr)

	if err := rl.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func addrFromPort(port int) string {
	return ":" + strconv.Itoa(port)
}

// Shutdown runs the graceful-stop sequence: idempotent, stops the
// janitor, emits room_expired to every live room and closes push
// sockets, drains the registry, closes the listener, all bounded by a
// 5s hard deadline.
func (rl *Relay) Shutdown(ctx context.Context) error {
	if !rl.shuttingDown.CompareAndSwap(false, true) {
		return nil // already shutting down
	}

	if rl.janitorStop != nil {
		rl.janitorStop()
	}

	for _, rm := range rl.registry.Snapshot() {
		members := rm.Expire()
		for _, sink := range members {
			_ = sink.Deliver(room.Event{Kind: room.KindRoomExpired, RoomHash: rm.Hash()})
		}
		rl.registry.Destroy(rm.Hash())
	}
	rl.pushSrv.Shutdown()

	deadline, cancel := context.WithTimeout(ctx, shutdownDeadline)
	defer cancel()

	done := make(chan struct{})
	go func() {
		rl.janitorWG.Wait()
		close(done)
	}()

	shutdownErr := rl.httpSrv.Shutdown(deadline)

	select {
	case <-done:
	case <-deadline.Done():
		return deadline.Err()
	}
	return shutdownErr
}
