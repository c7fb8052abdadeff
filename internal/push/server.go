// Package push implements the persistent bidirectional push transport:
// one gorilla/websocket connection per peer, framed JSON events, a
// per-connection room set for O(joined) disconnect cleanup, and a
// 30s heartbeat, generalized from a single chat room per socket to an
// arbitrary set of rooms per socket, each with its own minted peer id.
package push

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/relay/internal/clientkey"
	"github.com/ghostwire/relay/internal/identity"
	"github.com/ghostwire/relay/internal/ratelimit"
	"github.com/ghostwire/relay/internal/relayerr"
	"github.com/ghostwire/relay/internal/room"
)

const (
	maxFrameBytes  = 64 * 1024
	readFrameLimit = 1 << 20 // generous upper bound; exact 64KiB check happens after read
	pingEvery      = 30 * time.Second
	pongWait       = 2 * pingEvery // a peer that misses one interval's pong times out
)

// Server upgrades HTTP connections and dispatches decoded frames against
// the shared room registry and rate limiter.
type Server struct {
	registry       *room.Registry
	limiter        *ratelimit.Limiter
	upgrader       websocket.Upgrader
	trustedProxies int
	defaultTTL     time.Duration

	mu    sync.Mutex
	conns map[*connection]struct{}
}

func NewServer(registry *room.Registry, limiter *ratelimit.Limiter, trustedProxies int, defaultTTL time.Duration) *Server {
	return &Server{
		registry:       registry,
		limiter:        limiter,
		trustedProxies: trustedProxies,
		defaultTTL:     defaultTTL,
		conns:          make(map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) track(c *connection) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Shutdown closes every live connection with a "shutting down" close
// reason, for the lifecycle manager's graceful-stop sequence.
func (s *Server) Shutdown() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.closeWithReason("shutting down")
	}
}

// HandleWS is the single push entry point; the lifecycle manager's
// acceptor hands it every WebSocket upgrade request, whatever its path.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	clientKey := clientkey.Resolve(r, s.trustedProxies)

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("push upgrade failed", "err", err)
		return
	}

	c := newConnection(raw, clientKey)
	s.track(c)
	defer s.untrack(c)
	defer c.close()

	raw.SetReadLimit(readFrameLimit)
	raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.pingLoop(c)

	s.readLoop(c)
	s.cleanupDisconnect(c)
}

func (s *Server) pingLoop(c *connection) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (s *Server) readLoop(c *connection) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) > maxFrameBytes {
			_ = c.sendError(relayerr.CodeInvalidFormat, "frame exceeds 64KiB", "")
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			_ = c.sendError(relayerr.CodeInvalidFormat, relayerr.Message(relayerr.CodeInvalidFormat), "")
			continue
		}

		s.dispatch(c, f)
	}
}

func (s *Server) dispatch(c *connection, f frame) {
	switch f.Event {
	case eventCreateRoom:
		s.handleCreateRoom(c, f)
	case eventJoinRoom:
		s.handleJoinRoom(c, f)
	case eventLeaveRoom:
		s.handleLeaveRoom(c, f)
	case eventDeleteRoom:
		s.handleDeleteRoom(c, f)
	case eventMessage:
		s.handleMessage(c, f)
	case eventPing:
		_ = c.sendPong()
	default:
		_ = c.sendError(relayerr.CodeInvalidFormat, "unknown event", "")
	}
}

func (s *Server) handleCreateRoom(c *connection, f frame) {
	if !s.limiter.Allow(c.clientKey, ratelimit.ActionCreate) {
		_ = c.sendError(relayerr.CodeRateLimited, relayerr.Message(relayerr.CodeRateLimited), f.RoomHash)
		return
	}

	ttl := s.defaultTTL
	if f.TTL > 0 {
		ttl = time.Duration(f.TTL) * time.Second
	}

	_, peerID, deleteToken, err := s.registry.CreatePush(f.RoomHash, ttl, c)
	if err != nil {
		code := relayerr.CodeFor(err)
		_ = c.sendError(code, relayerr.Message(code), f.RoomHash)
		return
	}

	c.trackRoom(f.RoomHash, peerID)
	_ = c.Deliver(room.Event{Kind: room.KindRoomCreated, RoomHash: f.RoomHash, PeerID: peerID, DeleteToken: deleteToken})
}

func (s *Server) handleJoinRoom(c *connection, f frame) {
	if !s.limiter.Allow(c.clientKey, ratelimit.ActionJoin) {
		_ = c.sendError(relayerr.CodeRateLimited, relayerr.Message(relayerr.CodeRateLimited), f.RoomHash)
		return
	}

	rm, err := s.registry.Lookup(f.RoomHash)
	if err != nil {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}

	peerID, err := identity.NewPeerID()
	if err != nil {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}

	peerCount, others, err := rm.JoinPush(peerID, c)
	if err != nil {
		code := relayerr.CodeFor(err)
		_ = c.sendError(code, relayerr.Message(code), f.RoomHash)
		return
	}

	c.trackRoom(f.RoomHash, peerID)
	_ = c.Deliver(room.Event{Kind: room.KindRoomJoined, RoomHash: f.RoomHash, PeerID: peerID, PeerCount: peerCount})

	for _, sink := range others {
		_ = sink.Deliver(room.Event{Kind: room.KindPeerJoined, RoomHash: f.RoomHash, PeerID: peerID, PeerCount: peerCount})
	}
}

func (s *Server) handleLeaveRoom(c *connection, f frame) {
	peerID, ok := c.peerIDFor(f.RoomHash)
	if !ok {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}

	rm, err := s.registry.Lookup(f.RoomHash)
	if err != nil {
		c.untrackRoom(f.RoomHash)
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}

	peerCount, others, emptied, found := rm.LeavePush(peerID)
	c.untrackRoom(f.RoomHash)
	if !found {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}
	if emptied {
		s.registry.Destroy(f.RoomHash)
	}

	for _, sink := range others {
		_ = sink.Deliver(room.Event{Kind: room.KindPeerLeft, RoomHash: f.RoomHash, PeerID: peerID, PeerCount: peerCount})
	}
}

func (s *Server) handleDeleteRoom(c *connection, f frame) {
	rm, err := s.registry.Lookup(f.RoomHash)
	if err != nil {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), f.RoomHash)
		return
	}

	members, ok := rm.Delete(f.DeleteToken)
	if !ok {
		_ = c.sendError(relayerr.CodeInvalidDeleteToken, relayerr.Message(relayerr.CodeInvalidDeleteToken), f.RoomHash)
		return
	}

	s.registry.Destroy(f.RoomHash)
	for _, sink := range members {
		_ = sink.Deliver(room.Event{Kind: room.KindRoomDeleted, RoomHash: f.RoomHash})
	}
}

func (s *Server) handleMessage(c *connection, f frame) {
	env := f.Envelope

	if !s.limiter.Allow(c.clientKey, ratelimit.ActionMessage) {
		_ = c.sendError(relayerr.CodeRateLimited, relayerr.Message(relayerr.CodeRateLimited), env.Room)
		return
	}

	if err := room.ValidateEnvelope(env); err != nil {
		_ = c.sendError(relayerr.CodeInvalidEnvelope, relayerr.Message(relayerr.CodeInvalidEnvelope), env.Room)
		return
	}

	rm, err := s.registry.Lookup(env.Room)
	if err != nil {
		_ = c.sendError(relayerr.CodeRoomError, relayerr.Message(relayerr.CodeRoomError), env.Room)
		return
	}

	peerID, ok := c.peerIDFor(env.Room)
	if !ok {
		_ = c.sendError(relayerr.CodeNotInRoom, relayerr.Message(relayerr.CodeNotInRoom), env.Room)
		return
	}

	others, err := rm.Message(peerID, env)
	if err != nil {
		code := relayerr.CodeFor(err)
		_ = c.sendError(code, relayerr.Message(code), env.Room)
		return
	}

	for _, sink := range others {
		_ = sink.Deliver(room.Event{Kind: room.KindMessage, Envelope: &env})
	}
}

// cleanupDisconnect removes this connection from every room it belongs
// to, emitting peer_left to remaining members and destroying rooms that
// become empty. O(rooms joined by this connection).
func (s *Server) cleanupDisconnect(c *connection) {
	for hash, peerID := range c.snapshotRooms() {
		rm, err := s.registry.Lookup(hash)
		if err != nil {
			continue // already destroyed by another path
		}
		peerCount, others, emptied, found := rm.LeavePush(peerID)
		if !found {
			continue
		}
		if emptied {
			s.registry.Destroy(hash)
		}
		for _, sink := range others {
			_ = sink.Deliver(room.Event{Kind: room.KindPeerLeft, RoomHash: hash, PeerID: peerID, PeerCount: peerCount})
		}
	}
}
