package poll

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghostwire/relay/internal/clientkey"
	"github.com/ghostwire/relay/internal/identity"
	"github.com/ghostwire/relay/internal/ratelimit"
	"github.com/ghostwire/relay/internal/relayerr"
	"github.com/ghostwire/relay/internal/room"
)

// Handler implements the stateless poll surface against the same
// registry and limiter the push transport uses, so both transports
// observe one consistent room state machine.
type Handler struct {
	registry       *room.Registry
	limiter        *ratelimit.Limiter
	trustedProxies int
	defaultTTL     time.Duration
	startedAt      time.Time
}

func NewHandler(registry *room.Registry, limiter *ratelimit.Limiter, trustedProxies int, defaultTTL time.Duration) *Handler {
	return &Handler{
		registry:       registry,
		limiter:        limiter,
		trustedProxies: trustedProxies,
		defaultTTL:     defaultTTL,
		startedAt:      time.Now(),
	}
}

func (h *Handler) clientKey(r *http.Request) string {
	return clientkey.Resolve(r, h.trustedProxies)
}

// fanOut delivers an event to a set of push sinks, ignoring individual
// delivery failures: a closed socket fails at once, and a sink whose send
// buffer is full holds the request for at most the push write timeout
// before it is skipped; dead sockets are reaped by disconnect cleanup or
// the next heartbeat failure.
func fanOut(sinks []room.PushSink, e room.Event) {
	for _, sink := range sinks {
		_ = sink.Deliver(e)
	}
}

type createRoomRequest struct {
	RoomHash string `json:"roomHash"`
	TTL      int64  `json:"ttl"`
}

type createRoomResponse struct {
	RoomHash    string `json:"roomHash"`
	PeerID      string `json:"peerId"`
	DeleteToken string `json:"deleteToken"`
	PeerCount   int    `json:"peerCount"`
}

// CreateRoom handles POST /rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomHash == "" {
		writeError(w, http.StatusBadRequest, relayerr.CodeInvalidFormat)
		return
	}

	if !h.limiter.Allow(h.clientKey(r), ratelimit.ActionCreate) {
		writeError(w, http.StatusTooManyRequests, relayerr.CodeRateLimited)
		return
	}

	ttl := h.defaultTTL
	if req.TTL > 0 {
		ttl = time.Duration(req.TTL) * time.Second
	}

	rm, peerID, deleteToken, err := h.registry.CreatePoll(req.RoomHash, ttl)
	if err != nil {
		switch {
		case err == room.ErrCapacityExceeded:
			writeError(w, http.StatusServiceUnavailable, relayerr.CodeCapacityExceeded)
		default:
			writeError(w, http.StatusConflict, relayerr.CodeRoomError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomHash:    req.RoomHash,
		PeerID:      peerID,
		DeleteToken: deleteToken,
		PeerCount:   rm.PeerCount(),
	})
}

type joinRoomResponse struct {
	RoomHash  string `json:"roomHash"`
	PeerID    string `json:"peerId"`
	PeerCount int    `json:"peerCount"`
}

// JoinRoom handles POST /rooms/{hash}/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	if !h.limiter.Allow(h.clientKey(r), ratelimit.ActionJoin) {
		writeError(w, http.StatusTooManyRequests, relayerr.CodeRateLimited)
		return
	}

	rm, err := h.registry.Lookup(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}

	peerID, err := identity.NewPeerID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, relayerr.CodeRoomError)
		return
	}

	peerCount, others, err := rm.JoinPoll(peerID)
	if err != nil {
		writeError(w, http.StatusForbidden, relayerr.CodeFor(err))
		return
	}

	fanOut(others, room.Event{Kind: room.KindPeerJoined, RoomHash: hash, PeerID: peerID, PeerCount: peerCount})
	writeJSON(w, http.StatusOK, joinRoomResponse{RoomHash: hash, PeerID: peerID, PeerCount: peerCount})
}

type sendMessageRequest struct {
	PeerID   string        `json:"peerId"`
	Envelope room.Envelope `json:"envelope"`
}

// SendMessage handles POST /rooms/{hash}/send.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PeerID == "" {
		writeError(w, http.StatusBadRequest, relayerr.CodeInvalidFormat)
		return
	}

	if !h.limiter.Allow(h.clientKey(r), ratelimit.ActionMessage) {
		writeError(w, http.StatusTooManyRequests, relayerr.CodeRateLimited)
		return
	}

	req.Envelope.Room = hash
	if err := room.ValidateEnvelope(req.Envelope); err != nil {
		writeError(w, http.StatusBadRequest, relayerr.CodeInvalidEnvelope)
		return
	}

	rm, err := h.registry.Lookup(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}

	others, err := rm.Message(req.PeerID, req.Envelope)
	if err != nil {
		writeError(w, http.StatusForbidden, relayerr.CodeFor(err))
		return
	}
	rm.TouchPoll(req.PeerID)

	fanOut(others, room.Event{Kind: room.KindMessage, Envelope: &req.Envelope})
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

type pollResponse struct {
	Messages  []room.Envelope `json:"messages"`
	PeerCount int             `json:"peerCount"`
	RoomHash  string          `json:"roomHash"`
}

// PollRoom handles GET /rooms/{hash}/poll?since=T&peerId=P.
func (h *Handler) PollRoom(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	peerID := r.URL.Query().Get("peerId")

	since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		since = 0
	}

	rm, err := h.registry.Lookup(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}

	messages, peerCount, _ := rm.Poll(peerID, since)
	writeJSON(w, http.StatusOK, pollResponse{Messages: messages, PeerCount: peerCount, RoomHash: hash})
}

type leaveRoomRequest struct {
	PeerID string `json:"peerId"`
}

// LeaveRoom handles POST /rooms/{hash}/leave. An unknown peerId yields
// the same 404 ROOM_ERROR as an unknown hash, even though it weakly
// discloses that the room itself exists; a deliberate choice to keep
// the error surface for this route uniform rather than adding a third
// code for "room exists but you were never in it".
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	var req leaveRoomRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	rm, err := h.registry.Lookup(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}

	peerCount, others, emptied, ok := rm.LeavePoll(req.PeerID)
	if !ok {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}
	if emptied {
		h.registry.Destroy(hash)
	}

	fanOut(others, room.Event{Kind: room.KindPeerLeft, RoomHash: hash, PeerID: req.PeerID, PeerCount: peerCount})
	writeJSON(w, http.StatusOK, map[string]bool{"left": true})
}

// DeleteRoom handles DELETE /rooms/{hash} with the X-Delete-Token header.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	token := r.Header.Get("X-Delete-Token")

	rm, err := h.registry.Lookup(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, relayerr.CodeRoomError)
		return
	}

	members, ok := rm.Delete(token)
	if !ok {
		writeError(w, http.StatusForbidden, relayerr.CodeInvalidDeleteToken)
		return
	}

	h.registry.Destroy(hash)
	fanOut(members, room.Event{Kind: room.KindRoomDeleted, RoomHash: hash})
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
