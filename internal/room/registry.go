package room

import (
	"sync"
	"time"

	"github.com/ghostwire/relay/internal/identity"
)

// MaxRooms is the global cap on live rooms, exported so the poll
// transport's health endpoint can report the actual enforced limit
// rather than a duplicated literal.
const MaxRooms = 10000

// Registry is the keyed store of rooms by opaque hash. It owns global
// capacity and the one-room-per-hash uniqueness invariant; per-room
// internal state is owned by the Room itself once inserted.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreatePush creates a room and inserts the creator as its first push
// member, atomically with respect to any other observer: the room never
// becomes visible in the registry with zero members.
func (r *Registry) CreatePush(hash string, ttl time.Duration, sink PushSink) (rm *Room, peerID, deleteToken string, err error) {
	rm, deleteToken, err = r.beginCreate(hash, ttl)
	if err != nil {
		return nil, "", "", err
	}
	peerID, err = identity.NewPeerID()
	if err != nil {
		return nil, "", "", err
	}
	rm.joinAsCreatorPush(peerID, sink)

	r.mu.Lock()
	r.rooms[hash] = rm
	r.mu.Unlock()

	return rm, peerID, deleteToken, nil
}

// CreatePoll creates a room and inserts the creator as its first poll
// member, with the same atomicity guarantee as CreatePush.
func (r *Registry) CreatePoll(hash string, ttl time.Duration) (rm *Room, peerID, deleteToken string, err error) {
	rm, deleteToken, err = r.beginCreate(hash, ttl)
	if err != nil {
		return nil, "", "", err
	}
	peerID, err = identity.NewPeerID()
	if err != nil {
		return nil, "", "", err
	}
	rm.joinAsCreatorPoll(peerID)

	r.mu.Lock()
	r.rooms[hash] = rm
	r.mu.Unlock()

	return rm, peerID, deleteToken, nil
}

// beginCreate validates capacity and uniqueness and constructs the room
// object, but does not publish it into the registry map yet — the caller
// inserts the creator member first so the room is never observably empty.
func (r *Registry) beginCreate(hash string, ttl time.Duration) (*Room, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= MaxRooms {
		return nil, "", ErrCapacityExceeded
	}
	if _, exists := r.rooms[hash]; exists {
		return nil, "", ErrRoomError
	}

	deleteToken, err := identity.NewDeleteToken()
	if err != nil {
		return nil, "", err
	}
	return newRoom(hash, deleteToken, ttl), deleteToken, nil
}

// Lookup returns the room for hash, or ErrRoomError if none exists. The
// same generic error is returned for "never existed" and "just expired"
// by construction: Destroy removes the map entry, so both cases reach
// this branch identically.
func (r *Registry) Lookup(hash string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[hash]
	if !ok {
		return nil, ErrRoomError
	}
	return rm, nil
}

// Destroy removes hash from the registry. Idempotent: destroying a hash
// that is already gone is a no-op.
func (r *Registry) Destroy(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, hash)
}

// Count returns the number of live rooms, for the health endpoint.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Stats reports the live room count and the combined push/poll peer
// counts across every room, for the health endpoint.
func (r *Registry) Stats() (rooms, pushPeers, pollPeers int) {
	for _, rm := range r.Snapshot() {
		push, poll := rm.MemberCounts()
		pushPeers += push
		pollPeers += poll
	}
	return r.Count(), pushPeers, pollPeers
}

// Snapshot returns every live room, for the Janitor's sweeps. The slice
// is a point-in-time copy of the registry's keys; a room destroyed
// between snapshot and use is handled gracefully by callers re-checking
// membership via the Room itself, which never panics on stale state.
func (r *Registry) Snapshot() []*Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm)
	}
	return out
}
