package room

import (
	"sync"
	"time"

	"github.com/ghostwire/relay/internal/identity"
)

const (
	// MaxMembers is the per-room combined push+poll membership cap.
	MaxMembers = 50
	// MaxBacklog is the number of envelopes a room retains for poll
	// replay before the oldest is evicted.
	MaxBacklog = 200

	minTTL        = 60 * time.Second
	maxTTL        = 86400 * time.Second
	pollIdleLimit = 120 * time.Second
)

// clampTTL bounds a creator-supplied TTL into [60s, 86400s].
func clampTTL(d time.Duration) time.Duration {
	if d < minTTL {
		return minTTL
	}
	if d > maxTTL {
		return maxTTL
	}
	return d
}

// Room is the per-room authority over membership, backlog, delete token,
// and expiry. All mutation is serialized through mu: the room is its own
// single-writer boundary, using a lock rather than a channel-owning
// goroutine, since rooms here are cheap, numerous, and short-lived rather
// than few and long-lived.
type Room struct {
	mu sync.Mutex

	hash        string
	deleteToken string
	createdAt   time.Time
	ttl         time.Duration

	pushMembers map[string]PushSink
	pollMembers map[string]time.Time

	backlog []Envelope
}

func newRoom(hash, deleteToken string, ttl time.Duration) *Room {
	return &Room{
		hash:        hash,
		deleteToken: deleteToken,
		createdAt:   time.Now(),
		ttl:         clampTTL(ttl),
		pushMembers: make(map[string]PushSink),
		pollMembers: make(map[string]time.Time),
	}
}

func (rm *Room) Hash() string { return rm.hash }

func (rm *Room) memberCount() int {
	return len(rm.pushMembers) + len(rm.pollMembers)
}

// PeerCount returns the current combined push+poll membership.
func (rm *Room) PeerCount() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.memberCount()
}

// MemberCounts returns the push and poll member counts separately, for
// the health endpoint's peers breakdown.
func (rm *Room) MemberCounts() (push, poll int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.pushMembers), len(rm.pollMembers)
}

// snapshotOthers copies every push sink except the excluded peer, safe to
// use after releasing rm.mu for the actual delivery I/O.
func (rm *Room) snapshotOthers(exclude string) []PushSink {
	out := make([]PushSink, 0, len(rm.pushMembers))
	for peerID, sink := range rm.pushMembers {
		if peerID == exclude {
			continue
		}
		out = append(out, sink)
	}
	return out
}

func (rm *Room) snapshotAll() []PushSink {
	out := make([]PushSink, 0, len(rm.pushMembers))
	for _, sink := range rm.pushMembers {
		out = append(out, sink)
	}
	return out
}

// JoinPush admits a push member, refusing at the 50-peer cap.
func (rm *Room) JoinPush(peerID string, sink PushSink) (peerCount int, others []PushSink, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.memberCount() >= MaxMembers {
		return 0, nil, ErrRoomFull
	}
	rm.pushMembers[peerID] = sink
	return rm.memberCount(), rm.snapshotOthers(peerID), nil
}

// JoinPoll admits a poll member with its initial last-seen timestamp.
func (rm *Room) JoinPoll(peerID string) (peerCount int, others []PushSink, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.memberCount() >= MaxMembers {
		return 0, nil, ErrRoomFull
	}
	rm.pollMembers[peerID] = time.Now()
	return rm.memberCount(), rm.snapshotAll(), nil
}

// joinAsCreatorPush and joinAsCreatorPoll are used only by
// Registry.CreatePush and Registry.CreatePoll, before the room is
// visible to any other caller, so it skips the capacity check (a
// brand-new room with one member can never be full).
func (rm *Room) joinAsCreatorPush(peerID string, sink PushSink) {
	rm.pushMembers[peerID] = sink
}

func (rm *Room) joinAsCreatorPoll(peerID string) {
	rm.pollMembers[peerID] = time.Now()
}

// LeavePush removes a push member. The returned emptied flag tells the
// caller whether the room transitioned to destroyed.
func (rm *Room) LeavePush(peerID string) (peerCount int, others []PushSink, emptied bool, ok bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, present := rm.pushMembers[peerID]; !present {
		return 0, nil, false, false
	}
	delete(rm.pushMembers, peerID)
	return rm.memberCount(), rm.snapshotAll(), rm.memberCount() == 0, true
}

// LeavePoll removes a poll member.
func (rm *Room) LeavePoll(peerID string) (peerCount int, others []PushSink, emptied bool, ok bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, present := rm.pollMembers[peerID]; !present {
		return 0, nil, false, false
	}
	delete(rm.pollMembers, peerID)
	return rm.memberCount(), rm.snapshotAll(), rm.memberCount() == 0, true
}

// isMember reports whether peerID belongs to either member set. Caller
// must hold rm.mu.
func (rm *Room) isMember(peerID string) bool {
	if _, ok := rm.pushMembers[peerID]; ok {
		return true
	}
	_, ok := rm.pollMembers[peerID]
	return ok
}

// Message accepts an envelope from a current member, appends it to the
// backlog (evicting the oldest entry past 200), and returns the set of
// other push members to fan out to. The sender's own push connection is
// excluded; the backlog append still makes the message visible to the
// sender via poll.
func (rm *Room) Message(fromPeerID string, env Envelope) (others []PushSink, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.isMember(fromPeerID) {
		return nil, ErrNotInRoom
	}

	rm.backlog = append(rm.backlog, env)
	if len(rm.backlog) > MaxBacklog {
		rm.backlog = rm.backlog[len(rm.backlog)-MaxBacklog:]
	}

	return rm.snapshotOthers(fromPeerID), nil
}

// Poll returns every backlog envelope with ts strictly greater than
// since, in backlog order, plus the current member count, and refreshes
// the poll member's last-seen timestamp.
func (rm *Room) Poll(peerID string, since int64) (messages []Envelope, peerCount int, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.pollMembers[peerID]; ok {
		rm.pollMembers[peerID] = time.Now()
	}

	out := make([]Envelope, 0)
	for _, env := range rm.backlog {
		if env.TS > since {
			out = append(out, env)
		}
	}
	return out, rm.memberCount(), nil
}

// TouchPoll refreshes a poll member's last-seen timestamp; the poll
// send handler calls it after an accepted message (Poll refreshes the
// timestamp itself). Returns false if peerID is not a poll member.
func (rm *Room) TouchPoll(peerID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.pollMembers[peerID]; !ok {
		return false
	}
	rm.pollMembers[peerID] = time.Now()
	return true
}

// Delete authorizes destruction with a constant-time token comparison.
// On success it returns every push sink so the caller can emit
// room_deleted; the sockets themselves stay open.
func (rm *Room) Delete(token string) (members []PushSink, ok bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !identity.EqualTokens(token, rm.deleteToken) {
		return nil, false
	}
	return rm.snapshotAll(), true
}

// Expire is called by the Janitor when the room's TTL has elapsed and by
// the lifecycle manager's shutdown; it returns every push sink so the
// caller can emit room_expired.
func (rm *Room) Expire() []PushSink {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotAll()
}

// TTLExpired reports whether the room has outlived its TTL as of now.
func (rm *Room) TTLExpired(now time.Time) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return now.Sub(rm.createdAt) > rm.ttl
}

// SweepIdlePoll evicts poll members idle for more than 120s, returning
// their peer ids (for peer_left fan-out), the resulting peer count, and
// whether the room became empty.
func (rm *Room) SweepIdlePoll(now time.Time) (evicted []string, others []PushSink, peerCount int, emptied bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for peerID, lastSeen := range rm.pollMembers {
		if now.Sub(lastSeen) > pollIdleLimit {
			evicted = append(evicted, peerID)
			delete(rm.pollMembers, peerID)
		}
	}
	if len(evicted) == 0 {
		return nil, nil, rm.memberCount(), false
	}
	return evicted, rm.snapshotAll(), rm.memberCount(), rm.memberCount() == 0
}
