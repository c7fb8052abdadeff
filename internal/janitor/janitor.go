// Package janitor runs the background sweeps that evolve room state
// without a request driving them: TTL expiry, idle poll-member eviction,
// and stale rate-limit window collection, each on one ticker loop rather
// than three independently scheduled ones.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ghostwire/relay/internal/ratelimit"
	"github.com/ghostwire/relay/internal/room"
)

const interval = 10 * time.Second

// Janitor owns no state beyond the interval; every sweep reads and
// mutates the shared registry and limiter through their own
// synchronization, so its work is observationally indistinguishable from
// a client-driven destruction.
type Janitor struct {
	registry *room.Registry
	limiter  *ratelimit.Limiter
}

func New(registry *room.Registry, limiter *ratelimit.Limiter) *Janitor {
	return &Janitor{registry: registry, limiter: limiter}
}

// Run drives the sweep loop until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweepOnce()
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) sweepOnce() {
	now := time.Now()

	for _, rm := range j.registry.Snapshot() {
		if rm.TTLExpired(now) {
			j.expireRoom(rm)
			continue
		}
		j.sweepIdlePoll(rm, now)
	}

	j.limiter.Sweep()
}

func (j *Janitor) expireRoom(rm *room.Room) {
	members := rm.Expire()
	j.registry.Destroy(rm.Hash())
	for _, sink := range members {
		if err := sink.Deliver(room.Event{Kind: room.KindRoomExpired, RoomHash: rm.Hash()}); err != nil {
			slog.Warn("janitor: room_expired delivery failed", "room", rm.Hash(), "err", err)
		}
	}
}

func (j *Janitor) sweepIdlePoll(rm *room.Room, now time.Time) {
	evicted, others, peerCount, emptied := rm.SweepIdlePoll(now)
	if len(evicted) == 0 {
		return
	}
	if emptied {
		j.registry.Destroy(rm.Hash())
	}
	for _, peerID := range evicted {
		for _, sink := range others {
			_ = sink.Deliver(room.Event{Kind: room.KindPeerLeft, RoomHash: rm.Hash(), PeerID: peerID, PeerCount: peerCount})
		}
	}
}
