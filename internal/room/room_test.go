package room

import (
	"strconv"
	"testing"
	"time"
)

type fakeSink struct {
	delivered []Event
}

func (f *fakeSink) Deliver(e Event) error {
	f.delivered = append(f.delivered, e)
	return nil
}

func newTestRoom() *Room {
	return newRoom("H1", "tok", time.Minute)
}

func TestJoinPush_RespectsCapacity(t *testing.T) {
	rm := newTestRoom()
	for i := 0; i < MaxMembers; i++ {
		if _, _, err := rm.JoinPush("peer-"+strconv.Itoa(i), &fakeSink{}); err != nil {
			t.Fatalf("join %d: unexpected error %v", i, err)
		}
	}
	if _, _, err := rm.JoinPush("overflow", &fakeSink{}); err != ErrRoomFull {
		t.Fatalf("51st join: want ErrRoomFull, got %v", err)
	}
}

func TestMessage_ExcludesSenderFromFanout(t *testing.T) {
	rm := newTestRoom()
	a, b := &fakeSink{}, &fakeSink{}
	rm.joinAsCreatorPush("PA", a)
	if _, _, err := rm.JoinPush("PB", b); err != nil {
		t.Fatalf("join PB: %v", err)
	}

	others, err := rm.Message("PA", Envelope{Room: "H1", From: "PA", Payload: "x", Nonce: "n", TS: 100})
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if len(others) != 1 || others[0] != b {
		t.Fatalf("expected fan-out to exclude sender and include only PB")
	}
}

func TestMessage_RejectsNonMember(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPush("PA", &fakeSink{})

	if _, err := rm.Message("stranger", Envelope{Room: "H1", From: "stranger", Payload: "x", Nonce: "n", TS: 1}); err != ErrNotInRoom {
		t.Fatalf("want ErrNotInRoom, got %v", err)
	}
}

func TestBacklog_EvictsOldestPast200(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPush("PA", &fakeSink{})

	for i := 0; i < MaxBacklog+1; i++ {
		if _, err := rm.Message("PA", Envelope{Room: "H1", From: "PA", Payload: "x", Nonce: "n", TS: int64(i)}); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	msgs, _, _ := rm.Poll("PA", -1)
	if len(msgs) != MaxBacklog {
		t.Fatalf("backlog length = %d, want %d", len(msgs), MaxBacklog)
	}
	if msgs[0].TS != 1 {
		t.Fatalf("oldest surviving ts = %d, want 1 (ts=0 should have been evicted)", msgs[0].TS)
	}
}

func TestPoll_StrictlyGreaterThanCursor(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPoll("PA")
	rm.backlog = []Envelope{{TS: 100}, {TS: 200}}

	msgs, _, _ := rm.Poll("PA", 100)
	if len(msgs) != 1 || msgs[0].TS != 200 {
		t.Fatalf("poll since=100 should return only ts=200, got %+v", msgs)
	}

	msgs, _, _ = rm.Poll("PA", 200)
	if len(msgs) != 0 {
		t.Fatalf("poll since=200 should return nothing more, got %+v", msgs)
	}
}

func TestDelete_ConstantTimeTokenCheck(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPush("PA", &fakeSink{})

	if _, ok := rm.Delete("guess"); ok {
		t.Fatalf("wrong token should not authorize deletion")
	}
	if _, ok := rm.Delete("tok"); !ok {
		t.Fatalf("correct token should authorize deletion")
	}
}

func TestLeavePush_EmptyRoomReportsEmptied(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPush("PA", &fakeSink{})

	_, _, emptied, ok := rm.LeavePush("PA")
	if !ok {
		t.Fatalf("expected LeavePush to find PA")
	}
	if !emptied {
		t.Fatalf("room should be reported empty after its only member leaves")
	}
}

func TestLeavePush_SecondLeaveFindsNoMember(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPush("PA", &fakeSink{})
	rm.LeavePush("PA")

	if _, _, _, ok := rm.LeavePush("PA"); ok {
		t.Fatalf("second leave by the same peer should find no member")
	}
}

func TestTTLExpired(t *testing.T) {
	rm := newRoom("H1", "tok", time.Minute)
	rm.createdAt = time.Now().Add(-2 * time.Minute)
	if !rm.TTLExpired(time.Now()) {
		t.Fatalf("room created 2m ago with 1m ttl should be expired")
	}
}

func TestClampTTL(t *testing.T) {
	cases := []struct {
		in, want time.Duration
	}{
		{59 * time.Second, minTTL},
		{1000000 * time.Second, maxTTL},
		{120 * time.Second, 120 * time.Second},
	}
	for _, c := range cases {
		if got := clampTTL(c.in); got != c.want {
			t.Errorf("clampTTL(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSweepIdlePoll_EvictsOnlyStale(t *testing.T) {
	rm := newTestRoom()
	rm.joinAsCreatorPoll("stale")
	rm.pollMembers["stale"] = time.Now().Add(-3 * time.Minute)
	rm.joinAsCreatorPoll("fresh")
	rm.pollMembers["fresh"] = time.Now()

	evicted, _, count, emptied := rm.SweepIdlePoll(time.Now())
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("expected only 'stale' evicted, got %v", evicted)
	}
	if count != 1 || emptied {
		t.Fatalf("room should still have 1 member (fresh), got count=%d emptied=%v", count, emptied)
	}
}
