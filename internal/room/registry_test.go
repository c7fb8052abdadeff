package room

import (
	"strconv"
	"testing"
	"time"
)

func TestCreatePush_RejectsDuplicateHash(t *testing.T) {
	r := NewRegistry()
	if _, _, _, err := r.CreatePush("H1", time.Minute, &fakeSink{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, _, _, err := r.CreatePush("H1", time.Minute, &fakeSink{}); err != ErrRoomError {
		t.Fatalf("duplicate hash: want ErrRoomError, got %v", err)
	}
}

func TestCreatePush_DeleteTokenDisclosedOnce(t *testing.T) {
	r := NewRegistry()
	rm, peerID, token, err := r.CreatePush("H1", time.Minute, &fakeSink{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if peerID == "" || token == "" {
		t.Fatalf("expected non-empty peerId and deleteToken")
	}
	if rm.PeerCount() != 1 {
		t.Fatalf("creator should be atomically inserted, got peer count %d", rm.PeerCount())
	}
}

func TestLookup_ProbeIndistinguishability(t *testing.T) {
	r := NewRegistry()
	rm, _, _, _ := r.CreatePush("H-exp", time.Minute, &fakeSink{})
	r.Destroy(rm.Hash())

	_, errNeverExisted := r.Lookup("H-none")
	_, errJustExpired := r.Lookup("H-exp")

	if errNeverExisted != ErrRoomError || errJustExpired != ErrRoomError {
		t.Fatalf("expected identical ErrRoomError for both cases, got %v / %v", errNeverExisted, errJustExpired)
	}
}

func TestDestroy_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Destroy("never-existed")
	r.Destroy("never-existed")
}

func TestCreatePush_CapacityExceeded(t *testing.T) {
	r := &Registry{rooms: make(map[string]*Room)}
	for i := 0; i < MaxRooms; i++ {
		hash := "filler-" + strconv.Itoa(i)
		r.rooms[hash] = newRoom(hash, "t", time.Minute)
	}
	if _, _, _, err := r.CreatePush("overflow", time.Minute, &fakeSink{}); err != ErrCapacityExceeded {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
}
