package ratelimit

import "testing"

func TestAllow_ExactLimits(t *testing.T) {
	l := New()
	for i := 0; i < CreateLimit; i++ {
		if !l.Allow("client-a", ActionCreate) {
			t.Fatalf("create %d should be allowed", i+1)
		}
	}
	if l.Allow("client-a", ActionCreate) {
		t.Fatalf("6th create within window should be denied")
	}
}

func TestAllow_IndependentCountersPerAction(t *testing.T) {
	l := New()
	for i := 0; i < CreateLimit; i++ {
		l.Allow("client-b", ActionCreate)
	}
	if !l.Allow("client-b", ActionJoin) {
		t.Fatalf("join counter should be independent of exhausted create counter")
	}
	if !l.Allow("client-b", ActionMessage) {
		t.Fatalf("message counter should be independent of exhausted create counter")
	}
}

func TestAllow_IndependentCountersPerClient(t *testing.T) {
	l := New()
	for i := 0; i < CreateLimit; i++ {
		l.Allow("client-c", ActionCreate)
	}
	if !l.Allow("client-d", ActionCreate) {
		t.Fatalf("distinct client key should not share client-c's exhausted window")
	}
}

func TestSweep_RemovesStaleClientsOnly(t *testing.T) {
	l := New()
	l.Allow("fresh", ActionCreate)
	l.clients["stale"] = &clientWindow{windowStart: l.clients["fresh"].windowStart.Add(-3 * window)}

	l.Sweep()

	if _, ok := l.clients["stale"]; ok {
		t.Fatalf("stale client window should have been swept")
	}
	if _, ok := l.clients["fresh"]; !ok {
		t.Fatalf("fresh client window should not have been swept")
	}
}
