package identity

import "testing"

func TestNewPeerID_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewPeerID()
		if err != nil {
			t.Fatalf("NewPeerID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate peer id minted: %s", id)
		}
		seen[id] = true
		for _, c := range id {
			if c == '+' || c == '/' || c == '=' {
				t.Fatalf("peer id %q is not URL-safe", id)
			}
		}
	}
}

func TestNewDeleteToken_DistinctFromPeerID(t *testing.T) {
	tok, err := NewDeleteToken()
	if err != nil {
		t.Fatalf("NewDeleteToken: %v", err)
	}
	id, err := NewPeerID()
	if err != nil {
		t.Fatalf("NewPeerID: %v", err)
	}
	if tok == id {
		t.Fatalf("delete token collided with peer id: %s", tok)
	}
}

func TestEqualTokens(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "ab", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := EqualTokens(c.a, c.b); got != c.want {
			t.Errorf("EqualTokens(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
