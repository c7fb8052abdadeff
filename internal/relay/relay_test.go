package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghostwire/relay/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RoomTTLDefault = time.Hour
	return cfg
}

func TestIsUpgradeRequest(t *testing.T) {
	cases := []struct {
		header string
		want   bool
	}{
		{"websocket", true},
		{"WebSocket", true},
		{"", false},
		{"h2c", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Upgrade", tc.header)
		}
		if got := isUpgradeRequest(r); got != tc.want {
			t.Errorf("Upgrade=%q: got %v, want %v", tc.header, got, tc.want)
		}
	}
}

func TestDispatch_NonUpgradeReachesPollRouter(t *testing.T) {
	rl := New(testConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rl.dispatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the poll router's /health to answer 200, got %d", rec.Code)
	}
}

func TestShutdown_IsIdempotent(t *testing.T) {
	rl := New(testConfig())
	rl.janitorStop = func() {}

	if err := rl.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := rl.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown should be a no-op, got: %v", err)
	}
}
