package poll

import (
	"net/http"
	"runtime"
	"time"

	"github.com/ghostwire/relay/internal/ratelimit"
	"github.com/ghostwire/relay/internal/room"
)

type healthPeers struct {
	WS    int `json:"ws"`
	HTTP  int `json:"http"`
	Total int `json:"total"`
}

type healthMemory struct {
	RSS  uint64 `json:"rss"`
	Heap uint64 `json:"heap"`
}

type healthLimits struct {
	MaxRoomPeers      int `json:"maxRoomPeers"`
	MaxBacklog        int `json:"maxBacklog"`
	MaxRooms          int `json:"maxRooms"`
	CreatesPerMinute  int `json:"createsPerMinute"`
	JoinsPerMinute    int `json:"joinsPerMinute"`
	MessagesPerMinute int `json:"messagesPerMinute"`
}

type healthResponse struct {
	Status string       `json:"status"`
	Uptime float64      `json:"uptime"`
	Rooms  int          `json:"rooms"`
	Peers  healthPeers  `json:"peers"`
	Memory healthMemory `json:"memory"`
	Limits healthLimits `json:"limits"`
}

// Health handles GET /health, reporting the relay's fixed resource
// limits alongside live registry occupancy. Go has no portable RSS read
// without a third-party or cgo syscall wrapper, so this reports the
// runtime's own figures: rss is MemStats.Sys (memory obtained from the
// OS) and heap is MemStats.HeapAlloc.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rooms, pushPeers, pollPeers := h.registry.Stats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Seconds(),
		Rooms:  rooms,
		Peers:  healthPeers{WS: pushPeers, HTTP: pollPeers, Total: pushPeers + pollPeers},
		Memory: healthMemory{RSS: m.Sys, Heap: m.HeapAlloc},
		Limits: healthLimits{
			MaxRoomPeers:      room.MaxMembers,
			MaxBacklog:        room.MaxBacklog,
			MaxRooms:          room.MaxRooms,
			CreatesPerMinute:  ratelimit.CreateLimit,
			JoinsPerMinute:    ratelimit.JoinLimit,
			MessagesPerMinute: ratelimit.MessageLimit,
		},
	})
}
