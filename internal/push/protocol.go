package push

import "github.com/ghostwire/relay/internal/room"

// frame is the single decode shape for every client->server event: one
// parse-then-dispatch per frame, rather than per-event structs with
// runtime type checks.
type frame struct {
	Event string `json:"event"`

	RoomHash    string `json:"roomHash"`
	TTL         int64  `json:"ttl"`
	DeleteToken string `json:"deleteToken"`

	Envelope room.Envelope `json:"envelope"`
}

const (
	eventCreateRoom = "create_room"
	eventJoinRoom   = "join_room"
	eventLeaveRoom  = "leave_room"
	eventDeleteRoom = "delete_room"
	eventMessage    = "message"
	eventPing       = "ping"
)

// errorFrame is the server->client error event. It and pongFrame are the
// server events that Event.MarshalJSON does not cover; errorFrame carries
// a free-form message.
type errorFrame struct {
	Event    string `json:"event"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	RoomHash string `json:"roomHash,omitempty"`
}

type pongFrame struct {
	Event string `json:"event"`
}
