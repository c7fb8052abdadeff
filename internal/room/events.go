package room

import "encoding/json"

// Kind tags a server-to-client event, mirroring the push protocol's
// "event" discriminator. Poll responses reuse the same
// field names but are assembled by the poll transport directly from Room
// data, not through Event.
type Kind string

const (
	KindRoomCreated Kind = "room_created"
	KindRoomJoined  Kind = "room_joined"
	KindPeerJoined  Kind = "peer_joined"
	KindPeerLeft    Kind = "peer_left"
	KindMessage     Kind = "message"
	KindRoomExpired Kind = "room_expired"
	KindRoomDeleted Kind = "room_deleted"
)

// Event is the room state machine's abstract notion of something worth
// telling a push member about. The push transport is the only thing that
// serializes it onto the wire (see connection.Deliver in
// internal/push/connection.go); the room
// package stays ignorant of JSON framing beyond this one marshaler, which
// exists so tests and the push layer share one definition of the shape.
type Event struct {
	Kind        Kind
	RoomHash    string
	PeerID      string
	DeleteToken string
	PeerCount   int
	Envelope    *Envelope
}

// MarshalJSON renders the per-kind wire shape: every field other than a
// message's envelope lives directly under "event" as its own top-level
// key. A message event is the one exception, nesting its fields under a
// single "envelope" key rather than flattening them alongside "event",
// matching the poll transport's send body shape ({peerId, envelope}).
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindRoomCreated:
		return json.Marshal(struct {
			Event       string `json:"event"`
			RoomHash    string `json:"roomHash"`
			PeerID      string `json:"peerId"`
			DeleteToken string `json:"deleteToken"`
		}{string(e.Kind), e.RoomHash, e.PeerID, e.DeleteToken})
	case KindRoomJoined:
		return json.Marshal(struct {
			Event     string `json:"event"`
			RoomHash  string `json:"roomHash"`
			PeerID    string `json:"peerId"`
			PeerCount int    `json:"peerCount"`
		}{string(e.Kind), e.RoomHash, e.PeerID, e.PeerCount})
	case KindPeerJoined, KindPeerLeft:
		return json.Marshal(struct {
			Event     string `json:"event"`
			RoomHash  string `json:"roomHash"`
			PeerID    string `json:"peerId"`
			PeerCount int    `json:"peerCount"`
		}{string(e.Kind), e.RoomHash, e.PeerID, e.PeerCount})
	case KindMessage:
		env := Envelope{}
		if e.Envelope != nil {
			env = *e.Envelope
		}
		return json.Marshal(struct {
			Event    string   `json:"event"`
			Envelope Envelope `json:"envelope"`
		}{string(e.Kind), env})
	case KindRoomExpired, KindRoomDeleted:
		return json.Marshal(struct {
			Event    string `json:"event"`
			RoomHash string `json:"roomHash"`
		}{string(e.Kind), e.RoomHash})
	default:
		return json.Marshal(struct {
			Event string `json:"event"`
		}{string(e.Kind)})
	}
}

// PushSink is the room state machine's view of a push connection: enough
// to deliver an event, nothing about framing or sockets. The push
// transport's connection type implements this; the room package never
// imports gorilla/websocket.
type PushSink interface {
	Deliver(Event) error
}
