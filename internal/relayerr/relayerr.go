// Package relayerr maps the room state machine's sentinel errors onto the
// wire error codes both transports expose. Push frames carry the code
// directly, poll responses carry it alongside an
// HTTP status chosen per-route by the handler (the same ROOM_ERROR value
// maps to 409 on create and 404 everywhere else, so no single
// error->status function can cover both).
package relayerr

import (
	"errors"

	"github.com/ghostwire/relay/internal/room"
)

const (
	CodeRoomError          = "ROOM_ERROR"
	CodeRoomFull           = "ROOM_FULL"
	CodeNotInRoom          = "NOT_IN_ROOM"
	CodeInvalidDeleteToken = "INVALID_DELETE_TOKEN"
	CodeInvalidEnvelope    = "INVALID_ENVELOPE"
	CodeInvalidFormat      = "INVALID_FORMAT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
)

// CodeFor maps a room package sentinel error to its wire code. Anything
// unrecognized falls back to the generic ROOM_ERROR, never to a code that
// would leak more information than the source error carries.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, room.ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, room.ErrInvalidDeleteToken):
		return CodeInvalidDeleteToken
	case errors.Is(err, room.ErrInvalidEnvelope):
		return CodeInvalidEnvelope
	case errors.Is(err, room.ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, room.ErrRoomError):
		return CodeRoomError
	default:
		return CodeRoomError
	}
}

// Message returns a short human-readable string for a wire code, safe to
// put on either transport's error response.
func Message(code string) string {
	switch code {
	case CodeRoomFull:
		return "room is full"
	case CodeNotInRoom:
		return "not a member of this room"
	case CodeInvalidDeleteToken:
		return "delete token is invalid"
	case CodeInvalidEnvelope:
		return "envelope is structurally invalid"
	case CodeInvalidFormat:
		return "frame could not be parsed"
	case CodeRateLimited:
		return "rate limit exceeded"
	case CodeCapacityExceeded:
		return "relay is at capacity"
	default:
		return "room error"
	}
}
