package room

import "errors"

// ErrRoomError is deliberately generic: it covers room-not-found,
// hash-collision-on-create, and any other lookup failure on an unknown
// hash, so that callers cannot distinguish "never existed" from "just
// expired" and thereby probe for live hashes.
var (
	ErrRoomError          = errors.New("room error")
	ErrRoomFull           = errors.New("room full")
	ErrNotInRoom          = errors.New("not in room")
	ErrInvalidDeleteToken = errors.New("invalid delete token")
	ErrInvalidEnvelope    = errors.New("invalid envelope")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
)
