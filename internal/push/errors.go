package push

import "errors"

var (
	errClosed       = errors.New("connection closed")
	errWriteTimeout = errors.New("write timeout")
)
