package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/relay/internal/room"
)

const writeTimeout = 5 * time.Second

// connection wraps one upgraded socket. Writes are serialized through a
// single writer goroutine draining writeCh, rather than a
// mutex-as-semaphore, since the relay already has a goroutine per
// connection for pings.
//
// A connection tracks every room it currently belongs to (hash -> the
// peer id minted for that room), so disconnect cleanup is O(rooms joined
// by this connection) rather than O(total rooms).
type connection struct {
	conn    *websocket.Conn
	writeCh chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	mu        sync.Mutex
	rooms     map[string]string // roomHash -> peerID
	clientKey string
}

func newConnection(conn *websocket.Conn, clientKey string) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		conn:      conn,
		writeCh:   make(chan []byte, 100),
		ctx:       ctx,
		cancel:    cancel,
		rooms:     make(map[string]string),
		clientKey: clientKey,
	}
	go c.writeLoop()
	return c
}

func (c *connection) writeLoop() {
	defer func() {
		for len(c.writeCh) > 0 {
			<-c.writeCh
		}
	}()

	for {
		select {
		case data, ok := <-c.writeCh:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *connection) sendRaw(v any) error {
	select {
	case <-c.ctx.Done():
		return errClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return errWriteTimeout
	case <-c.ctx.Done():
		return errClosed
	}
}

// Deliver implements room.PushSink.
func (c *connection) Deliver(e room.Event) error {
	return c.sendRaw(e)
}

func (c *connection) sendError(code, message, roomHash string) error {
	return c.sendRaw(errorFrame{Event: "error", Code: code, Message: message, RoomHash: roomHash})
}

func (c *connection) sendPong() error {
	return c.sendRaw(pongFrame{Event: "pong"})
}

func (c *connection) trackRoom(hash, peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[hash] = peerID
}

func (c *connection) untrackRoom(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, hash)
}

func (c *connection) peerIDFor(hash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	peerID, ok := c.rooms[hash]
	return peerID, ok
}

// snapshotRooms returns a copy of this connection's room membership, for
// disconnect cleanup.
func (c *connection) snapshotRooms() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.rooms))
	for hash, peerID := range c.rooms {
		out[hash] = peerID
	}
	return out
}

func (c *connection) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// closeWithReason sends a WS close frame carrying reason, then closes the
// underlying socket. Used for the lifecycle manager's graceful shutdown;
// room-scoped destruction (delete/expire) never closes the socket itself,
// since one connection may belong to other, still-live rooms.
func (c *connection) closeWithReason(reason string) {
	deadline := time.Now().Add(writeTimeout)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, reason), deadline)
	_ = c.close()
}
