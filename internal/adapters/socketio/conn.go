package socketio

import (
	"sync"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// emitter is the part of *socketio.Socket a connection needs.
type emitter interface {
	Emit(ev string, args ...any) error
}

// SocketConn adapts a socket.io socket to core.SignalConnection. Each event
// is emitted under its kind with the payload as the only argument.
type SocketConn struct {
	id     domain.ConnID
	socket emitter
	kill   func()

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*SocketConn)(nil)

func newSocketConn(s *socketio.Socket) *SocketConn {
	return &SocketConn{
		id:     domain.ConnID(s.Id()),
		socket: s,
		kill:   func() { s.Disconnect(true) },
	}
}

func (c *SocketConn) ID() domain.ConnID { return c.id }

// TrySend hands the event to the socket.io writer, which queues it itself.
func (c *SocketConn) TrySend(ev core.Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	return c.socket.Emit(string(ev.Kind()), ev)
}

// detach marks the connection closed after the socket went away on its own.
func (c *SocketConn) detach() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *SocketConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.kill != nil {
		c.kill()
	}
}
