package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Room   domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Connections tracks live transport connections and the room each one is
// attached to. It is the fan-out side of the core and implements
// core.Broadcaster; it never mutates room state.
type Connections struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*connEntry
	policy Policy
}

var _ core.Broadcaster = (*Connections)(nil)

func NewConnections(policy Policy) *Connections {
	return &Connections{
		conns:  make(map[domain.ConnID]*connEntry),
		policy: policy,
	}
}

func (c *Connections) BindSignal(conn core.SignalConnection, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn.ID()] = &connEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.connections").Str("conn", string(conn.ID())).Msg("bound signal")
}

func (c *Connections) Unbind(id domain.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, id)
	log.Info().Str("module", "app.connections").Str("conn", string(id)).Msg("unbind signal")
}

func (c *Connections) Get(id domain.ConnID) (core.SignalConnection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (c *Connections) RoomOf(id domain.ConnID) (domain.RoomID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.conns[id]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

// Attach moves the connection into the room's broadcast group.
func (c *Connections) Attach(id domain.ConnID, room domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.conns[id]
	if !ok {
		return
	}
	e.Room = room
	log.Debug().Str("module", "app.connections").Str("conn", string(id)).Str("room", string(room)).Msg("attached")
}

// Detach takes the connection out of whatever room it was attached to.
func (c *Connections) Detach(id domain.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.conns[id]; ok {
		e.Room = ""
	}
}

func (c *Connections) Release(room domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.conns {
		if e.Room == room {
			e.Room = ""
			n++
		}
	}
	log.Debug().Str("module", "app.connections").Str("room", string(room)).Int("released", n).Msg("released room")
}

func (c *Connections) MembersOfRoom(room domain.RoomID) []core.SignalConnection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.SignalConnection, 0, 2)
	for _, e := range c.conns {
		if e.Room == room {
			out = append(out, e.Conn)
		}
	}
	return out
}

func (c *Connections) Broadcast(room domain.RoomID, ev core.Event) {
	c.BroadcastExcept(room, "", ev)
}

func (c *Connections) BroadcastExcept(room domain.RoomID, except domain.ConnID, ev core.Event) {
	res := PublishResult{}
	for _, conn := range c.MembersOfRoom(room) {
		if conn.ID() == except {
			continue
		}
		if err := conn.TrySend(ev); err != nil {
			if errors.Is(err, core.ErrBackpressure) {
				res.Dropped = append(res.Dropped, conn)
			}
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.connections").Str("room", string(room)).Str("event", string(ev.Kind())).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	c.applyPolicy(room, res)
}

func (c *Connections) SendTo(id domain.ConnID, ev core.Event) {
	conn, ok := c.Get(id)
	if !ok {
		return
	}
	if err := conn.TrySend(ev); err != nil {
		log.Warn().Err(err).Str("module", "app.connections").Str("conn", string(id)).Str("event", string(ev.Kind())).Msg("direct send failed")
	}
}

// Cancel stops the pumps of a connection. Its read loop then reports the
// disconnect through the normal path.
func (c *Connections) Cancel(id domain.ConnID) bool {
	c.mu.RLock()
	e, ok := c.conns[id]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.connections").Str("conn", string(id)).Msg("canceled connection")
	return true
}

func (c *Connections) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

func (c *Connections) applyPolicy(room domain.RoomID, res PublishResult) {
	if c.policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch c.policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.connections").Str("conn", string(slow.ID())).Msg("kicking slow connection")
			c.Cancel(slow.ID())
		case DropFrame, NoAction:
		}
	}
}
