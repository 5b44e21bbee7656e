package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

type WSOptions struct {
	ReadLimit   int64
	PingPeriod  time.Duration
	SendBuffer  int
	CheckOrigin func(r *http.Request) bool
}

func (o WSOptions) withDefaults() WSOptions {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 25 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return o
}

type SignalWSController struct {
	Handler  *Handler
	opts     WSOptions
	upgrader websocket.Upgrader
}

func NewSignalWSController(h *Handler, opts WSOptions) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Handler:  h,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}
}

// envelope is the outbound frame: {"type": kind, "data": payload}.
type envelope struct {
	Type core.EventKind `json:"type"`
	Data core.Event     `json:"data"`
}

type WsSignalConn struct {
	id     domain.ConnID
	client string
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func newWsSignalConn(ws *websocket.Conn, client string, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:     domain.ConnID(ulid.Make().String()),
		client: client,
		conn:   ws,
		send:   make(chan []byte, buffer),
	}
}

func (c *WsSignalConn) ID() domain.ConnID { return c.id }

func (c *WsSignalConn) TrySend(ev core.Event) error {
	b, err := json.Marshal(envelope{Type: ev.Kind(), Data: ev})
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- b:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString(ClientTokenKey)

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, client, ctl.opts.SendBuffer)
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("client", client).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Handler.Conns.BindSignal(conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

// OriginChecker accepts requests without an Origin header and those whose
// origin is listed. A "*" entry accepts everything.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
