package socketio

import (
	"net/http"
	"slices"
	"time"

	"github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type Options struct {
	Path           string
	AllowedOrigins []string
	PingInterval   time.Duration
	MaxBufferSize  int64
}

// Server exposes the room protocol over socket.io for clients built on the
// socket.io client library. Requests are event names, direct replies go
// through the acknowledgement callback when the client passes one.
type Server struct {
	io      *socketio.Server
	handler *signal.Handler
}

func New(h *signal.Handler, o Options) *Server {
	opts := socketio.DefaultServerOptions()
	if o.Path == "" {
		o.Path = "/socket.io"
	}
	opts.SetPath(o.Path)
	opts.SetAllowEIO3(true)
	if o.MaxBufferSize > 0 {
		opts.SetMaxHttpBufferSize(o.MaxBufferSize)
	}
	if o.PingInterval > 0 {
		opts.SetPingInterval(o.PingInterval)
	}
	opts.SetCors(corsFor(o.AllowedOrigins))

	s := &Server{io: socketio.NewServer(nil, opts), handler: h}
	_ = s.io.On("connection", func(clients ...any) {
		sock, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		s.accept(sock)
	})
	log.Info().Str("module", "adapters.socketio").Str("path", o.Path).Strs("origins", o.AllowedOrigins).Msg("socket.io ready")
	return s
}

func corsFor(origins []string) *types.Cors {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return &types.Cors{Origin: "*"}
	}
	allowed := make([]any, 0, len(origins))
	for _, o := range origins {
		allowed = append(allowed, o)
	}
	return &types.Cors{Origin: allowed, Credentials: true}
}

func (s *Server) accept(sock *socketio.Socket) {
	conn := newSocketConn(sock)
	s.handler.Conns.BindSignal(conn, conn.Close)
	log.Info().Str("module", "adapters.socketio").Str("conn", string(conn.ID())).Msg("new socket.io connection")

	for _, kind := range signal.RequestKinds {
		_ = sock.On(kind, func(datas ...any) {
			s.dispatch(conn, kind, datas)
		})
	}
	_ = sock.On("disconnect", func(reason ...any) {
		log.Info().Str("module", "adapters.socketio").Str("conn", string(conn.ID())).Interface("reason", reason).Msg("socket disconnected")
		conn.detach()
		s.handler.Disconnected(conn.ID())
		sock.RemoveAllListeners("")
	})
}

func (s *Server) dispatch(conn *SocketConn, kind string, datas []any) {
	ack, args := extractAck(datas)
	replied := false
	from := signal.Caller{Conn: conn.ID(), Client: string(conn.ID()), Reply: func(ev core.Event) {
		replied = true
		deliver(conn, ack, ev)
	}}

	var reply core.Event
	if data, err := payload(args); err != nil {
		log.Warn().Err(err).Str("module", "adapters.socketio").Str("type", kind).Msg("bad payload")
		reply = core.ErrorEvent{Message: "bad payload"}
	} else {
		reply = s.handler.Handle(from, kind, data)
	}
	switch {
	case reply != nil:
		deliver(conn, ack, reply)
	case !replied && ack != nil:
		ack(map[string]any{"success": true})
	}
}

// deliver answers through the client's ack callback when it sent one, and
// as a plain event otherwise.
func deliver(conn *SocketConn, ack ackFunc, ev core.Event) {
	if ack != nil {
		ack(ev)
		return
	}
	if err := conn.TrySend(ev); err != nil {
		log.Warn().Err(err).Str("module", "adapters.socketio").Str("conn", string(conn.ID())).Msg("reply failed")
	}
}

func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

func (s *Server) Close() {
	s.io.Close(nil)
}
