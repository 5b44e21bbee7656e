package signal

import (
	"errors"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// ClientTokenKey is the gin context key holding the caller's cookie token.
const ClientTokenKey = "client_token"

// Caller identifies where a request came from.
type Caller struct {
	Conn   domain.ConnID
	Client string
	// Reply, when set, delivers a reply ahead of the room broadcasts the
	// request triggers. Handle returns nil for a reply sent this way.
	Reply func(core.Event)
}

// Handler turns decoded client requests into orchestrator calls. It is shared
// by every transport; a transport only has to frame requests and deliver the
// returned reply to the caller.
type Handler struct {
	Orch    *orch.Orchestrator
	Conns   *app.Connections
	Limiter *RoomRateLimiter

	validate *validator.Validate
}

func NewHandler(o *orch.Orchestrator, conns *app.Connections, limiter *RoomRateLimiter) *Handler {
	return &Handler{
		Orch:     o,
		Conns:    conns,
		Limiter:  limiter,
		validate: newValidator(app.ValidRoomCode),
	}
}

// Handle runs one request and returns the direct reply for the caller, or nil
// when the outcome is only visible through room broadcasts.
func (h *Handler) Handle(from Caller, kind string, data []byte) core.Event {
	switch kind {
	case ReqCreateRoom:
		return h.handleCreateRoom(from)
	case ReqJoinRoom:
		return h.handleJoin(from, data)
	case ReqCodeChange:
		return h.handleCodeChange(from, data)
	case ReqSwitchTurn:
		return h.handleSwitchTurn(from, data)
	case ReqChangeLanguage:
		return h.handleChangeLanguage(from, data)
	case ReqTyping:
		return h.handleTyping(from, data)
	case ReqEndSession:
		return h.handleEndSession(from, data)
	case ReqPing:
		return h.handlePing()
	default:
		log.Warn().Str("module", "signal").Str("conn", string(from.Conn)).Str("type", kind).Msg("unknown request")
		return core.ErrorEvent{Message: "unknown request type: " + kind}
	}
}

// Disconnected reports a closed transport connection to its room and forgets it.
func (h *Handler) Disconnected(conn domain.ConnID) {
	if room, ok := h.Conns.RoomOf(conn); ok {
		h.Orch.OnDisconnect(room, conn)
	}
	h.Conns.Unbind(conn)
}

// inRoom rejects requests naming a room the connection has not joined.
func (h *Handler) inRoom(from Caller, id domain.RoomID) error {
	cur, ok := h.Conns.RoomOf(from.Conn)
	if !ok || cur != id {
		return errNotInRoom
	}
	return nil
}

var errNotInRoom = errors.New("not a member of this room")

func errorReply(from Caller, kind string, err error) core.Event {
	log.Warn().Err(err).Str("module", "signal").Str("conn", string(from.Conn)).Str("type", kind).Msg("request failed")
	return core.ErrorEvent{Message: err.Error()}
}
