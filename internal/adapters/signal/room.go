package signal

import (
	"errors"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRateLimited = errors.New("too many rooms created, try again later")

// CreateRoom allocates a room on behalf of client, subject to the creation
// rate limit.
func (h *Handler) CreateRoom(client string) (domain.RoomID, error) {
	if !h.Limiter.Allow(client) {
		log.Warn().Str("module", "signal").Str("client", client).Msg("room creation rate limited")
		return "", ErrRateLimited
	}
	id, err := h.Orch.CreateRoom()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("create room")
		return "", err
	}
	return id, nil
}

func (h *Handler) handleCreateRoom(from Caller) core.Event {
	id, err := h.CreateRoom(from.Client)
	if err != nil {
		return core.RoomCreated{Error: err.Error()}
	}
	log.Info().Str("module", "signal").Str("conn", string(from.Conn)).Str("room", string(id)).Msg("room created")
	return core.RoomCreated{Success: true, RoomID: id}
}

func (h *Handler) handleJoin(from Caller, data []byte) core.Event {
	var p joinRoomRequest
	if err := h.decode(data, &p); err != nil {
		return core.JoinResult{Error: err.Error()}
	}
	id := roomID(p.RoomID)

	// A connection sits in one room at a time. Joining another one counts as
	// leaving the previous room.
	prev, switching := h.Conns.RoomOf(from.Conn)
	if switching && prev != id {
		log.Info().Str("module", "signal").Str("conn", string(from.Conn)).Str("from", string(prev)).Str("to", string(id)).Msg("switching rooms")
		h.Orch.OnDisconnect(prev, from.Conn)
	}

	var sent bool
	snap, err := h.Orch.JoinAck(id, p.DisplayName, from.Conn, func(s core.RoomSnapshot) {
		if from.Reply != nil {
			from.Reply(core.JoinResult{Success: true, Room: &s})
			sent = true
		}
	})
	if err != nil {
		if switching && prev != id {
			h.Conns.Detach(from.Conn)
		}
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(from.Conn)).Str("room", string(id)).Msg("join rejected")
		return core.JoinResult{Error: err.Error()}
	}
	if sent {
		return nil
	}
	return core.JoinResult{Success: true, Room: &snap}
}

func (h *Handler) handleEndSession(from Caller, data []byte) core.Event {
	var p roomRequest
	if err := h.decode(data, &p); err != nil {
		return errorReply(from, ReqEndSession, err)
	}
	id := roomID(p.RoomID)
	if err := h.inRoom(from, id); err != nil {
		return errorReply(from, ReqEndSession, err)
	}
	if err := h.Orch.ManualEnd(id); err != nil {
		return errorReply(from, ReqEndSession, err)
	}
	return nil
}
