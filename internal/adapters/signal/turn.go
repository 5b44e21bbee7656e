package signal

import (
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

func (h *Handler) handleCodeChange(from Caller, data []byte) core.Event {
	var p codeChangeRequest
	if err := h.decode(data, &p); err != nil {
		return core.CodeChangeRejected{Reason: err.Error()}
	}
	id := roomID(p.RoomID)
	if err := h.inRoom(from, id); err != nil {
		return core.CodeChangeRejected{Reason: err.Error()}
	}
	if err := h.Orch.UpdateCode(id, p.Content, domain.ParticipantID(p.ParticipantID), from.Conn); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(from.Conn)).Str("room", string(id)).Msg("code change rejected")
		return core.CodeChangeRejected{Reason: err.Error()}
	}
	return nil
}

func (h *Handler) handleSwitchTurn(from Caller, data []byte) core.Event {
	var p roomRequest
	if err := h.decode(data, &p); err != nil {
		return errorReply(from, ReqSwitchTurn, err)
	}
	id := roomID(p.RoomID)
	if err := h.inRoom(from, id); err != nil {
		return errorReply(from, ReqSwitchTurn, err)
	}
	if err := h.Orch.SwitchTurn(id); err != nil {
		return errorReply(from, ReqSwitchTurn, err)
	}
	return nil
}
