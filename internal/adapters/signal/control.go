package signal

import "github.com/dkeye/Pair/internal/core"

func (h *Handler) handlePing() core.Event {
	return core.Pong{}
}

func (h *Handler) handleChangeLanguage(from Caller, data []byte) core.Event {
	var p changeLanguageRequest
	if err := h.decode(data, &p); err != nil {
		return errorReply(from, ReqChangeLanguage, err)
	}
	id := roomID(p.RoomID)
	if err := h.inRoom(from, id); err != nil {
		return errorReply(from, ReqChangeLanguage, err)
	}
	if err := h.Orch.SetLanguage(id, p.Language, from.Conn); err != nil {
		return errorReply(from, ReqChangeLanguage, err)
	}
	return nil
}

// Typing indicators are best effort: failures are not reported back.
func (h *Handler) handleTyping(from Caller, data []byte) core.Event {
	var p typingRequest
	if err := h.decode(data, &p); err != nil {
		return nil
	}
	id := roomID(p.RoomID)
	if h.inRoom(from, id) != nil {
		return nil
	}
	_ = h.Orch.Typing(id, from.Conn, p.IsTyping)
	return nil
}
