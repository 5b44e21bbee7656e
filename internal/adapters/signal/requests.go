package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Pair/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Request kinds accepted from clients. Both transports use the same names:
// the websocket adapter reads them from the "type" field, socket.io uses
// them as event names.
const (
	ReqCreateRoom     = "create-room"
	ReqJoinRoom       = "join-room"
	ReqCodeChange     = "code-change"
	ReqSwitchTurn     = "switch-turn"
	ReqChangeLanguage = "change-language"
	ReqTyping         = "typing"
	ReqEndSession     = "end-session"
	ReqPing           = "ping"
)

// RequestKinds lists every request a transport should route to Handle.
var RequestKinds = []string{
	ReqCreateRoom, ReqJoinRoom, ReqCodeChange, ReqSwitchTurn,
	ReqChangeLanguage, ReqTyping, ReqEndSession, ReqPing,
}

var errBadPayload = errors.New("bad payload")

type joinRoomRequest struct {
	RoomID      string `json:"roomId" validate:"required,roomcode"`
	DisplayName string `json:"displayName" validate:"required,max=256"`
}

type codeChangeRequest struct {
	RoomID        string `json:"roomId" validate:"required,roomcode"`
	Content       string `json:"content"`
	ParticipantID string `json:"participantId" validate:"required"`
}

type roomRequest struct {
	RoomID string `json:"roomId" validate:"required,roomcode"`
}

type changeLanguageRequest struct {
	RoomID   string `json:"roomId" validate:"required,roomcode"`
	Language string `json:"language" validate:"required,max=32,printascii"`
}

type typingRequest struct {
	RoomID   string `json:"roomId" validate:"required,roomcode"`
	IsTyping bool   `json:"isTyping"`
}

func newValidator(validRoomCode func(string) bool) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
		return validRoomCode(string(domain.NormalizeRoomID(fl.Field().String())))
	})
	return v
}

// decode unmarshals data into dst and validates it.
func (h *Handler) decode(data []byte, dst any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", errBadPayload, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func roomID(s string) domain.RoomID {
	return domain.NormalizeRoomID(s)
}
