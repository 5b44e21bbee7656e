package core

import (
	"time"

	"github.com/dkeye/Pair/internal/domain"
)

type EventKind string

const (
	KindDeveloperJoined         EventKind = "developer-joined"
	KindSessionStarted          EventKind = "session-started"
	KindCodeUpdated             EventKind = "code-updated"
	KindCodeChangeRejected      EventKind = "code-change-rejected"
	KindTurnSwitched            EventKind = "turn-switched"
	KindTimerUpdate             EventKind = "timer-update"
	KindParticipantDisconnected EventKind = "participant-disconnected"
	KindLanguageChanged         EventKind = "language-changed"
	KindUserTyping              EventKind = "user-typing"
	KindSessionEnded            EventKind = "session-ended"
	KindError                   EventKind = "error"
	KindPong                    EventKind = "pong"
	KindRoomCreated             EventKind = "room-created"
	KindJoinResult              EventKind = "join-result"
)

// Event is an outbound notification. The set of implementations is closed:
// every payload below has a fixed schema and reports its own kind.
type Event interface {
	Kind() EventKind
}

type DeveloperJoined struct {
	Developer       string            `json:"developer"`
	DevelopersCount int               `json:"developersCount"`
	Developers      []ParticipantView `json:"developers"`
}

type SessionStarted struct {
	ActiveTurnIndex   int              `json:"activeTurnIndex"`
	ActiveParticipant *ParticipantView `json:"activeParticipant"`
}

type CodeUpdated struct {
	Content   string `json:"content"`
	UpdatedBy string `json:"updatedBy"`
}

type CodeChangeRejected struct {
	Reason string `json:"reason"`
}

type TurnSwitched struct {
	ActiveTurnIndex   int              `json:"activeTurnIndex"`
	ActiveParticipant *ParticipantView `json:"activeParticipant"`
}

// TimerUpdate carries remaining times in milliseconds.
type TimerUpdate struct {
	SessionTimeLeft int64 `json:"sessionTimeLeft"`
	TurnTimeLeft    int64 `json:"turnTimeLeft"`
	ActiveTurnIndex int   `json:"activeTurnIndex"`
	Active          bool  `json:"active"`
}

type ParticipantDisconnected struct {
	Name              string `json:"name"`
	ReconnectWindowMs int64  `json:"reconnectWindowMs"`
}

type LanguageChanged struct {
	Language string `json:"language"`
}

type UserTyping struct {
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
}

// SessionEnded is the last notification of a room. CopyDeadline is a unix
// timestamp in milliseconds.
type SessionEnded struct {
	Reason       domain.EndReason `json:"reason"`
	FinalContent string           `json:"finalContent"`
	DurationMs   int64            `json:"durationMs"`
	CopyDeadline int64            `json:"copyDeadline"`
	NavigateTo   string           `json:"navigateTo"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type Pong struct{}

type RoomCreated struct {
	Success bool          `json:"success"`
	RoomID  domain.RoomID `json:"roomId,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type JoinResult struct {
	Success bool          `json:"success"`
	Room    *RoomSnapshot `json:"room,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (DeveloperJoined) Kind() EventKind         { return KindDeveloperJoined }
func (SessionStarted) Kind() EventKind          { return KindSessionStarted }
func (CodeUpdated) Kind() EventKind             { return KindCodeUpdated }
func (CodeChangeRejected) Kind() EventKind      { return KindCodeChangeRejected }
func (TurnSwitched) Kind() EventKind            { return KindTurnSwitched }
func (TimerUpdate) Kind() EventKind             { return KindTimerUpdate }
func (ParticipantDisconnected) Kind() EventKind { return KindParticipantDisconnected }
func (LanguageChanged) Kind() EventKind         { return KindLanguageChanged }
func (UserTyping) Kind() EventKind              { return KindUserTyping }
func (SessionEnded) Kind() EventKind            { return KindSessionEnded }
func (ErrorEvent) Kind() EventKind              { return KindError }
func (Pong) Kind() EventKind                    { return KindPong }
func (RoomCreated) Kind() EventKind             { return KindRoomCreated }
func (JoinResult) Kind() EventKind              { return KindJoinResult }

func Millis(d time.Duration) int64 { return d.Milliseconds() }
