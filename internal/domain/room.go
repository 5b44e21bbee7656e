package domain

import (
	"strings"
	"time"
)

const MaxParticipants = 2

type RoomID string

// NormalizeRoomID turns a code typed by hand into its canonical form.
func NormalizeRoomID(s string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(s)))
}

// EndReason tells why a session was terminated.
type EndReason string

const (
	EndTimeout      EndReason = "timeout"
	EndDisconnected EndReason = "disconnection"
	EndManual       EndReason = "manual"
)

// Room is one two-party session. The index of a participant in Participants
// is also its turn index.
type Room struct {
	ID           RoomID
	Code         string
	Participants []*Participant
	Language     string

	ActiveTurn       int
	TurnStartedAt    time.Time
	SessionStartedAt time.Time
	SessionDuration  time.Duration
	TurnDuration     time.Duration

	Active     bool
	Terminated bool
	CreatedAt  time.Time
}

func NewRoom(id RoomID, language string, sessionDuration, turnDuration time.Duration, now time.Time) *Room {
	if language == "" {
		language = DefaultLanguage
	}
	return &Room{
		ID:              id,
		Code:            Template(language),
		Participants:    make([]*Participant, 0, MaxParticipants),
		Language:        language,
		SessionDuration: sessionDuration,
		TurnDuration:    turnDuration,
		CreatedAt:       now,
	}
}

func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// ByConn returns the slot index and participant bound to conn, or -1.
func (r *Room) ByConn(conn ConnID) (int, *Participant) {
	for i, p := range r.Participants {
		if p.Conn == conn {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) ByName(name string) (int, *Participant) {
	for i, p := range r.Participants {
		if p.HasName(name) {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) ByID(id ParticipantID) (int, *Participant) {
	for i, p := range r.Participants {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// FirstDisconnected returns the lowest slot whose occupant is gone, or -1.
func (r *Room) FirstDisconnected() int {
	for i, p := range r.Participants {
		if !p.Connected {
			return i
		}
	}
	return -1
}

// ActiveParticipant is the occupant of the slot whose turn it is.
func (r *Room) ActiveParticipant() *Participant {
	if r.ActiveTurn < 0 || r.ActiveTurn >= len(r.Participants) {
		return nil
	}
	return r.Participants[r.ActiveTurn]
}

func (r *Room) SessionTimeLeft(now time.Time) time.Duration {
	return remaining(r.SessionDuration, now.Sub(r.SessionStartedAt))
}

func (r *Room) TurnTimeLeft(now time.Time) time.Duration {
	return remaining(r.TurnDuration, now.Sub(r.TurnStartedAt))
}

func remaining(total, elapsed time.Duration) time.Duration {
	if left := total - elapsed; left > 0 {
		return left
	}
	return 0
}
