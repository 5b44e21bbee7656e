// Package domain holds the room and participant entities and the rules that
// only need a single room to check.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxNameLen = 36

type (
	ParticipantID string
	// ConnID identifies one transport connection. A participant keeps its
	// slot across reconnects while its ConnID changes.
	ConnID string
)

type Participant struct {
	ID         ParticipantID
	Name       string
	Conn       ConnID
	Connected  bool
	LastSeenAt time.Time
}

// NormalizeName trims the display name and checks it is usable.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in coordinators.
func NewParticipant(name string, conn ConnID, now time.Time) *Participant {
	return &Participant{
		ID:         newParticipantID(),
		Name:       name,
		Conn:       conn,
		Connected:  true,
		LastSeenAt: now,
	}
}

// Reassign recycles the slot for a different person. The identity changes so
// that anything tied to the previous occupant stops matching.
func (p *Participant) Reassign(name string, conn ConnID, now time.Time) {
	p.ID = newParticipantID()
	p.Name = name
	p.Conn = conn
	p.Connected = true
	p.LastSeenAt = now
}

func (p *Participant) Reconnect(conn ConnID, now time.Time) {
	p.Conn = conn
	p.Connected = true
	p.LastSeenAt = now
}

func (p *Participant) Disconnect(now time.Time) {
	p.Connected = false
	p.LastSeenAt = now
}

func (p *Participant) HasName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name))
}

func newParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}
