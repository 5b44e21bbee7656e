package core

import (
	"github.com/dkeye/Pair/internal/domain"
)

// ParticipantView is a read-only view for APIs (no transport fields).
type ParticipantView struct {
	ID          domain.ParticipantID `json:"id"`
	Name        string               `json:"name"`
	IsConnected bool                 `json:"isConnected"`
}

// RoomSnapshot is what a joiner receives as its direct reply.
type RoomSnapshot struct {
	ID              domain.RoomID     `json:"id"`
	Code            string            `json:"code"`
	Participants    []ParticipantView `json:"participants"`
	ActiveTurnIndex int               `json:"activeTurnIndex"`
	Active          bool              `json:"active"`
	Terminated      bool              `json:"terminated"`
	Language        string            `json:"language"`
}

// RoomInfo is the introspection view of a single room.
type RoomInfo struct {
	ID               domain.RoomID `json:"id"`
	ParticipantCount int           `json:"participantCount"`
	Active           bool          `json:"active"`
	Language         string        `json:"language"`
}

type Stats struct {
	TotalRooms  int `json:"totalRooms"`
	ActiveRooms int `json:"activeRooms"`
}

// Broadcaster fans events out to the connections attached to a room.
// Implementations must not block and must not call back into the core.
type Broadcaster interface {
	Attach(conn domain.ConnID, room domain.RoomID)
	Broadcast(room domain.RoomID, ev Event)
	BroadcastExcept(room domain.RoomID, except domain.ConnID, ev Event)
	SendTo(conn domain.ConnID, ev Event)
	// Release detaches every connection still attached to a deleted room.
	Release(room domain.RoomID)
}

func ViewOf(p *domain.Participant) *ParticipantView {
	if p == nil {
		return nil
	}
	return &ParticipantView{ID: p.ID, Name: p.Name, IsConnected: p.Connected}
}

func ViewsOf(ps []*domain.Participant) []ParticipantView {
	out := make([]ParticipantView, 0, len(ps))
	for _, p := range ps {
		out = append(out, *ViewOf(p))
	}
	return out
}

func SnapshotOf(r *domain.Room) RoomSnapshot {
	return RoomSnapshot{
		ID:              r.ID,
		Code:            r.Code,
		Participants:    ViewsOf(r.Participants),
		ActiveTurnIndex: r.ActiveTurn,
		Active:          r.Active,
		Terminated:      r.Terminated,
		Language:        r.Language,
	}
}

func InfoOf(r *domain.Room) RoomInfo {
	return RoomInfo{
		ID:               r.ID,
		ParticipantCount: len(r.Participants),
		Active:           r.Active,
		Language:         r.Language,
	}
}
