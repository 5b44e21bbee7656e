package orch

import (
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

// startSession activates the room and arms its tick. The caller announces
// the start once the joiner has its reply.
func (o *Orchestrator) startSession(room *domain.Room) bool {
	if room.Active || room.Terminated {
		return false
	}
	now := o.Dispatcher.Now()
	room.Active = true
	room.SessionStartedAt = now
	room.TurnStartedAt = now

	id := room.ID
	o.Registry.SetTick(id, o.Dispatcher.Every(o.Timing.Tick, func() { o.tick(id) }))
	log.Info().Str("module", "orch").Str("room", string(id)).Int("turn", room.ActiveTurn).Msg("session started")
	return true
}

func (o *Orchestrator) announceStart(room *domain.Room) {
	o.Bus.Broadcast(room.ID, core.SessionStarted{
		ActiveTurnIndex:   room.ActiveTurn,
		ActiveParticipant: core.ViewOf(room.ActiveParticipant()),
	})
}

func (o *Orchestrator) tick(id domain.RoomID) {
	room, ok := o.Registry.Get(id)
	if !ok || !room.Active || room.Terminated {
		return
	}
	now := o.Dispatcher.Now()
	sessionLeft := room.SessionTimeLeft(now)
	turnLeft := room.TurnTimeLeft(now)

	switch {
	case sessionLeft == 0:
		o.endSession(room, domain.EndTimeout)
	case turnLeft == 0:
		o.switchTurn(room)
	default:
		o.Bus.Broadcast(id, core.TimerUpdate{
			SessionTimeLeft: core.Millis(sessionLeft),
			TurnTimeLeft:    core.Millis(turnLeft),
			ActiveTurnIndex: room.ActiveTurn,
			Active:          room.Active,
		})
	}
}

// SwitchTurn hands the buffer to the other participant.
func (o *Orchestrator) SwitchTurn(id domain.RoomID) (err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.liveRoom(id); err != nil {
			return
		}
		if !o.switchTurn(room) {
			err = domain.ErrSessionInactive
		}
	})
	return err
}

func (o *Orchestrator) switchTurn(room *domain.Room) bool {
	if !room.Active || room.Terminated {
		return false
	}
	room.ActiveTurn = 1 - room.ActiveTurn
	room.TurnStartedAt = o.Dispatcher.Now()
	o.Bus.Broadcast(room.ID, core.TurnSwitched{
		ActiveTurnIndex:   room.ActiveTurn,
		ActiveParticipant: core.ViewOf(room.ActiveParticipant()),
	})
	log.Info().Str("module", "orch").Str("room", string(room.ID)).Int("turn", room.ActiveTurn).Msg("turn switched")
	return true
}

// UpdateCode replaces the shared buffer. Only the participant whose slot
// matches the active turn may write, and only from its own connection.
func (o *Orchestrator) UpdateCode(id domain.RoomID, content string, author domain.ParticipantID, from domain.ConnID) (err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.liveRoom(id); err != nil {
			return
		}
		_, p := room.ByConn(from)
		active := room.ActiveParticipant()
		if p == nil || !p.Connected || p.ID != author || active == nil || active.ID != author {
			err = domain.ErrNotYourTurn
			log.Warn().Str("module", "orch").Str("room", string(id)).Str("participant", string(author)).Str("conn", string(from)).Msg("code change rejected")
			return
		}
		room.Code = content
		o.Bus.Broadcast(id, core.CodeUpdated{Content: content, UpdatedBy: p.Name})
	})
	return err
}
