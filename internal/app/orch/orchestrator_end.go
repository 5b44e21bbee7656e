package orch

import (
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnDisconnect marks the participant behind conn as gone and, unless one is
// already pending, arms the room's grace timer.
func (o *Orchestrator) OnDisconnect(id domain.RoomID, conn domain.ConnID) {
	o.Dispatcher.Do(func() {
		room, ok := o.Registry.Get(id)
		if !ok || room.Terminated {
			return
		}
		slot, p := room.ByConn(conn)
		if p == nil || !p.Connected {
			return
		}
		p.Disconnect(o.Dispatcher.Now())
		o.Bus.Broadcast(id, core.ParticipantDisconnected{
			Name:              p.Name,
			ReconnectWindowMs: core.Millis(o.Timing.ReconnectWindow),
		})
		log.Info().Str("module", "orch").Str("room", string(id)).Str("conn", string(conn)).Str("name", p.Name).Msg("participant disconnected")

		if _, pending := o.Registry.Grace(id); pending {
			return
		}
		o.armGrace(room, slot, p, o.Timing.ReconnectWindow)
	})
}

func (o *Orchestrator) armGrace(room *domain.Room, slot int, p *domain.Participant, delay time.Duration) {
	id := room.ID
	g := &app.GraceTimer{Participant: p.ID, Slot: slot}
	g.Task = o.Dispatcher.After(delay, func() {
		o.Registry.ClearGrace(id, g)
		cur, ok := o.Registry.Get(id)
		if !ok || cur.Terminated {
			return
		}
		if _, dev := cur.ByID(g.Participant); dev != nil && !dev.Connected {
			log.Info().Str("module", "orch").Str("room", string(id)).Str("name", dev.Name).Msg("reconnection window expired")
			o.endSession(cur, domain.EndDisconnected)
		}
	})
	o.Registry.SetGrace(id, g)
}

// dropGraceFor cancels the pending grace timer if it was armed for the
// participant identity prev. Called when prev's slot is handed to someone else.
func (o *Orchestrator) dropGraceFor(id domain.RoomID, prev domain.ParticipantID) {
	if g, ok := o.Registry.Grace(id); ok && g.Participant == prev {
		o.Registry.CancelGrace(id)
	}
}

// armPendingGrace makes sure a participant that is still disconnected keeps a
// running grace timer after another one was cleared by a join. The window is
// measured from when that participant was last seen.
func (o *Orchestrator) armPendingGrace(room *domain.Room) {
	if _, pending := o.Registry.Grace(room.ID); pending {
		return
	}
	slot := room.FirstDisconnected()
	if slot < 0 {
		return
	}
	p := room.Participants[slot]
	left := o.Timing.ReconnectWindow - o.Dispatcher.Now().Sub(p.LastSeenAt)
	if left < 0 {
		left = 0
	}
	o.armGrace(room, slot, p, left)
}

// EndSession terminates the room for reason. Ends a session at most once.
func (o *Orchestrator) EndSession(id domain.RoomID, reason domain.EndReason) (err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.liveRoom(id); err != nil {
			return
		}
		o.endSession(room, reason)
	})
	return err
}

// ManualEnd ends the session on behalf of a participant.
func (o *Orchestrator) ManualEnd(id domain.RoomID) error {
	return o.EndSession(id, domain.EndManual)
}

func (o *Orchestrator) endSession(room *domain.Room, reason domain.EndReason) {
	if room.Terminated {
		return
	}
	id := room.ID
	room.Active = false
	room.Terminated = true
	o.Registry.CancelTick(id)
	o.Registry.CancelGrace(id)

	now := o.Dispatcher.Now()
	var elapsed time.Duration
	if !room.SessionStartedAt.IsZero() {
		elapsed = now.Sub(room.SessionStartedAt)
	}
	o.Bus.Broadcast(id, core.SessionEnded{
		Reason:       reason,
		FinalContent: room.Code,
		DurationMs:   core.Millis(elapsed),
		CopyDeadline: now.Add(o.Timing.CopyWindow).UnixMilli(),
		NavigateTo:   "/",
	})
	o.Registry.ScheduleDeletion(id, o.Timing.CopyWindow+o.Timing.DeletionBuffer)
	log.Info().Str("module", "orch").Str("room", string(id)).Str("reason", string(reason)).Dur("elapsed", elapsed).Msg("session ended")
}
