package orch

import (
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join admits conn to the room under name, or reconnects the participant
// already known by that connection or name. On success the connection is
// attached to the room's broadcast group and the other occupants are told.
func (o *Orchestrator) Join(id domain.RoomID, name string, conn domain.ConnID) (core.RoomSnapshot, error) {
	return o.JoinAck(id, name, conn, nil)
}

// JoinAck is Join with ack run on the resulting snapshot before the room is
// told that the session started.
func (o *Orchestrator) JoinAck(id domain.RoomID, name string, conn domain.ConnID, ack func(core.RoomSnapshot)) (snap core.RoomSnapshot, err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.join(id, name, conn); err != nil {
			return
		}
		started := room.ConnectedCount() == domain.MaxParticipants && o.startSession(room)
		snap = core.SnapshotOf(room)
		if ack != nil {
			ack(snap)
		}
		if started {
			o.announceStart(room)
		}
		o.Registry.Debug()
	})
	return snap, err
}

func (o *Orchestrator) join(id domain.RoomID, rawName string, conn domain.ConnID) (*domain.Room, error) {
	room, err := o.liveRoom(id)
	if err != nil {
		return nil, err
	}
	name, err := domain.NormalizeName(rawName)
	if err != nil {
		return nil, err
	}
	now := o.Dispatcher.Now()
	logger := log.With().Str("module", "orch").Str("room", string(id)).Str("conn", string(conn)).Str("name", name).Logger()

	if slot, p := room.ByConn(conn); p != nil {
		if other, _ := room.ByName(name); other < 0 || other == slot {
			p.Name = name
		}
		p.Reconnect(conn, now)
		o.Registry.CancelGrace(id)
		logger.Info().Int("slot", slot).Msg("refreshed connection")
	} else if slot, p := room.ByName(name); p != nil {
		p.Reconnect(conn, now)
		o.Registry.CancelGrace(id)
		logger.Info().Int("slot", slot).Msg("reconnected by name")
	} else {
		if room.ConnectedCount() >= domain.MaxParticipants {
			logger.Warn().Msg("room full")
			return nil, domain.ErrRoomFull
		}
		if slot := room.FirstDisconnected(); slot >= 0 {
			prev := room.Participants[slot].ID
			room.Participants[slot].Reassign(name, conn, now)
			o.dropGraceFor(id, prev)
			logger.Info().Int("slot", slot).Msg("reused disconnected slot")
		} else {
			room.Participants = append(room.Participants, domain.NewParticipant(name, conn, now))
			logger.Info().Int("slot", len(room.Participants)-1).Msg("added participant")
		}
	}
	o.armPendingGrace(room)

	o.Bus.Attach(conn, id)
	o.Bus.BroadcastExcept(id, conn, core.DeveloperJoined{
		Developer:       name,
		DevelopersCount: len(room.Participants),
		Developers:      core.ViewsOf(room.Participants),
	})
	return room, nil
}

// SetLanguage changes the advisory syntax mode. Allowed before the session
// starts too.
func (o *Orchestrator) SetLanguage(id domain.RoomID, language string, from domain.ConnID) (err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.liveRoom(id); err != nil {
			return
		}
		room.Language = language
		o.Bus.BroadcastExcept(id, from, core.LanguageChanged{Language: language})
		log.Info().Str("module", "orch").Str("room", string(id)).Str("language", language).Msg("language changed")
	})
	return err
}

// Typing relays a typing indicator from conn to the other occupant.
func (o *Orchestrator) Typing(id domain.RoomID, from domain.ConnID, isTyping bool) (err error) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, err = o.liveRoom(id); err != nil {
			return
		}
		_, p := room.ByConn(from)
		if p == nil {
			return
		}
		o.Bus.BroadcastExcept(id, from, core.UserTyping{Name: p.Name, IsTyping: isTyping})
	})
	return err
}
