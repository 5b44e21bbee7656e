package app

import (
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type RoomDefaults struct {
	SessionDuration time.Duration
	TurnDuration    time.Duration
	IdleExpiry      time.Duration
	Language        string
}

func DefaultRoomDefaults() RoomDefaults {
	return RoomDefaults{
		SessionDuration: 10 * time.Minute,
		TurnDuration:    2 * time.Minute,
		IdleExpiry:      13 * time.Minute,
		Language:        domain.DefaultLanguage,
	}
}

// GraceTimer is the pending disconnection-grace task of a room, remembering
// which occupant it was armed for.
type GraceTimer struct {
	Task        *Task
	Participant domain.ParticipantID
	Slot        int
}

// Registry owns every room and every task scheduled on behalf of a room.
// It is not locked on its own: all calls happen on the Dispatcher.
type Registry struct {
	disp     *Dispatcher
	defaults RoomDefaults
	codes    CodeSource

	rooms     map[domain.RoomID]*domain.Room
	ticks     map[domain.RoomID]*Task
	grace     map[domain.RoomID]*GraceTimer
	lifetimes map[domain.RoomID]*Task
	onDelete  func(domain.RoomID)
}

func NewRegistry(disp *Dispatcher, defaults RoomDefaults, codes CodeSource) *Registry {
	if codes == nil {
		codes = RandomRoomCode
	}
	return &Registry{
		disp:      disp,
		defaults:  defaults,
		codes:     codes,
		rooms:     make(map[domain.RoomID]*domain.Room),
		ticks:     make(map[domain.RoomID]*Task),
		grace:     make(map[domain.RoomID]*GraceTimer),
		lifetimes: make(map[domain.RoomID]*Task),
	}
}

// Create allocates a room with the default configuration and arms its idle
// expiry: if the room never becomes active it is dropped after IdleExpiry.
func (r *Registry) Create() (*domain.Room, error) {
	id, err := NewRoomCode(r.codes, func(id domain.RoomID) bool {
		_, ok := r.rooms[id]
		return ok
	})
	if err != nil {
		return nil, err
	}
	room := domain.NewRoom(id, r.defaults.Language, r.defaults.SessionDuration, r.defaults.TurnDuration, r.disp.Now())
	r.rooms[id] = room
	r.lifetimes[id] = r.disp.After(r.defaults.IdleExpiry, func() {
		cur, ok := r.rooms[id]
		if !ok || cur != room || cur.Active || cur.Terminated {
			return
		}
		log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("idle room expired")
		r.Delete(id)
	})
	log.Info().Str("module", "app.registry").Str("room", string(id)).Int("total", len(r.rooms)).Msg("room created")
	return room, nil
}

// OnDelete registers fn to run after a room is forgotten.
func (r *Registry) OnDelete(fn func(domain.RoomID)) {
	r.onDelete = fn
}

func (r *Registry) Get(id domain.RoomID) (*domain.Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// Delete cancels every task of the room and forgets it. Idempotent.
func (r *Registry) Delete(id domain.RoomID) {
	r.CancelTick(id)
	r.CancelGrace(id)
	if t, ok := r.lifetimes[id]; ok {
		t.Cancel()
		delete(r.lifetimes, id)
	}
	if _, ok := r.rooms[id]; !ok {
		return
	}
	delete(r.rooms, id)
	if r.onDelete != nil {
		r.onDelete(id)
	}
	log.Info().Str("module", "app.registry").Str("room", string(id)).Int("total", len(r.rooms)).Msg("room deleted")
}

// ScheduleDeletion replaces any pending lifetime task with a deletion after delay.
func (r *Registry) ScheduleDeletion(id domain.RoomID, delay time.Duration) {
	if t, ok := r.lifetimes[id]; ok {
		t.Cancel()
	}
	r.lifetimes[id] = r.disp.After(delay, func() {
		delete(r.lifetimes, id)
		r.Delete(id)
	})
}

func (r *Registry) SetTick(id domain.RoomID, t *Task) {
	r.CancelTick(id)
	r.ticks[id] = t
}

func (r *Registry) CancelTick(id domain.RoomID) {
	if t, ok := r.ticks[id]; ok {
		t.Cancel()
		delete(r.ticks, id)
	}
}

func (r *Registry) Grace(id domain.RoomID) (*GraceTimer, bool) {
	g, ok := r.grace[id]
	return g, ok
}

func (r *Registry) SetGrace(id domain.RoomID, g *GraceTimer) {
	r.CancelGrace(id)
	r.grace[id] = g
}

// ClearGrace forgets the record without cancelling; used by the grace task itself.
func (r *Registry) ClearGrace(id domain.RoomID, g *GraceTimer) {
	if cur, ok := r.grace[id]; ok && cur == g {
		delete(r.grace, id)
	}
}

// CancelGrace cancels the pending grace task, reporting whether there was one.
func (r *Registry) CancelGrace(id domain.RoomID) bool {
	g, ok := r.grace[id]
	if !ok {
		return false
	}
	g.Task.Cancel()
	delete(r.grace, id)
	return true
}

func (r *Registry) Stats() core.Stats {
	s := core.Stats{TotalRooms: len(r.rooms)}
	for _, room := range r.rooms {
		if room.Active {
			s.ActiveRooms++
		}
	}
	return s
}

func (r *Registry) Lookup(id domain.RoomID) (core.RoomInfo, bool) {
	room, ok := r.rooms[id]
	if !ok {
		return core.RoomInfo{}, false
	}
	return core.InfoOf(room), true
}

// HasTick and PendingTasks exist for introspection and tests.
func (r *Registry) HasTick(id domain.RoomID) bool {
	_, ok := r.ticks[id]
	return ok
}

func (r *Registry) PendingTasks() (ticks, grace int) {
	return len(r.ticks), len(r.grace)
}

// Debug dumps every room at debug level.
func (r *Registry) Debug() {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	for id, room := range r.rooms {
		participants := zerolog.Arr()
		for _, p := range room.Participants {
			participants.Dict(zerolog.Dict().Str("name", p.Name).Bool("connected", p.Connected))
		}
		log.Debug().Str("module", "app.registry").Str("room", string(id)).
			Bool("active", room.Active).Bool("terminated", room.Terminated).
			Int("turn", room.ActiveTurn).Array("participants", participants).
			Msg("room state")
	}
}
