package orch

import (
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
)

type Timing struct {
	Tick            time.Duration
	ReconnectWindow time.Duration
	CopyWindow      time.Duration
	DeletionBuffer  time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Tick:            time.Second,
		ReconnectWindow: 30 * time.Second,
		CopyWindow:      8 * time.Second,
		DeletionBuffer:  time.Second,
	}
}

// Orchestrator is the single entry point to room state. Exported methods
// run on the Dispatcher; unexported ones assume they already do.
type Orchestrator struct {
	Dispatcher *app.Dispatcher
	Registry   *app.Registry
	Bus        core.Broadcaster
	Timing     Timing
}

func New(disp *app.Dispatcher, reg *app.Registry, bus core.Broadcaster, timing Timing) *Orchestrator {
	reg.OnDelete(bus.Release)
	return &Orchestrator{
		Dispatcher: disp,
		Registry:   reg,
		Bus:        bus,
		Timing:     timing,
	}
}

func (o *Orchestrator) CreateRoom() (domain.RoomID, error) {
	var (
		id  domain.RoomID
		err error
	)
	o.Dispatcher.Do(func() {
		var room *domain.Room
		room, err = o.Registry.Create()
		if err != nil {
			return
		}
		id = room.ID
		o.Registry.Debug()
	})
	return id, err
}

func (o *Orchestrator) Lookup(id domain.RoomID) (info core.RoomInfo, ok bool) {
	o.Dispatcher.Do(func() {
		info, ok = o.Registry.Lookup(id)
	})
	return info, ok
}

func (o *Orchestrator) Stats() (s core.Stats) {
	o.Dispatcher.Do(func() {
		s = o.Registry.Stats()
	})
	return s
}

// Snapshot returns the joiner view of a room.
func (o *Orchestrator) Snapshot(id domain.RoomID) (snap core.RoomSnapshot, ok bool) {
	o.Dispatcher.Do(func() {
		var room *domain.Room
		if room, ok = o.Registry.Get(id); ok {
			snap = core.SnapshotOf(room)
		}
	})
	return snap, ok
}

func (o *Orchestrator) liveRoom(id domain.RoomID) (*domain.Room, error) {
	room, ok := o.Registry.Get(id)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Terminated {
		return nil, domain.ErrRoomTerminated
	}
	return room, nil
}
