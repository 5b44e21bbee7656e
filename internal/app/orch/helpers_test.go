package orch_test

import (
	"sync"
	"testing"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/testfixtures"
	"github.com/stretchr/testify/require"
)

// sent is one call made on the recorder.
type sent struct {
	Room   domain.RoomID
	Except domain.ConnID
	To     domain.ConnID
	Event  core.Event
}

type recorder struct {
	mu       sync.Mutex
	attached map[domain.ConnID]domain.RoomID
	events   []sent
}

func newRecorder() *recorder {
	return &recorder{attached: make(map[domain.ConnID]domain.RoomID)}
}

func (r *recorder) Attach(conn domain.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached[conn] = room
}

func (r *recorder) Broadcast(room domain.RoomID, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Room: room, Event: ev})
}

func (r *recorder) BroadcastExcept(room domain.RoomID, except domain.ConnID, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Room: room, Except: except, Event: ev})
}

func (r *recorder) SendTo(conn domain.ConnID, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{To: conn, Event: ev})
}

func (r *recorder) Release(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn, cur := range r.attached {
		if cur == room {
			delete(r.attached, conn)
		}
	}
}

func (r *recorder) ofKind(kind core.EventKind) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.events {
		if s.Event.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) count(kind core.EventKind) int {
	return len(r.ofKind(kind))
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	clock *testfixtures.Clock
	bus   *recorder
	disp  *app.Dispatcher
	reg   *app.Registry
	o     *orch.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, app.DefaultRoomDefaults())
}

func newHarnessWith(t *testing.T, defaults app.RoomDefaults) *harness {
	t.Helper()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	disp := app.NewDispatcher(clock)
	reg := app.NewRegistry(disp, defaults, nil)
	bus := newRecorder()
	return &harness{
		clock: clock,
		bus:   bus,
		disp:  disp,
		reg:   reg,
		o:     orch.New(disp, reg, bus, orch.DefaultTiming()),
	}
}

func (h *harness) createRoom(t *testing.T) domain.RoomID {
	t.Helper()
	id, err := h.o.CreateRoom()
	require.NoError(t, err)
	return id
}

func (h *harness) join(t *testing.T, id domain.RoomID, name string, conn domain.ConnID) core.RoomSnapshot {
	t.Helper()
	snap, err := h.o.Join(id, name, conn)
	require.NoError(t, err)
	h.checkInvariants(t, id)
	return snap
}

// activeRoom returns a room with Alice on c1 (slot 0) and Bob on c2 (slot 1).
func (h *harness) activeRoom(t *testing.T) (domain.RoomID, domain.ParticipantID, domain.ParticipantID) {
	t.Helper()
	id := h.createRoom(t)
	h.join(t, id, "Alice", "c1")
	snap := h.join(t, id, "Bob", "c2")
	require.True(t, snap.Active)
	return id, snap.Participants[0].ID, snap.Participants[1].ID
}

func (h *harness) snapshot(t *testing.T, id domain.RoomID) core.RoomSnapshot {
	t.Helper()
	snap, ok := h.o.Snapshot(id)
	require.True(t, ok, "room %s should exist", id)
	return snap
}

func (h *harness) graceFor(id domain.RoomID) (g app.GraceTimer, ok bool) {
	h.disp.Do(func() {
		var cur *app.GraceTimer
		if cur, ok = h.reg.Grace(id); ok {
			g = *cur
		}
	})
	return g, ok
}

func (h *harness) exists(id domain.RoomID) bool {
	_, ok := h.o.Snapshot(id)
	return ok
}

func (h *harness) checkInvariants(t *testing.T, id domain.RoomID) {
	t.Helper()
	snap, ok := h.o.Snapshot(id)
	if !ok {
		return
	}
	require.LessOrEqual(t, len(snap.Participants), domain.MaxParticipants)
	if snap.Active {
		require.Len(t, snap.Participants, domain.MaxParticipants)
		require.False(t, snap.Terminated)
	}
	if snap.Terminated {
		require.False(t, snap.Active)
	}
}
