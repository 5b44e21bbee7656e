package signal_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/testfixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id domain.ConnID

	mu  sync.Mutex
	got []core.Event
}

func (f *fakeConn) ID() domain.ConnID { return f.id }

func (f *fakeConn) TrySend(ev core.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) kinds() []core.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.EventKind, 0, len(f.got))
	for _, ev := range f.got {
		out = append(out, ev.Kind())
	}
	return out
}

type fixture struct {
	clock *testfixtures.Clock
	conns *app.Connections
	h     *signal.Handler
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	clock := testfixtures.NewClock(time.Time{})
	disp := app.NewDispatcher(clock)
	reg := app.NewRegistry(disp, app.DefaultRoomDefaults(), nil)
	conns := app.NewConnections(app.SimplePolicy{})
	o := orch.New(disp, reg, conns, orch.DefaultTiming())
	limiter := signal.NewRoomRateLimiter(limit, time.Minute).WithClock(clock.Now)
	return &fixture{clock: clock, conns: conns, h: signal.NewHandler(o, conns, limiter)}
}

func (f *fixture) connect(id domain.ConnID) *fakeConn {
	c := &fakeConn{id: id}
	f.conns.BindSignal(c, nil)
	return c
}

// call runs one request the way a transport does: replies sent ahead of
// broadcasts land on the caller's connection too.
func (f *fixture) call(id domain.ConnID, kind, body string) core.Event {
	var early core.Event
	from := signal.Caller{Conn: id, Client: "client-" + string(id), Reply: func(ev core.Event) {
		early = ev
		if c, ok := f.conns.Get(id); ok {
			_ = c.TrySend(ev)
		}
	}}
	if reply := f.h.Handle(from, kind, []byte(body)); reply != nil {
		return reply
	}
	return early
}

func (f *fixture) createRoom(t *testing.T, id domain.ConnID) domain.RoomID {
	t.Helper()
	reply, ok := f.call(id, signal.ReqCreateRoom, "").(core.RoomCreated)
	require.True(t, ok)
	require.True(t, reply.Success, reply.Error)
	return reply.RoomID
}

func (f *fixture) join(t *testing.T, conn domain.ConnID, room domain.RoomID, name string) core.RoomSnapshot {
	t.Helper()
	reply, ok := f.call(conn, signal.ReqJoinRoom, `{"roomId":"`+string(room)+`","displayName":"`+name+`"}`).(core.JoinResult)
	require.True(t, ok)
	require.True(t, reply.Success, reply.Error)
	require.NotNil(t, reply.Room)
	return *reply.Room
}

// pair returns a started room with Alice on a and Bob on b.
func (f *fixture) pair(t *testing.T) (domain.RoomID, *fakeConn, *fakeConn, core.RoomSnapshot) {
	t.Helper()
	a, b := f.connect("a"), f.connect("b")
	room := f.createRoom(t, "a")
	f.join(t, "a", room, "Alice")
	snap := f.join(t, "b", room, "Bob")
	require.True(t, snap.Active)
	return room, a, b, snap
}

func TestHandle_CreateRoomIsRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	f.connect("a")

	f.createRoom(t, "a")
	f.createRoom(t, "a")
	reply := f.call("a", signal.ReqCreateRoom, "").(core.RoomCreated)
	assert.False(t, reply.Success)
	assert.Equal(t, signal.ErrRateLimited.Error(), reply.Error)

	f.connect("b")
	f.createRoom(t, "b")

	f.clock.Advance(time.Minute)
	f.createRoom(t, "a")
}

func TestHandle_JoinValidation(t *testing.T) {
	f := newFixture(t, 0)
	f.connect("a")
	room := f.createRoom(t, "a")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"roomId":`},
		{"missing room", `{"displayName":"Alice"}`},
		{"malformed code", `{"roomId":"nope","displayName":"Alice"}`},
		{"missing name", `{"roomId":"` + string(room) + `"}`},
		{"blank name", `{"roomId":"` + string(room) + `","displayName":"   "}`},
		{"long name", `{"roomId":"` + string(room) + `","displayName":"0123456789012345678901234567890123456789"}`},
		{"unknown room", `{"roomId":"ZZZZZZ","displayName":"Alice"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := f.call("a", signal.ReqJoinRoom, tt.body).(core.JoinResult)
			assert.False(t, reply.Success)
			assert.NotEmpty(t, reply.Error)
			assert.Nil(t, reply.Room)
		})
	}
}

func TestHandle_JoinAcceptsLowercaseCode(t *testing.T) {
	f := newFixture(t, 0)
	f.connect("a")
	room := f.createRoom(t, "a")

	reply := f.call("a", signal.ReqJoinRoom, `{"roomId":" `+lower(string(room))+`","displayName":"Alice"}`).(core.JoinResult)
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, room, reply.Room.ID)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestHandle_SessionFlow(t *testing.T) {
	f := newFixture(t, 0)
	room, a, b, snap := f.pair(t)
	alice, bob := snap.Participants[0].ID, snap.Participants[1].ID

	assert.Contains(t, a.kinds(), core.KindDeveloperJoined)
	assert.Contains(t, a.kinds(), core.KindSessionStarted)
	assert.Contains(t, b.kinds(), core.KindSessionStarted)

	body := `{"roomId":"` + string(room) + `","content":"x = 1","participantId":"` + string(alice) + `"}`
	assert.Nil(t, f.call("a", signal.ReqCodeChange, body))
	assert.Contains(t, b.kinds(), core.KindCodeUpdated)

	body = `{"roomId":"` + string(room) + `","content":"hijack","participantId":"` + string(bob) + `"}`
	rejected, ok := f.call("b", signal.ReqCodeChange, body).(core.CodeChangeRejected)
	require.True(t, ok)
	assert.Equal(t, domain.ErrNotYourTurn.Error(), rejected.Reason)

	assert.Nil(t, f.call("b", signal.ReqSwitchTurn, `{"roomId":"`+string(room)+`"}`))
	assert.Contains(t, a.kinds(), core.KindTurnSwitched)

	assert.Nil(t, f.call("a", signal.ReqTyping, `{"roomId":"`+string(room)+`","isTyping":true}`))
	assert.Contains(t, b.kinds(), core.KindUserTyping)
	assert.NotContains(t, a.kinds(), core.KindUserTyping)

	assert.Nil(t, f.call("a", signal.ReqChangeLanguage, `{"roomId":"`+string(room)+`","language":"go"}`))
	assert.Contains(t, b.kinds(), core.KindLanguageChanged)

	_, isErr := f.call("a", signal.ReqChangeLanguage, `{"roomId":"`+string(room)+`","language":""}`).(core.ErrorEvent)
	assert.True(t, isErr)

	assert.Nil(t, f.call("b", signal.ReqEndSession, `{"roomId":"`+string(room)+`"}`))
	assert.Contains(t, a.kinds(), core.KindSessionEnded)

	reply, ok := f.call("b", signal.ReqEndSession, `{"roomId":"`+string(room)+`"}`).(core.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, domain.ErrRoomTerminated.Error(), reply.Message)

	body = `{"roomId":"` + string(room) + `","content":"too late","participantId":"` + string(alice) + `"}`
	rejected, ok = f.call("a", signal.ReqCodeChange, body).(core.CodeChangeRejected)
	require.True(t, ok, "every failed write is a rejection")
	assert.Equal(t, domain.ErrRoomTerminated.Error(), rejected.Reason)
}

func TestHandle_CodeChangeCannotBorrowTheOtherIdentity(t *testing.T) {
	f := newFixture(t, 0)
	room, a, _, snap := f.pair(t)
	alice := snap.Participants[0].ID

	body := `{"roomId":"` + string(room) + `","content":"written by bob","participantId":"` + string(alice) + `"}`
	rejected, ok := f.call("b", signal.ReqCodeChange, body).(core.CodeChangeRejected)
	require.True(t, ok)
	assert.Equal(t, domain.ErrNotYourTurn.Error(), rejected.Reason)
	assert.NotContains(t, a.kinds(), core.KindCodeUpdated)
}

func TestHandle_JoinReplyPrecedesSessionStart(t *testing.T) {
	f := newFixture(t, 0)
	_, _, b, _ := f.pair(t)

	kinds := b.kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, []core.EventKind{core.KindJoinResult, core.KindSessionStarted}, kinds)
}

func TestHandle_RequestsAreScopedToJoinedRoom(t *testing.T) {
	f := newFixture(t, 0)
	room, _, _, snap := f.pair(t)
	f.connect("mallory")
	other := f.createRoom(t, "mallory")
	f.join(t, "mallory", other, "Mallory")

	body := `{"roomId":"` + string(room) + `","content":"pwned","participantId":"` + string(snap.Participants[0].ID) + `"}`
	rejected, ok := f.call("mallory", signal.ReqCodeChange, body).(core.CodeChangeRejected)
	require.True(t, ok)
	assert.NotEmpty(t, rejected.Reason)

	for _, kind := range []string{signal.ReqSwitchTurn, signal.ReqEndSession} {
		_, isErr := f.call("mallory", kind, `{"roomId":"`+string(room)+`"}`).(core.ErrorEvent)
		assert.True(t, isErr, kind)
	}
	assert.Nil(t, f.call("mallory", signal.ReqTyping, `{"roomId":"`+string(room)+`","isTyping":true}`))
}

func TestHandle_PingAndUnknown(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, core.Pong{}, f.call("a", signal.ReqPing, ""))
	_, isErr := f.call("a", "launch-rockets", "{}").(core.ErrorEvent)
	assert.True(t, isErr)
}

func TestHandle_DisconnectStartsGrace(t *testing.T) {
	f := newFixture(t, 0)
	_, a, _, _ := f.pair(t)

	f.h.Disconnected("b")
	assert.Contains(t, a.kinds(), core.KindParticipantDisconnected)
	assert.Equal(t, 1, f.conns.Count())

	f.clock.Advance(30 * time.Second)
	assert.Contains(t, a.kinds(), core.KindSessionEnded)
}

func TestHandle_JoiningAnotherRoomLeavesThePrevious(t *testing.T) {
	f := newFixture(t, 0)
	room, a, _, _ := f.pair(t)
	other := f.createRoom(t, "b")

	f.join(t, "b", other, "Bob")
	assert.Contains(t, a.kinds(), core.KindParticipantDisconnected)

	cur, ok := f.conns.RoomOf("b")
	require.True(t, ok)
	assert.Equal(t, other, cur)
	assert.NotEqual(t, room, cur)
}

func TestHandle_FailedSwitchLeavesNoStaleRoom(t *testing.T) {
	f := newFixture(t, 0)
	room, a, b, _ := f.pair(t)
	f.connect("x")
	f.connect("y")
	full := f.createRoom(t, "x")
	f.join(t, "x", full, "Xena")
	f.join(t, "y", full, "Yuri")

	reply := f.call("b", signal.ReqJoinRoom, `{"roomId":"`+string(full)+`","displayName":"Bob"}`).(core.JoinResult)
	assert.False(t, reply.Success)
	assert.Equal(t, domain.ErrRoomFull.Error(), reply.Error)

	_, ok := f.conns.RoomOf("b")
	assert.False(t, ok)
	seen := len(b.kinds())
	assert.Nil(t, f.call("a", signal.ReqChangeLanguage, `{"roomId":"`+string(room)+`","language":"go"}`))
	assert.Len(t, b.kinds(), seen, "the old room no longer reaches b")
	_, isErr := f.call("b", signal.ReqSwitchTurn, `{"roomId":"`+string(room)+`"}`).(core.ErrorEvent)
	assert.True(t, isErr)
	assert.Contains(t, a.kinds(), core.KindParticipantDisconnected)
}

func TestHandle_DeletedRoomReleasesConnections(t *testing.T) {
	f := newFixture(t, 0)
	room, _, _, _ := f.pair(t)

	assert.Nil(t, f.call("a", signal.ReqEndSession, `{"roomId":"`+string(room)+`"}`))
	f.clock.Advance(9 * time.Second)

	for _, conn := range []domain.ConnID{"a", "b"} {
		_, ok := f.conns.RoomOf(conn)
		assert.False(t, ok, conn)
	}
	assert.Equal(t, 2, f.conns.Count())
}
