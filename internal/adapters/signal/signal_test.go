package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/dkeye/Pair/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T) (string, *app.Connections) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	disp := app.NewDispatcher(nil)
	reg := app.NewRegistry(disp, app.DefaultRoomDefaults(), nil)
	conns := app.NewConnections(app.SimplePolicy{})
	o := orch.New(disp, reg, conns, orch.DefaultTiming())
	ctl := signal.NewSignalWSController(signal.NewHandler(o, conns, nil), signal.WSOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", conns
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(msg))
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, ws *websocket.Conn, kind core.EventKind) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, ws.ReadJSON(&f))
		if f.Type == string(kind) {
			return f
		}
	}
}

func TestWebSocket_CreateJoinAndStart(t *testing.T) {
	url, conns := startServer(t)
	alice, bob := dial(t, url), dial(t, url)

	send(t, alice, map[string]any{"type": "create-room"})
	var created core.RoomCreated
	require.NoError(t, json.Unmarshal(readUntil(t, alice, core.KindRoomCreated).Data, &created))
	require.True(t, created.Success)

	send(t, alice, map[string]any{"type": "join-room", "roomId": created.RoomID, "displayName": "Alice"})
	var joined core.JoinResult
	require.NoError(t, json.Unmarshal(readUntil(t, alice, core.KindJoinResult).Data, &joined))
	require.True(t, joined.Success, joined.Error)
	assert.Len(t, joined.Room.Participants, 1)

	send(t, bob, map[string]any{"type": "join-room", "roomId": created.RoomID, "displayName": "Bob"})
	readUntil(t, bob, core.KindJoinResult)

	var started core.SessionStarted
	require.NoError(t, json.Unmarshal(readUntil(t, alice, core.KindSessionStarted).Data, &started))
	assert.Equal(t, "Alice", started.ActiveParticipant.Name)
	readUntil(t, bob, core.KindSessionStarted)

	var tick core.TimerUpdate
	require.NoError(t, json.Unmarshal(readUntil(t, bob, core.KindTimerUpdate).Data, &tick))
	assert.True(t, tick.Active)
	assert.LessOrEqual(t, tick.SessionTimeLeft, int64(600_000))

	send(t, bob, map[string]any{"type": "ping"})
	readUntil(t, bob, core.KindPong)

	require.NoError(t, bob.Close())
	var gone core.ParticipantDisconnected
	require.NoError(t, json.Unmarshal(readUntil(t, alice, core.KindParticipantDisconnected).Data, &gone))
	assert.Equal(t, "Bob", gone.Name)
	assert.Eventually(t, func() bool { return conns.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_BadFrame(t *testing.T) {
	url, _ := startServer(t)
	ws := dial(t, url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	var e core.ErrorEvent
	require.NoError(t, json.Unmarshal(readUntil(t, ws, core.KindError).Data, &e))
	assert.NotEmpty(t, e.Message)

	send(t, ws, map[string]any{"type": "switch-turn", "roomId": "ABCDEF"})
	readUntil(t, ws, core.KindError)
}

func TestWebSocket_KickClosesConnection(t *testing.T) {
	url, conns := startServer(t)
	ws := dial(t, url)
	require.Eventually(t, func() bool { return conns.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	for _, c := range conns.MembersOfRoom("") {
		assert.True(t, conns.Cancel(c.ID()))
	}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return conns.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
