package natsfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher is the part of *nats.Conn the feed uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is published on <subject>.<kind> for every session lifecycle event.
type Message struct {
	Room  domain.RoomID  `json:"room"`
	Event core.EventKind `json:"event"`
	At    int64          `json:"at"`
	Data  core.Event     `json:"data"`
}

// Feed wraps a Broadcaster and mirrors session-started and session-ended to
// NATS. Everything else passes straight through.
type Feed struct {
	next    core.Broadcaster
	pub     Publisher
	subject string
	now     func() time.Time
}

var _ core.Broadcaster = (*Feed)(nil)

func New(next core.Broadcaster, pub Publisher, subject string) *Feed {
	return &Feed{next: next, pub: pub, subject: subject, now: time.Now}
}

func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("pair"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func (f *Feed) Attach(conn domain.ConnID, room domain.RoomID) {
	f.next.Attach(conn, room)
}

func (f *Feed) Broadcast(room domain.RoomID, ev core.Event) {
	f.next.Broadcast(room, ev)
	f.mirror(room, ev)
}

func (f *Feed) BroadcastExcept(room domain.RoomID, except domain.ConnID, ev core.Event) {
	f.next.BroadcastExcept(room, except, ev)
	f.mirror(room, ev)
}

func (f *Feed) SendTo(conn domain.ConnID, ev core.Event) {
	f.next.SendTo(conn, ev)
}

func (f *Feed) Release(room domain.RoomID) {
	f.next.Release(room)
}

func (f *Feed) mirror(room domain.RoomID, ev core.Event) {
	switch ev.Kind() {
	case core.KindSessionStarted, core.KindSessionEnded:
	default:
		return
	}
	data, err := json.Marshal(Message{Room: room, Event: ev.Kind(), At: f.now().UnixMilli(), Data: ev})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.natsfeed").Msg("marshal")
		return
	}
	subject := f.subject + "." + string(ev.Kind())
	if err := f.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("module", "adapters.natsfeed").Str("subject", subject).Str("room", string(room)).Msg("publish failed")
		return
	}
	log.Debug().Str("module", "adapters.natsfeed").Str("subject", subject).Str("room", string(room)).Msg("published")
}
