package app

import (
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose outbox is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, conn core.SignalConnection) BackpressureAction
}

// SimplePolicy kicks slow connections. The kick looks like a transport
// disconnect to the room, so the participant gets the usual grace window.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, core.SignalConnection) BackpressureAction {
	return KickMember
}

// PublishResult reports delivery stats/backpressure of one fan-out.
type PublishResult struct {
	SentTo  int
	Dropped []core.SignalConnection
}
