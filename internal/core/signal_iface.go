package core

import (
	"errors"

	"github.com/dkeye/Pair/internal/domain"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: it is called while room state is locked.
type SignalConnection interface {
	ID() domain.ConnID
	TrySend(Event) error
	Close()
}
