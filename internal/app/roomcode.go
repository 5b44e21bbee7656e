package app

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/dkeye/Pair/internal/domain"
)

const (
	RoomCodeLength = 6
	// No 0/O or 1/I: codes are read aloud and typed by hand.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts  = 32
)

// CodeSource produces candidate room codes.
type CodeSource func() (string, error)

// RandomRoomCode draws RoomCodeLength symbols from the alphabet. The alphabet
// has 32 symbols, so masking a random byte keeps the draw uniform.
func RandomRoomCode() (string, error) {
	b := make([]byte, RoomCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])&(len(roomCodeAlphabet)-1)]
	}
	return string(b), nil
}

// NewRoomCode re-rolls until src yields a code that is not taken.
func NewRoomCode(src CodeSource, taken func(domain.RoomID) bool) (domain.RoomID, error) {
	if src == nil {
		src = RandomRoomCode
	}
	for range maxCodeAttempts {
		code, err := src()
		if err != nil {
			return "", err
		}
		id := domain.RoomID(code)
		if !taken(id) {
			return id, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

// ValidRoomCode reports whether s could have come from RandomRoomCode.
func ValidRoomCode(s string) bool {
	if len(s) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(roomCodeAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
