package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomTerminated     = errors.New("session has ended, this room is closed")
	ErrInvalidName        = errors.New("invalid name")
	ErrNameTooLong        = errors.New("name too long")
	ErrNotYourTurn        = errors.New("not your turn or invalid session")
	ErrSessionInactive    = errors.New("session is not active")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")
)
