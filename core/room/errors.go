package room

import "errors"

var (
	ErrRoomClosed    = errors.New("room closed")
	ErrNotPermitted  = errors.New("operation not permitted for this member")
	ErrTrackNotFound = errors.New("track not found in queue")
	ErrNothingToPlay = errors.New("no current track")
	ErrNoRoomCode    = errors.New("unable to allocate a free room code")
)
