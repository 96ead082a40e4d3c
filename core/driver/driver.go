package driver

import (
	"errors"

	"SyncBeat/model"
)

// State 播放器状态
type State int

const (
	Unstarted State = iota
	Playing
	Paused
	Buffering
	Ended
)

func (s State) String() string {
	switch s {
	case Playing:
		return "PLAYING"
	case Paused:
		return "PAUSED"
	case Buffering:
		return "BUFFERING"
	case Ended:
		return "ENDED"
	default:
		return "UNSTARTED"
	}
}

// ErrNoTrack 未加载曲目时的操作
var ErrNoTrack = errors.New("no track loaded")

// Driver 播放控件的最小控制面。实现方可能在任意 goroutine 回调 OnStateChange
type Driver interface {
	Position() (float64, error)
	State() (State, error)
	Play() error
	Pause() error
	Seek(seconds float64) error
	Load(track model.Track) error
	OnStateChange(fn func(State))
	// Interactive 为 false 时只能外链打开，纠偏循环对其无效
	Interactive() bool
}
