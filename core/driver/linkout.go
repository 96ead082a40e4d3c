package driver

import (
	"sync"

	"SyncBeat/model"
)

// LinkOut 不可嵌入平台的占位驱动：只记录曲目，供界面给出外链
type LinkOut struct {
	mu    sync.Mutex
	track *model.Track
}

func (l *LinkOut) Position() (float64, error) { return 0, nil }
func (l *LinkOut) State() (State, error)      { return Unstarted, nil }
func (l *LinkOut) Play() error                { return nil }
func (l *LinkOut) Pause() error               { return nil }
func (l *LinkOut) Seek(float64) error         { return nil }
func (l *LinkOut) OnStateChange(func(State))  {}
func (l *LinkOut) Interactive() bool          { return false }

func (l *LinkOut) Load(track model.Track) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := track
	l.track = &t
	return nil
}

// URL 当前曲目的外链地址
func (l *LinkOut) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.track == nil {
		return ""
	}
	return l.track.SourceURL
}
