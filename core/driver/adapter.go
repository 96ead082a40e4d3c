package driver

import (
	"sync"

	"SyncBeat/model"
)

// Adapter 按曲目平台在可嵌入驱动和外链驱动之间切换。
// 只转发当前活动驱动发出的状态通知。
type Adapter struct {
	mu        sync.Mutex
	embedded  Driver
	linkOut   *LinkOut
	active    Driver
	listeners []func(State)
}

// NewAdapter embedded 为可嵌入平台使用的驱动
func NewAdapter(embedded Driver) *Adapter {
	a := &Adapter{embedded: embedded, linkOut: &LinkOut{}}
	a.active = embedded
	embedded.OnStateChange(func(s State) {
		a.mu.Lock()
		fromActive := a.active == a.embedded
		listeners := append([]func(State){}, a.listeners...)
		a.mu.Unlock()
		if !fromActive {
			return
		}
		for _, l := range listeners {
			l(s)
		}
	})
	return a
}

func (a *Adapter) current() Driver {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *Adapter) Load(track model.Track) error {
	target := Driver(a.linkOut)
	if track.Platform.Embeddable() {
		target = a.embedded
	}

	a.mu.Lock()
	prev := a.active
	a.active = target
	a.mu.Unlock()

	// 切到外链时先停掉内嵌播放器
	if prev == a.embedded && target != a.embedded {
		_ = a.embedded.Pause()
	}
	return target.Load(track)
}

func (a *Adapter) Position() (float64, error) { return a.current().Position() }
func (a *Adapter) State() (State, error)      { return a.current().State() }
func (a *Adapter) Play() error                { return a.current().Play() }
func (a *Adapter) Pause() error               { return a.current().Pause() }
func (a *Adapter) Seek(t float64) error       { return a.current().Seek(t) }
func (a *Adapter) Interactive() bool          { return a.current().Interactive() }

func (a *Adapter) OnStateChange(fn func(State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// LinkURL 当前为外链曲目时返回地址
func (a *Adapter) LinkURL() string {
	if a.current() == Driver(a.linkOut) {
		return a.linkOut.URL()
	}
	return ""
}
