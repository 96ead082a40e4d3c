package driver

import (
	"context"
	"sync"
	"time"

	"SyncBeat/model"
)

// Sim 基于墙钟的模拟播放器，用于命令行和测试
type Sim struct {
	mu              sync.Mutex
	now             func() time.Time
	state           State
	pos             float64 // anchor 时刻的位置
	anchor          time.Time
	duration        float64 // 0 表示未知时长，永不结束
	defaultDuration float64
	track           *model.Track
	listeners       []func(State)
}

// SimOption Sim 配置项
type SimOption func(*Sim)

// WithClock 注入时钟
func WithClock(now func() time.Time) SimOption {
	return func(s *Sim) { s.now = now }
}

// WithDefaultDuration 曲目未携带时长时使用的时长（秒）
func WithDefaultDuration(seconds float64) SimOption {
	return func(s *Sim) { s.defaultDuration = seconds }
}

// NewSim 创建模拟播放器
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.anchor = s.now()
	return s
}

func (s *Sim) positionLocked() float64 {
	p := s.pos
	if s.state == Playing {
		p += s.now().Sub(s.anchor).Seconds()
	}
	if s.duration > 0 && p > s.duration {
		p = s.duration
	}
	return p
}

func (s *Sim) Position() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked(), nil
}

func (s *Sim) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *Sim) Play() error {
	return s.transition(func() (State, bool, error) {
		if s.track == nil {
			return 0, false, ErrNoTrack
		}
		if s.state == Playing {
			return s.state, false, nil
		}
		if s.state == Ended {
			s.pos = 0
		}
		s.anchor = s.now()
		s.state = Playing
		return Playing, true, nil
	})
}

func (s *Sim) Pause() error {
	return s.transition(func() (State, bool, error) {
		if s.state != Playing {
			return s.state, false, nil
		}
		s.pos = s.positionLocked()
		s.anchor = s.now()
		s.state = Paused
		return Paused, true, nil
	})
}

func (s *Sim) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil {
		return ErrNoTrack
	}
	if seconds < 0 {
		seconds = 0
	}
	s.pos = seconds
	s.anchor = s.now()
	return nil
}

func (s *Sim) Load(track model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := track
	s.track = &t
	s.pos = 0
	s.anchor = s.now()
	s.state = Unstarted
	s.duration = s.defaultDuration
	if track.DurationSeconds != nil && *track.DurationSeconds > 0 {
		s.duration = *track.DurationSeconds
	}
	return nil
}

func (s *Sim) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Sim) Interactive() bool { return true }

// Check 到达曲目末尾时切换为 Ended 并通知
func (s *Sim) Check() {
	_ = s.transition(func() (State, bool, error) {
		if s.state != Playing || s.duration <= 0 || s.positionLocked() < s.duration {
			return s.state, false, nil
		}
		s.pos = s.duration
		s.state = Ended
		return Ended, true, nil
	})
}

// Run 周期性调用 Check，直到 ctx 取消
func (s *Sim) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check()
		}
	}
}

// transition 在锁内修改状态，锁外通知监听者
func (s *Sim) transition(fn func() (State, bool, error)) error {
	s.mu.Lock()
	st, changed, err := fn()
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	if err != nil || !changed {
		return err
	}
	for _, l := range listeners {
		l(st)
	}
	return nil
}
