package room

import (
	"math"
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/logger"
	"SyncBeat/model"
)

// Listener 听众：游标只读，只能被 SYNC_PLAYBACK 整体覆盖
type Listener struct {
	r *Room
}

func newListener(r *Room) *Listener { return &Listener{r: r} }

func (l *Listener) Role() Role                  { return RoleListener }
func (l *Listener) TickInterval() time.Duration { return l.r.opts.DriftCheckInterval }

func (l *Listener) OnJoin(string, model.Member)    {}
func (l *Listener) OnRequestSync(string)           {}
func (l *Listener) OnDriverState(driver.State)     {}
func (l *Listener) OnTrackAdded(model.Track, bool) {}

// OnSyncPlayback 整体覆盖本地游标并立即对齐
func (l *Listener) OnSyncPlayback(_ string, c model.PlaybackCursor) {
	if !c.Equal(l.r.state.cursor) {
		l.r.state.setCursor(c)
	}
	l.correctDrift()
}

// OnQueueReplaced 游标指向的曲目可能刚刚到达
func (l *Listener) OnQueueReplaced() { l.correctDrift() }

// OnTick 定时纠偏；插值位置随墙钟前进，所以即使没有新消息也要跑
func (l *Listener) OnTick() { l.correctDrift() }

func (l *Listener) UpdatePlayback(bool, float64, string) error { return ErrNotPermitted }
func (l *Listener) TogglePlay() error                          { return ErrNotPermitted }
func (l *Listener) NextTrack() error                           { return ErrNotPermitted }

// correctDrift 纠偏算法：
//  1. expected = 游标位置 + 播放中经过的墙钟时间
//  2. actual = 播放器位置
//  3. 播放/暂停状态对齐
//  4. |actual - expected| 严格大于阈值时 seek 到 expected，始终以房主为准
func (l *Listener) correctDrift() {
	r := l.r
	c := r.state.cursor
	loaded := r.ensureLoaded()

	// 外链曲目没有可控的播放器
	if !r.driver.Interactive() {
		return
	}
	st, ok := r.driver.State()
	if !ok {
		return
	}
	if !c.IsPlaying && st == driver.Playing {
		r.driver.Pause()
	}
	if !loaded {
		return
	}

	expected := c.ExpectedPosition(r.now())
	actual, ok := r.driver.Position()
	if !ok {
		return
	}

	if c.IsPlaying && st != driver.Playing && st != driver.Buffering {
		r.driver.Play()
	}

	if drift := math.Abs(actual - expected); drift > r.opts.DriftThreshold {
		r.log.Debug("drift detected, seeking",
			logger.Float64("actual", actual),
			logger.Float64("expected", expected),
			logger.Float64("drift", drift))
		r.driver.Seek(expected)
	}
}
