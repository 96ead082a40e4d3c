package room

import (
	"math"
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/core/protocol"
	"SyncBeat/logger"
	"SyncBeat/model"
)

// Host 房主：播放游标的唯一写者
type Host struct {
	r *Room
}

func newHost(r *Room) *Host { return &Host{r: r} }

func (h *Host) Role() Role                  { return RoleHost }
func (h *Host) TickInterval() time.Duration { return h.r.opts.HostBroadcastInterval }

// OnJoin 登记新成员（幂等），并把全量状态发给它
func (h *Host) OnJoin(from string, m model.Member) {
	// 房主在建房时就确定了，加入者一律是听众
	m.IsHost = false
	if m.ID != from {
		h.r.log.Warn("join payload id differs from sender",
			logger.String("from", from), logger.String("member", m.ID))
	}
	if h.r.state.upsertMember(m) {
		h.r.log.Info("member joined",
			logger.String("memberId", m.ID),
			logger.String("name", m.DisplayName),
			logger.Int("members", len(h.r.state.members)))
	}
	h.sendSnapshot()
}

// OnRequestSync 兜底路径：重发同样的两条消息
func (h *Host) OnRequestSync(from string) {
	h.r.log.Debug("sync requested", logger.String("from", from))
	h.sendSnapshot()
}

func (h *Host) sendSnapshot() {
	h.r.send(protocol.UpdateQueue{
		Queue:   h.r.state.queue.Clone(),
		Members: append([]model.Member(nil), h.r.state.members...),
	})
	h.r.send(protocol.SyncPlayback{Cursor: h.r.state.cursor})
}

// OnSyncPlayback 房主从不接受外部游标
func (h *Host) OnSyncPlayback(from string, _ model.PlaybackCursor) {
	h.r.log.Warn("ignoring playback sync sent to host", logger.String("from", from))
}

func (h *Host) OnQueueReplaced() {}

// OnTick 周期广播：播放中时用播放器的真实位置重新锚定
func (h *Host) OnTick() {
	h.r.refreshDirectory()

	c := h.r.state.cursor
	if !c.IsPlaying || c.CurrentTrackID == nil {
		return
	}
	now := h.r.now()
	pos := c.ExpectedPosition(now)
	if h.r.loadedTrackID == c.TrackID() && h.r.driver.Interactive() {
		if p, ok := h.r.driver.Position(); ok {
			pos = p
		}
	}
	c.PositionSeconds = pos
	c.ObservedAt = now.UnixMilli()
	h.r.state.setCursor(c)
	h.r.send(protocol.SyncPlayback{Cursor: c})
}

// OnDriverState 本地播放器的状态变化驱动游标。
// 通知是异步排队的，只处理与播放器当前状态一致且改变了游标的那一条。
func (h *Host) OnDriverState(s driver.State) {
	current := h.r.state.cursor.TrackID()
	if current == "" || h.r.loadedTrackID != current {
		return
	}
	if st, ok := h.r.driver.State(); ok && st != s {
		h.r.log.Debug("dropping stale driver state",
			logger.String("event", s.String()), logger.String("driver", st.String()))
		return
	}
	switch s {
	case driver.Playing, driver.Paused:
		playing := s == driver.Playing
		if playing == h.r.state.cursor.IsPlaying {
			return
		}
		pos, ok := h.r.driver.Position()
		if !ok {
			pos = h.r.state.cursor.ExpectedPosition(h.r.now())
		}
		_ = h.UpdatePlayback(playing, pos, current)
	case driver.Ended:
		_ = h.NextTrack()
	}
}

// OnTrackAdded 空队列里加入第一首时设为当前曲目（保持暂停）
func (h *Host) OnTrackAdded(t model.Track, queueWasEmpty bool) {
	c := h.r.state.cursor
	if !queueWasEmpty || c.CurrentTrackID != nil {
		return
	}
	c = c.WithTrack(t.ID)
	h.r.state.setCursor(c)
	h.apply()
	h.r.send(protocol.SyncPlayback{Cursor: c})
}

func (h *Host) UpdatePlayback(isPlaying bool, position float64, trackID string) error {
	if position < 0 {
		position = 0
	}
	c := model.PlaybackCursor{
		IsPlaying:       isPlaying,
		PositionSeconds: position,
		ObservedAt:      h.r.now().UnixMilli(),
	}.WithTrack(trackID)

	h.r.state.setCursor(c)
	h.apply()
	h.r.send(protocol.SyncPlayback{Cursor: c})
	return nil
}

func (h *Host) TogglePlay() error {
	c := h.r.state.cursor
	if c.CurrentTrackID == nil {
		return ErrNothingToPlay
	}
	pos := c.ExpectedPosition(h.r.now())
	if h.r.loadedTrackID == c.TrackID() && h.r.driver.Interactive() {
		if p, ok := h.r.driver.Position(); ok {
			pos = p
		}
	}
	return h.UpdatePlayback(!c.IsPlaying, pos, c.TrackID())
}

// NextTrack 下一首；队列末尾时清空当前曲目并停止
func (h *Host) NextTrack() error {
	if next, ok := h.r.state.queue.After(h.r.state.cursor.TrackID()); ok {
		return h.UpdatePlayback(true, 0, next.ID)
	}
	return h.UpdatePlayback(false, 0, "")
}

// apply 让本地播放器跟上游标
func (h *Host) apply() {
	c := h.r.state.cursor
	fresh := h.r.loadedTrackID != c.TrackID()
	if !h.r.ensureLoaded() {
		if !c.IsPlaying {
			if st, ok := h.r.driver.State(); ok && st == driver.Playing {
				h.r.driver.Pause()
			}
		}
		return
	}
	if !h.r.driver.Interactive() {
		return
	}
	if fresh {
		if c.PositionSeconds > 0 {
			h.r.driver.Seek(c.PositionSeconds)
		}
	} else if pos, ok := h.r.driver.Position(); ok && math.Abs(pos-c.PositionSeconds) > h.r.opts.DriftThreshold {
		h.r.driver.Seek(c.PositionSeconds)
	}
	st, ok := h.r.driver.State()
	if !ok {
		return
	}
	if c.IsPlaying && st != driver.Playing {
		h.r.driver.Play()
	} else if !c.IsPlaying && st == driver.Playing {
		h.r.driver.Pause()
	}
}
