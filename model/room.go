package model

import (
	"time"
)

// Member 房间成员
type Member struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
}

// PlaybackCursor 播放游标。PositionSeconds 只在 ObservedAt 那一刻有意义
type PlaybackCursor struct {
	IsPlaying       bool    `json:"isPlaying"`
	CurrentTrackID  *string `json:"currentTrackId"`
	PositionSeconds float64 `json:"positionSeconds" validate:"gte=0"`
	ObservedAt      int64   `json:"observedAt"` // 毫秒时间戳
}

// InitialCursor 离开房间或新建房间时的默认游标
func InitialCursor(now time.Time) PlaybackCursor {
	return PlaybackCursor{ObservedAt: now.UnixMilli()}
}

// ExpectedPosition 按墙钟插值得到当前应处的位置（秒）
func (c PlaybackCursor) ExpectedPosition(now time.Time) float64 {
	if !c.IsPlaying {
		return c.PositionSeconds
	}
	elapsed := float64(now.UnixMilli()-c.ObservedAt) / 1000
	return c.PositionSeconds + elapsed
}

// TrackID 当前曲目 ID，无则返回空串
func (c PlaybackCursor) TrackID() string {
	if c.CurrentTrackID == nil {
		return ""
	}
	return *c.CurrentTrackID
}

// WithTrack 设置当前曲目，空串表示清空
func (c PlaybackCursor) WithTrack(trackID string) PlaybackCursor {
	if trackID == "" {
		c.CurrentTrackID = nil
		return c
	}
	id := trackID
	c.CurrentTrackID = &id
	return c
}

// Equal 比较两个游标（指针字段按值比较）
func (c PlaybackCursor) Equal(o PlaybackCursor) bool {
	return c.IsPlaying == o.IsPlaying &&
		c.TrackID() == o.TrackID() &&
		(c.CurrentTrackID == nil) == (o.CurrentTrackID == nil) &&
		c.PositionSeconds == o.PositionSeconds &&
		c.ObservedAt == o.ObservedAt
}

// RoomSnapshot 全量状态，用于迟到者追赶
type RoomSnapshot struct {
	Code    string         `json:"code"`
	Self    Member         `json:"self"`
	Members []Member       `json:"members"`
	Queue   Queue          `json:"queue"`
	Cursor  PlaybackCursor `json:"cursor"`
}

// CurrentTrack 返回游标指向的曲目
func (s RoomSnapshot) CurrentTrack() (Track, bool) {
	if s.Cursor.CurrentTrackID == nil {
		return Track{}, false
	}
	return s.Queue.Find(*s.Cursor.CurrentTrackID)
}
