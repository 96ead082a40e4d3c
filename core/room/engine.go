package room

import (
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/model"
)

// Role 成员角色，在创建或加入房间时确定，之后不变
type Role string

const (
	RoleHost     Role = "host"
	RoleListener Role = "listener"
)

// Engine 同步引擎，按角色有两种实现：Host 和 Listener。
// 所有方法都只在房间事件循环中调用。
type Engine interface {
	Role() Role
	// TickInterval 周期任务间隔：房主是广播周期，听众是纠偏周期
	TickInterval() time.Duration
	OnTick()

	OnJoin(from string, m model.Member)
	OnRequestSync(from string)
	OnSyncPlayback(from string, c model.PlaybackCursor)
	// OnQueueReplaced 收到 UPDATE_QUEUE 之后
	OnQueueReplaced()
	OnDriverState(s driver.State)
	OnTrackAdded(t model.Track, queueWasEmpty bool)

	UpdatePlayback(isPlaying bool, position float64, trackID string) error
	TogglePlay() error
	NextTrack() error
}
