package transport

import (
	"context"
	"errors"
)

// ErrNotConnected 没有活动订阅时发送
var ErrNotConnected = errors.New("not connected to a room channel")

// ChannelPrefix 房间广播频道名前缀
const ChannelPrefix = "syncbeat_room_"

// ChannelName 房间码对应的频道名
func ChannelName(roomCode string) string {
	return ChannelPrefix + roomCode
}

// Transport 以房间码为作用域的广播原语。
// 投递给除发送者外的所有当前成员；不保证送达、不保证顺序、没有背压信号。
type Transport interface {
	Join(ctx context.Context, roomCode, memberID string) (Channel, error)
}

// Channel 一次房间订阅
type Channel interface {
	// Publish 发后即忘，返回的错误只说明本地发送失败
	Publish(ctx context.Context, payload []byte) error
	// Messages 入站消息，Close 后关闭
	Messages() <-chan []byte
	Close() error
}

// inboxSize 每个订阅的入站缓冲，满了直接丢弃
const inboxSize = 256
