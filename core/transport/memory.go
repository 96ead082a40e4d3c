package transport

import (
	"context"
	"sync"

	"SyncBeat/logger"
)

// DropFunc 返回 true 时丢弃从 from 发往 to 的这条消息，用于模拟丢包
type DropFunc func(from, to string, payload []byte) bool

// Bus 进程内广播总线
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*memChannel // 房间码 -> 成员ID -> 订阅
	drop  DropFunc
}

// NewBus 创建进程内总线
func NewBus() *Bus {
	return &Bus{rooms: make(map[string]map[string]*memChannel)}
}

// SetDropFunc 安装丢包规则，nil 表示不丢
func (b *Bus) SetDropFunc(fn DropFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop = fn
}

// Join 同一成员重复加入时踢掉旧订阅
func (b *Bus) Join(_ context.Context, roomCode, memberID string) (Channel, error) {
	ch := &memChannel{bus: b, room: roomCode, member: memberID, inbox: make(chan []byte, inboxSize)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rooms[roomCode] == nil {
		b.rooms[roomCode] = make(map[string]*memChannel)
	}
	if old, ok := b.rooms[roomCode][memberID]; ok {
		b.removeLocked(old)
	}
	b.rooms[roomCode][memberID] = ch
	return ch, nil
}

// Members 房间当前订阅者数量
func (b *Bus) Members(roomCode string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomCode])
}

func (b *Bus) broadcast(from *memChannel, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.rooms[from.room]
	if !ok || subs[from.member] != from {
		return ErrNotConnected
	}

	for id, sub := range subs {
		if id == from.member {
			continue
		}
		if b.drop != nil && b.drop(from.member, id, payload) {
			continue
		}
		// 每个订阅者拿到独立副本
		data := append([]byte(nil), payload...)
		select {
		case sub.inbox <- data:
		default:
			logger.Warn("memory bus inbox full, message dropped",
				logger.String("room", from.room),
				logger.String("member", id))
		}
	}
	return nil
}

// removeLocked 需要持有写锁
func (b *Bus) removeLocked(ch *memChannel) {
	subs := b.rooms[ch.room]
	if subs[ch.member] != ch {
		return
	}
	delete(subs, ch.member)
	close(ch.inbox)
	if len(subs) == 0 {
		delete(b.rooms, ch.room)
	}
}

type memChannel struct {
	bus    *Bus
	room   string
	member string
	inbox  chan []byte
}

func (c *memChannel) Publish(_ context.Context, payload []byte) error {
	return c.bus.broadcast(c, payload)
}

func (c *memChannel) Messages() <-chan []byte { return c.inbox }

func (c *memChannel) Close() error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	c.bus.removeLocked(c)
	return nil
}
