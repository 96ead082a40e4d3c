package transport

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"SyncBeat/logger"

	"github.com/redis/go-redis/v9"
)

// RedisTransport 基于 Redis Pub/Sub 的房间广播。
// 帧格式为 "<senderId>\n<payload>"，订阅端据此丢弃自己发出的帧。
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport 创建 Redis 传输
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Join(ctx context.Context, roomCode, memberID string) (Channel, error) {
	if t.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	name := ChannelName(roomCode)
	pubsub := t.client.Subscribe(ctx, name)
	// 等待订阅确认，避免加入后立即发出的消息丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}

	ch := &redisChannel{
		client: t.client,
		pubsub: pubsub,
		name:   name,
		member: memberID,
		inbox:  make(chan []byte, inboxSize),
	}
	go ch.readLoop()
	return ch, nil
}

type redisChannel struct {
	client    *redis.Client
	pubsub    *redis.PubSub
	name      string
	member    string
	inbox     chan []byte
	closeOnce sync.Once
}

func (c *redisChannel) readLoop() {
	defer close(c.inbox)
	for msg := range c.pubsub.Channel() {
		from, payload, ok := bytes.Cut([]byte(msg.Payload), []byte{'\n'})
		if !ok {
			logger.Debug("redis frame without sender, dropped", logger.String("channel", c.name))
			continue
		}
		if string(from) == c.member {
			continue
		}
		select {
		case c.inbox <- payload:
		default:
			logger.Warn("redis inbox full, message dropped", logger.String("channel", c.name))
		}
	}
}

func (c *redisChannel) Publish(ctx context.Context, payload []byte) error {
	frame := make([]byte, 0, len(c.member)+1+len(payload))
	frame = append(frame, c.member...)
	frame = append(frame, '\n')
	frame = append(frame, payload...)
	if err := c.client.Publish(ctx, c.name, frame).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", c.name, err)
	}
	return nil
}

func (c *redisChannel) Messages() <-chan []byte { return c.inbox }

func (c *redisChannel) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.pubsub.Close() })
	return err
}
