package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"SyncBeat/model"

	"github.com/redis/go-redis/v9"
)

const (
	roomInfoKey     = "room:%s:info" // Hash: host / createdAt
	roomInfoPattern = "room:*:info"
)

// RoomEntry 目录中的一条房间记录
type RoomEntry struct {
	Code      string        `json:"code"`
	Host      model.Member  `json:"host"`
	CreatedAt time.Time     `json:"createdAt"`
	TTL       time.Duration `json:"ttl"`
}

// RoomDirectory 基于 Redis 的房间码目录，满足 room.Directory
type RoomDirectory struct {
	client *redis.Client
}

// NewRoomDirectory client 为空时使用全局客户端
func NewRoomDirectory(client *redis.Client) *RoomDirectory {
	if client == nil {
		client = RedisClient
	}
	return &RoomDirectory{client: client}
}

func (d *RoomDirectory) Exists(ctx context.Context, code string) (bool, error) {
	if d.client == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}
	n, err := d.client.Exists(ctx, fmt.Sprintf(roomInfoKey, code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Register 写入或续期；createdAt 只在首次写入时设置
func (d *RoomDirectory) Register(ctx context.Context, code string, host model.Member, ttl time.Duration) error {
	if d.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(roomInfoKey, code)
	hostData, err := json.Marshal(host)
	if err != nil {
		return fmt.Errorf("failed to marshal host: %w", err)
	}

	pipe := d.client.Pipeline()
	pipe.HSet(ctx, key, "host", hostData)
	pipe.HSetNX(ctx, key, "createdAt", time.Now().UnixMilli())
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (d *RoomDirectory) Remove(ctx context.Context, code string) error {
	if d.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return d.client.Del(ctx, fmt.Sprintf(roomInfoKey, code)).Err()
}

// Get 读取单个房间，不存在时返回 nil
func (d *RoomDirectory) Get(ctx context.Context, code string) (*RoomEntry, error) {
	if d.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(roomInfoKey, code)
	result, err := d.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	entry := &RoomEntry{Code: code}
	if data, ok := result["host"]; ok {
		if err := json.Unmarshal([]byte(data), &entry.Host); err != nil {
			return nil, fmt.Errorf("failed to unmarshal host: %w", err)
		}
	}
	if ms, ok := result["createdAt"]; ok {
		if v, err := strconv.ParseInt(ms, 10, 64); err == nil {
			entry.CreatedAt = time.UnixMilli(v)
		}
	}
	if ttl, err := d.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		entry.TTL = ttl
	}
	return entry, nil
}

// List 扫描所有存活的房间，按房间码排序
func (d *RoomDirectory) List(ctx context.Context) ([]RoomEntry, error) {
	if d.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	var codes []string
	iter := d.client.Scan(ctx, 0, roomInfoPattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		code := strings.TrimSuffix(strings.TrimPrefix(key, "room:"), ":info")
		codes = append(codes, code)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(codes)

	entries := make([]RoomEntry, 0, len(codes))
	for _, code := range codes {
		entry, err := d.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		// 扫描和读取之间过期
		if entry == nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
