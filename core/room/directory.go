package room

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"SyncBeat/model"
)

// DirectoryTTL 目录条目存活时间，房主每次周期广播时续期
const DirectoryTTL = 30 * time.Second

// Directory 房间码登记处，用于避免房间码冲突
type Directory interface {
	Exists(ctx context.Context, code string) (bool, error)
	Register(ctx context.Context, code string, host model.Member, ttl time.Duration) error
	Remove(ctx context.Context, code string) error
}

// GenerateRoomCode 生成 1000-9999 的四位房间码，最多尝试 100 次
func GenerateRoomCode(ctx context.Context, dir Directory) (string, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("%d", r.Intn(9000)+1000)
		if dir == nil {
			return code, nil
		}
		exists, err := dir.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrNoRoomCode
}

// MemoryDirectory 进程内目录
type MemoryDirectory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	host    model.Member
	expires time.Time
}

// NewMemoryDirectory 创建进程内目录
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (d *MemoryDirectory) Exists(_ context.Context, code string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[code]
	if ok && d.now().After(e.expires) {
		delete(d.entries, code)
		return false, nil
	}
	return ok, nil
}

func (d *MemoryDirectory) Register(_ context.Context, code string, host model.Member, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[code] = memoryEntry{host: host, expires: d.now().Add(ttl)}
	return nil
}

func (d *MemoryDirectory) Remove(_ context.Context, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, code)
	return nil
}

// Codes 当前未过期的房间码
func (d *MemoryDirectory) Codes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	codes := make([]string, 0, len(d.entries))
	for code, e := range d.entries {
		if now.Before(e.expires) {
			codes = append(codes, code)
		}
	}
	return codes
}
