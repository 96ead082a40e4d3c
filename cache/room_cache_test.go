package cache

import (
	"context"
	"testing"
	"time"

	"SyncBeat/config"
	"SyncBeat/core/room"
	"SyncBeat/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ room.Directory = (*RoomDirectory)(nil)

func newTestDirectory(t *testing.T) (*miniredis.Miniredis, *RoomDirectory) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, NewRoomDirectory(client)
}

func TestRoomDirectoryLifecycle(t *testing.T) {
	s, dir := newTestDirectory(t)
	ctx := context.Background()
	host := model.Member{ID: "h1", DisplayName: "al", IsHost: true}

	ok, err := dir.Exists(ctx, "1234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.Register(ctx, "1234", host, 30*time.Second))
	ok, err = dir.Exists(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	entry, err := dir.Get(ctx, "1234")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, host, entry.Host)
	assert.Equal(t, 30*time.Second, entry.TTL)
	created := entry.CreatedAt

	// 续期不改变创建时间
	s.FastForward(20 * time.Second)
	require.NoError(t, dir.Register(ctx, "1234", host, 30*time.Second))
	entry, err = dir.Get(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, created.UnixMilli(), entry.CreatedAt.UnixMilli())

	s.FastForward(31 * time.Second)
	ok, err = dir.Exists(ctx, "1234")
	require.NoError(t, err)
	assert.False(t, ok)

	entry, err = dir.Get(ctx, "1234")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRoomDirectoryListAndRemove(t *testing.T) {
	_, dir := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, dir.Register(ctx, "5000", model.Member{ID: "b"}, time.Minute))
	require.NoError(t, dir.Register(ctx, "1000", model.Member{ID: "a"}, time.Minute))

	entries, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1000", entries[0].Code)
	assert.Equal(t, "a", entries[0].Host.ID)
	assert.Equal(t, "5000", entries[1].Code)

	require.NoError(t, dir.Remove(ctx, "1000"))
	entries, err = dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "5000", entries[0].Code)
}

func TestGenerateRoomCodeSkipsTakenCodes(t *testing.T) {
	_, dir := newTestDirectory(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		code, err := room.GenerateRoomCode(ctx, dir)
		require.NoError(t, err)
		assert.False(t, seen[code])
		seen[code] = true
		require.NoError(t, dir.Register(ctx, code, model.Member{ID: "h"}, time.Minute))
	}
}

func TestNilClient(t *testing.T) {
	dir := &RoomDirectory{}
	_, err := dir.Exists(context.Background(), "1234")
	assert.Error(t, err)
	assert.Error(t, dir.Register(context.Background(), "1234", model.Member{ID: "h"}, time.Second))
	_, err = dir.List(context.Background())
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := &config.Config{RedisHost: s.Host(), RedisPort: s.Port()}

	require.NoError(t, ConnectRedis(cfg))
	defer CloseRedis()
	require.NoError(t, TestRedis(context.Background()))

	dir := NewRoomDirectory(nil)
	require.NoError(t, dir.Register(context.Background(), "4321", model.Member{ID: "h"}, time.Minute))
	assert.True(t, s.Exists("room:4321:info"))
}

func TestConnectRedisFails(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := &config.Config{RedisHost: s.Host(), RedisPort: s.Port()}
	s.Close()

	assert.Error(t, ConnectRedis(cfg))
	assert.Error(t, TestRedis(context.Background()))
}
