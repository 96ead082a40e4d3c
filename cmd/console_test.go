package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"SyncBeat/cache"
	"SyncBeat/core/driver"
	"SyncBeat/core/room"
	"SyncBeat/core/transport"
	"SyncBeat/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(bus *transport.Bus, player driver.Driver) room.Options {
	return room.Options{
		Transport:             bus,
		Driver:                player,
		HostBroadcastInterval: time.Hour,
		DriftCheckInterval:    time.Hour,
		JoinDelay:             time.Hour,
	}
}

func TestHostConsole(t *testing.T) {
	ctx := context.Background()
	player := driver.NewAdapter(driver.NewSim())
	r, err := room.Create(ctx, "al", testOptions(transport.NewBus(), player))
	require.NoError(t, err)

	in := strings.NewReader(strings.Join([]string{
		"add https://youtu.be/dQw4w9WgXcQ",
		"play",
		"status",
		"queue",
		"members",
		"seek abc",
		"bogus",
		"leave",
		"add https://youtu.be/never-reached",
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, runConsole(ctx, r, player, in, &out))

	text := out.String()
	assert.Contains(t, text, "已添加 YouTube Track dQw4w9WgXcQ")
	assert.Contains(t, text, "房间 "+r.Code()+"，角色 host")
	assert.Contains(t, text, "播放中 YouTube Track dQw4w9WgXcQ")
	assert.Contains(t, text, "▶ 1. YouTube Track dQw4w9WgXcQ")
	assert.Contains(t, text, "- al [房主] (你)")
	assert.Contains(t, text, `无效的位置 "abc"`)
	assert.Contains(t, text, "未知命令")
	assert.NotContains(t, text, "never-reached")

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("console did not leave the room")
	}
}

func TestListenerConsoleRejectsControls(t *testing.T) {
	ctx := context.Background()
	r, err := room.Join(ctx, "1234", "bo", testOptions(transport.NewBus(), nil))
	require.NoError(t, err)

	in := strings.NewReader("play\nnext\nseek 10\nstatus\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(ctx, r, nil, in, &out))

	text := out.String()
	assert.Contains(t, text, room.ErrNotPermitted.Error())
	assert.Contains(t, text, room.ErrNothingToPlay.Error())
	assert.Contains(t, text, "角色 listener")
	assert.Contains(t, text, "当前没有播放")
}

func TestConsoleShowsLinkOut(t *testing.T) {
	ctx := context.Background()
	player := driver.NewAdapter(driver.NewSim())
	r, err := room.Create(ctx, "al", testOptions(transport.NewBus(), player))
	require.NoError(t, err)

	link := "https://open.spotify.com/track/abc"
	in := strings.NewReader("add " + link + "\nstatus\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(ctx, r, player, in, &out))

	assert.Contains(t, out.String(), "请打开: "+link)
}

func TestConsoleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, err := room.Create(ctx, "al", testOptions(transport.NewBus(), nil))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runConsole(ctx, r, nil, strings.NewReader(""), &bytes.Buffer{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
}

func TestListRooms(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	dir := cache.NewRoomDirectory(client)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, listRooms(ctx, dir, &out))
	assert.Contains(t, out.String(), "没有活动房间")

	require.NoError(t, dir.Register(ctx, "4321", model.Member{ID: "h", DisplayName: "al", IsHost: true}, time.Minute))
	out.Reset()
	require.NoError(t, listRooms(ctx, dir, &out))
	assert.Contains(t, out.String(), "4321  房主 al")
}
