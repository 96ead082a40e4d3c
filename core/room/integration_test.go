package room

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/core/protocol"
	"SyncBeat/core/transport"
	"SyncBeat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(bus *transport.Bus, d driver.Driver) Options {
	return Options{
		Transport:             bus,
		Driver:                d,
		HostBroadcastInterval: 50 * time.Millisecond,
		DriftCheckInterval:    20 * time.Millisecond,
		JoinDelay:             10 * time.Millisecond,
	}
}

func queueIDs(q model.Queue) []string {
	ids := make([]string, 0, len(q))
	for _, t := range q {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestLateJoinerCatchesUp(t *testing.T) {
	bus := transport.NewBus()
	ctx := context.Background()

	host, err := Create(ctx, "al", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	defer host.Leave(ctx)

	a, err := host.AddTrack(ctx, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	b, err := host.AddTrack(ctx, "https://youtu.be/bbbbbbbbbbb")
	require.NoError(t, err)
	require.NoError(t, host.UpdatePlayback(ctx, true, 30, b.ID))

	sim := driver.NewSim()
	listener, err := Join(ctx, host.Code(), "bo", fastOptions(bus, sim))
	require.NoError(t, err)
	defer listener.Leave(ctx)

	require.Eventually(t, func() bool {
		s, err := listener.Snapshot(ctx)
		if err != nil {
			return false
		}
		return assert.ObjectsAreEqual([]string{a.ID, b.ID}, queueIDs(s.Queue)) &&
			s.Cursor.TrackID() == b.ID && s.Cursor.IsPlaying && len(s.Members) == 2
	}, 2*time.Second, 10*time.Millisecond)

	hs := snap(t, host)
	ls := snap(t, listener)
	now := time.Now()
	assert.Less(t, math.Abs(hs.Cursor.ExpectedPosition(now)-ls.Cursor.ExpectedPosition(now)), DefaultDriftThreshold)

	// 听众的播放器最终在阈值内跟上
	require.Eventually(t, func() bool {
		st, _ := sim.State()
		pos, _ := sim.Position()
		expected := snap(t, listener).Cursor.ExpectedPosition(time.Now())
		return st == driver.Playing && math.Abs(pos-expected) <= DefaultDriftThreshold
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, snap(t, host).Members, 2)
}

func TestJoinSurvivesLostBootstrap(t *testing.T) {
	bus := transport.NewBus()
	ctx := context.Background()

	host, err := Create(ctx, "al", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	defer host.Leave(ctx)
	_, err = host.AddTrack(ctx, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)

	// 丢掉房主发出的前两条全量队列，JOIN 和 REQUEST_SYNC 的响应都会丢失
	var dropped atomic.Int32
	hostID := host.Self().ID
	bus.SetDropFunc(func(from, _ string, payload []byte) bool {
		if from != hostID {
			return false
		}
		in, err := protocol.Decode(payload)
		if err != nil || in.Message.Type() != protocol.TypeUpdateQueue {
			return false
		}
		return dropped.Add(1) <= 2
	})

	listener, err := Join(ctx, host.Code(), "bo", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	defer listener.Leave(ctx)

	require.Eventually(t, func() bool { return dropped.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, snap(t, listener).Queue)

	require.NoError(t, listener.RequestSync(ctx))
	require.Eventually(t, func() bool { return len(snap(t, listener).Queue) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPeriodicBroadcastRepairsLostCursor(t *testing.T) {
	bus := transport.NewBus()
	ctx := context.Background()

	// fakeDriver 不发状态通知，房主只会在更新时和周期任务里广播
	host, err := Create(ctx, "al", fastOptions(bus, newFakeDriver()))
	require.NoError(t, err)
	defer host.Leave(ctx)
	tr, err := host.AddTrack(ctx, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)

	listener, err := Join(ctx, host.Code(), "bo", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	defer listener.Leave(ctx)
	require.Eventually(t, func() bool { return len(snap(t, listener).Queue) == 1 }, 2*time.Second, 10*time.Millisecond)

	// 这次更新的即时广播丢失，靠周期广播补上
	var drop atomic.Bool
	drop.Store(true)
	bus.SetDropFunc(func(string, string, []byte) bool { return drop.Swap(false) })
	require.NoError(t, host.UpdatePlayback(ctx, true, 5, tr.ID))

	require.Eventually(t, func() bool {
		c := snap(t, listener).Cursor
		return c.IsPlaying && c.TrackID() == tr.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListenerLeaveIsSeenByHost(t *testing.T) {
	bus := transport.NewBus()
	ctx := context.Background()

	host, err := Create(ctx, "al", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	defer host.Leave(ctx)

	listener, err := Join(ctx, host.Code(), "bo", fastOptions(bus, driver.NewSim()))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(snap(t, host).Members) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, listener.Leave(ctx))
	require.Eventually(t, func() bool { return len(snap(t, host).Members) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, bus.Members(host.Code()))

	_, err = listener.Snapshot(ctx)
	assert.True(t, errors.Is(err, ErrRoomClosed))
}

type fullDirectory struct{ MemoryDirectory }

func (*fullDirectory) Exists(context.Context, string) (bool, error) { return true, nil }

func TestGenerateRoomCode(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	for i := 0; i < 20; i++ {
		code, err := GenerateRoomCode(ctx, dir)
		require.NoError(t, err)
		require.Len(t, code, 4)
		assert.GreaterOrEqual(t, code, "1000")
		assert.LessOrEqual(t, code, "9999")
		require.NoError(t, dir.Register(ctx, code, model.Member{ID: "h"}, time.Minute))
	}

	_, err := GenerateRoomCode(ctx, &fullDirectory{})
	assert.ErrorIs(t, err, ErrNoRoomCode)
}

func TestMemoryDirectoryExpires(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()
	clock := newFakeClock()
	dir.now = clock.Now

	require.NoError(t, dir.Register(ctx, "1234", model.Member{ID: "h"}, time.Second))
	ok, _ := dir.Exists(ctx, "1234")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	ok, _ = dir.Exists(ctx, "1234")
	assert.False(t, ok)
	assert.Empty(t, dir.Codes())
}
