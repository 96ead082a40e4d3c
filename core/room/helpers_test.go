package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/core/protocol"
	"SyncBeat/core/transport"
	"SyncBeat/model"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeDriver 只记录调用，不会自己发出状态通知
type fakeDriver struct {
	mu          sync.Mutex
	pos         float64
	st          driver.State
	interactive bool
	loaded      []string
	seeks       []float64
	plays       int
	pauses      int
	listeners   []func(driver.State)
}

func newFakeDriver() *fakeDriver { return &fakeDriver{interactive: true} }

func (d *fakeDriver) Position() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos, nil
}

func (d *fakeDriver) State() (driver.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st, nil
}

func (d *fakeDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	d.st = driver.Playing
	return nil
}

func (d *fakeDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	d.st = driver.Paused
	return nil
}

func (d *fakeDriver) Seek(t float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, t)
	d.pos = t
	return nil
}

func (d *fakeDriver) Load(t model.Track) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = append(d.loaded, t.ID)
	d.pos = 0
	d.st = driver.Unstarted
	return nil
}

func (d *fakeDriver) OnStateChange(fn func(driver.State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *fakeDriver) Interactive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interactive
}

func (d *fakeDriver) set(pos float64, st driver.State) {
	d.mu.Lock()
	d.pos, d.st = pos, st
	d.mu.Unlock()
}

func (d *fakeDriver) emit(s driver.State) {
	d.mu.Lock()
	ls := append([]func(driver.State){}, d.listeners...)
	d.mu.Unlock()
	for _, l := range ls {
		l(s)
	}
}

func (d *fakeDriver) seekCalls() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.seeks...)
}

func (d *fakeDriver) counts() (plays, pauses int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays, d.pauses
}

type harness struct {
	t     *testing.T
	bus   *transport.Bus
	clock *fakeClock
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, bus: transport.NewBus(), clock: newFakeClock()}
}

// opts 定时任务默认设得很长，单元测试里手动驱动
func (h *harness) opts(d driver.Driver) Options {
	return Options{
		Transport:             h.bus,
		Driver:                d,
		Clock:                 h.clock.Now,
		HostBroadcastInterval: time.Hour,
		DriftCheckInterval:    time.Hour,
		JoinDelay:             time.Hour,
	}
}

func (h *harness) host(d driver.Driver) *Room {
	h.t.Helper()
	r, err := Create(context.Background(), "host", h.opts(d))
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = r.Leave(context.Background()) })
	return r
}

func (h *harness) listener(code, name string, d driver.Driver) *Room {
	h.t.Helper()
	r, err := Join(context.Background(), code, name, h.opts(d))
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = r.Leave(context.Background()) })
	return r
}

// probe 旁听房间的全部广播
func (h *harness) probe(code string) transport.Channel {
	h.t.Helper()
	ch, err := h.bus.Join(context.Background(), code, "probe-"+code)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func (h *harness) publish(ch transport.Channel, sender string, msg protocol.Message) {
	h.t.Helper()
	data, err := protocol.Encode(sender, msg)
	require.NoError(h.t, err)
	require.NoError(h.t, ch.Publish(context.Background(), data))
}

func nextMsg(t *testing.T, ch transport.Channel) protocol.Inbound {
	t.Helper()
	select {
	case data := <-ch.Messages():
		in, err := protocol.Decode(data)
		require.NoError(t, err)
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return protocol.Inbound{}
	}
}

func noMsg(t *testing.T, ch transport.Channel) {
	t.Helper()
	select {
	case data := <-ch.Messages():
		t.Fatalf("unexpected broadcast %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

// inLoop 在事件循环里执行 fn
func inLoop(t *testing.T, r *Room, fn func()) {
	t.Helper()
	require.NoError(t, r.exec(context.Background(), fn))
}

func snap(t *testing.T, r *Room) model.RoomSnapshot {
	t.Helper()
	s, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	return s
}

func track(id string) model.Track {
	return model.Track{ID: id, SourceURL: "https://youtu.be/" + id, Platform: model.PlatformPrimaryVideo, AddedBy: "host"}
}
