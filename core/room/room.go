package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SyncBeat/core/driver"
	"SyncBeat/core/protocol"
	"SyncBeat/core/resolver"
	"SyncBeat/core/transport"
	"SyncBeat/logger"
	"SyncBeat/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultHostBroadcastInterval = 2 * time.Second
	DefaultDriftCheckInterval    = time.Second
	DefaultJoinDelay             = 500 * time.Millisecond
	DefaultDriftThreshold        = 2.0

	sendTimeout      = 2 * time.Second
	directoryTimeout = 2 * time.Second
)

// Options 房间依赖与时序参数，零值字段使用默认值
type Options struct {
	Transport transport.Transport
	Driver    driver.Driver
	Directory Directory // 可选
	Clock     func() time.Time

	HostBroadcastInterval time.Duration
	DriftCheckInterval    time.Duration
	JoinDelay             time.Duration
	DriftThreshold        float64

	// OnChange 状态变化后在事件循环中回调，不可阻塞
	OnChange func(model.RoomSnapshot)
}

func (o *Options) withDefaults() {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.HostBroadcastInterval <= 0 {
		o.HostBroadcastInterval = DefaultHostBroadcastInterval
	}
	if o.DriftCheckInterval <= 0 {
		o.DriftCheckInterval = DefaultDriftCheckInterval
	}
	if o.JoinDelay < 0 {
		o.JoinDelay = 0
	}
	if o.DriftThreshold <= 0 {
		o.DriftThreshold = DefaultDriftThreshold
	}
}

// Room 一个进程内的房间会话。
// 入站消息、定时任务、播放器通知和外部调用都被串行到同一个事件循环 goroutine。
type Room struct {
	code    string
	self    model.Member
	opts    Options
	log     *zap.Logger
	state   *state
	engine  Engine
	driver  *driver.Guard
	channel transport.Channel
	sched   *scheduler

	loadedTrackID string
	notified      uint64

	calls        chan func()
	driverEvents chan driver.State
	quit         chan struct{}
	done         chan struct{}
	leaveOnce    sync.Once
}

// Create 以房主身份创建房间
func Create(ctx context.Context, displayName string, opts Options) (*Room, error) {
	code, err := GenerateRoomCode(ctx, opts.Directory)
	if err != nil {
		return nil, err
	}
	self := model.Member{ID: uuid.NewString(), DisplayName: displayName, IsHost: true}
	r, err := open(ctx, code, self, opts)
	if err != nil {
		return nil, err
	}

	if opts.Directory != nil {
		if err := opts.Directory.Register(ctx, code, self, DirectoryTTL); err != nil {
			r.log.Warn("register room code failed", logger.ErrorField(err))
		}
	}

	r.start()
	r.log.Info("room created", logger.String("name", displayName))
	return r, nil
}

// Join 以听众身份加入房间；JOIN 与 REQUEST_SYNC 在 JoinDelay 之后发出
func Join(ctx context.Context, code, displayName string, opts Options) (*Room, error) {
	if code == "" {
		return nil, fmt.Errorf("empty room code")
	}
	self := model.Member{ID: uuid.NewString(), DisplayName: displayName}
	r, err := open(ctx, code, self, opts)
	if err != nil {
		return nil, err
	}
	r.start()
	r.log.Info("room joined", logger.String("name", displayName))
	return r, nil
}

func open(ctx context.Context, code string, self model.Member, opts Options) (*Room, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("room %s: %w", code, transport.ErrNotConnected)
	}
	if opts.Driver == nil {
		opts.Driver = &driver.LinkOut{}
	}
	opts.withDefaults()

	log := logger.Named("room", logger.String("room", code), logger.String("member", self.ID))

	channel, err := opts.Transport.Join(ctx, code, self.ID)
	if err != nil {
		return nil, fmt.Errorf("join channel for room %s: %w", code, err)
	}

	r := &Room{
		code:         code,
		self:         self,
		opts:         opts,
		log:          log,
		state:        newState(self, opts.Clock()),
		driver:       driver.NewGuard(opts.Driver, log),
		channel:      channel,
		calls:        make(chan func()),
		driverEvents: make(chan driver.State, 16),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	if self.IsHost {
		r.engine = newHost(r)
	} else {
		r.engine = newListener(r)
	}

	opts.Driver.OnStateChange(r.enqueueDriverState)
	return r, nil
}

func (r *Room) start() {
	joinDelay := time.Duration(-1)
	if !r.self.IsHost {
		joinDelay = r.opts.JoinDelay
	}
	r.sched = newScheduler(r.engine.TickInterval(), joinDelay)
	go r.run()
}

// enqueueDriverState 播放器可能在事件循环内部同步回调，不能阻塞
func (r *Room) enqueueDriverState(s driver.State) {
	select {
	case r.driverEvents <- s:
	default:
		go func() {
			select {
			case r.driverEvents <- s:
			case <-r.done:
			}
		}()
	}
}

func (r *Room) run() {
	defer close(r.done)

	msgs := r.channel.Messages()
	for {
		select {
		case data, ok := <-msgs:
			if !ok {
				r.log.Warn("transport channel closed")
				msgs = nil
				continue
			}
			r.handleFrame(data)

		case fn := <-r.calls:
			fn()

		case s := <-r.driverEvents:
			r.engine.OnDriverState(s)

		case <-r.sched.tick():
			r.engine.OnTick()

		case <-r.sched.join():
			r.sched.joinFired()
			r.announce()

		case <-r.quit:
			r.teardown()
			return
		}
		r.notify()
	}
}

// handleFrame 解码并按消息类型分派；格式错误或未知类型直接忽略
func (r *Room) handleFrame(data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			r.log.Debug("ignoring unknown message type", logger.ErrorField(err))
		} else {
			r.log.Warn("ignoring malformed message", logger.ErrorField(err))
		}
		return
	}
	if in.SenderID == r.self.ID {
		return
	}
	r.dispatch(in)
}

func (r *Room) dispatch(in protocol.Inbound) {
	switch m := in.Message.(type) {
	case protocol.Join:
		r.engine.OnJoin(in.SenderID, m.Member)
	case protocol.Leave:
		if r.state.removeMember(in.SenderID) {
			r.log.Info("member left", logger.String("from", in.SenderID))
		}
	case protocol.UpdateQueue:
		r.state.setQueue(m.Queue)
		if m.Members != nil {
			r.state.setMembers(m.Members)
		}
		r.engine.OnQueueReplaced()
	case protocol.SyncPlayback:
		r.engine.OnSyncPlayback(in.SenderID, m.Cursor)
	case protocol.RequestSync:
		r.engine.OnRequestSync(in.SenderID)
	default:
		r.log.Warn("unhandled message", logger.String("type", string(in.Message.Type())))
	}
}

// announce 加入延迟到期：先宣告自己，再请求全量状态
func (r *Room) announce() {
	r.send(protocol.Join{Member: r.self})
	r.send(protocol.RequestSync{})
}

// send 发后即忘
func (r *Room) send(msg protocol.Message) {
	if r.channel == nil {
		r.log.Warn("attempted to send without a room channel",
			logger.String("type", string(msg.Type())),
			logger.ErrorField(transport.ErrNotConnected))
		return
	}
	data, err := protocol.Encode(r.self.ID, msg)
	if err != nil {
		r.log.Error("encode message failed", logger.ErrorField(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := r.channel.Publish(ctx, data); err != nil {
		r.log.Warn("publish failed", logger.String("type", string(msg.Type())), logger.ErrorField(err))
	}
}

func (r *Room) now() time.Time { return r.opts.Clock() }

// ensureLoaded 保证播放器加载了游标指向的曲目，返回是否已加载
func (r *Room) ensureLoaded() bool {
	id := r.state.cursor.TrackID()
	if id == "" {
		return false
	}
	if r.loadedTrackID == id {
		return true
	}
	t, ok := r.state.queue.Find(id)
	if !ok {
		return false
	}
	if !r.driver.Load(t) {
		return false
	}
	r.loadedTrackID = id
	r.log.Debug("track loaded", logger.String("track", id), logger.String("platform", string(t.Platform)))
	return true
}

func (r *Room) refreshDirectory() {
	dir := r.opts.Directory
	if dir == nil {
		return
	}
	code, self := r.code, r.self
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
		defer cancel()
		if err := dir.Register(ctx, code, self, DirectoryTTL); err != nil {
			r.log.Debug("refresh room code failed", logger.ErrorField(err))
		}
	}()
}

func (r *Room) notify() {
	if r.opts.OnChange == nil || r.state.version == r.notified {
		return
	}
	r.notified = r.state.version
	r.opts.OnChange(r.state.snapshot(r.code, r.self))
}

// teardown 离开房间：尽力广播 LEAVE，停止定时任务，关闭订阅，重置本地状态
func (r *Room) teardown() {
	r.send(protocol.Leave{})
	r.sched.stop()

	if err := r.channel.Close(); err != nil {
		r.log.Warn("close channel failed", logger.ErrorField(err))
	}
	r.channel = nil

	if r.self.IsHost && r.opts.Directory != nil {
		ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
		if err := r.opts.Directory.Remove(ctx, r.code); err != nil {
			r.log.Warn("remove room code failed", logger.ErrorField(err))
		}
		cancel()
	}

	r.driver.Pause()
	r.loadedTrackID = ""
	r.state.reset(r.now())
	r.log.Info("room left")
}

// exec 把 fn 投递到事件循环并等待执行完成；ctx 只约束投递
func (r *Room) exec(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}

	select {
	case r.calls <- call:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// 已投递的 fn 一定会执行，等它结束再返回
	<-finished
	return nil
}

// ========== 对外接口 ==========

// Code 房间码
func (r *Room) Code() string { return r.code }

// Self 本地成员
func (r *Room) Self() model.Member { return r.self }

// Role 本地角色
func (r *Room) Role() Role { return r.engine.Role() }

// Done 事件循环退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// Snapshot 当前本地副本
func (r *Room) Snapshot(ctx context.Context) (model.RoomSnapshot, error) {
	var snap model.RoomSnapshot
	err := r.exec(ctx, func() { snap = r.state.snapshot(r.code, r.self) })
	return snap, err
}

// AddTrack 解析 URL 并追加到队列末尾，广播全量队列
func (r *Room) AddTrack(ctx context.Context, rawURL string) (model.Track, error) {
	track := resolver.NewTrack(rawURL, r.self.DisplayName)
	err := r.exec(ctx, func() {
		wasEmpty := len(r.state.queue) == 0
		r.state.setQueue(r.state.queue.Append(track))
		r.engine.OnTrackAdded(track, wasEmpty)
		r.send(protocol.UpdateQueue{Queue: r.state.queue.Clone()})
	})
	return track, err
}

// RemoveTrack 房主或曲目添加者可以移除
func (r *Room) RemoveTrack(ctx context.Context, trackID string) error {
	var opErr error
	err := r.exec(ctx, func() {
		t, ok := r.state.queue.Find(trackID)
		if !ok {
			opErr = ErrTrackNotFound
			return
		}
		if !r.self.IsHost && t.AddedBy != r.self.DisplayName {
			opErr = ErrNotPermitted
			return
		}
		r.state.setQueue(r.state.queue.Without(trackID))
		r.send(protocol.UpdateQueue{Queue: r.state.queue.Clone()})
	})
	if err != nil {
		return err
	}
	return opErr
}

// TogglePlay 仅房主有效；听众调用不改变任何状态
func (r *Room) TogglePlay(ctx context.Context) error {
	return r.call(ctx, r.engine.TogglePlay)
}

// NextTrack 仅房主有效
func (r *Room) NextTrack(ctx context.Context) error {
	return r.call(ctx, r.engine.NextTrack)
}

// UpdatePlayback 仅房主有效
func (r *Room) UpdatePlayback(ctx context.Context, isPlaying bool, position float64, trackID string) error {
	return r.call(ctx, func() error { return r.engine.UpdatePlayback(isPlaying, position, trackID) })
}

// RequestSync 怀疑本地状态过期时随时可以调用
func (r *Room) RequestSync(ctx context.Context) error {
	return r.exec(ctx, func() { r.send(protocol.RequestSync{}) })
}

// Leave 幂等；返回时事件循环已退出
func (r *Room) Leave(ctx context.Context) error {
	r.leaveOnce.Do(func() { close(r.quit) })
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) call(ctx context.Context, fn func() error) error {
	var opErr error
	if err := r.exec(ctx, func() { opErr = fn() }); err != nil {
		return err
	}
	return opErr
}
