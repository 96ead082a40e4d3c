package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SyncBeat/cache"
	"SyncBeat/config"
	"SyncBeat/core/driver"
	"SyncBeat/core/room"
	"SyncBeat/core/transport"
	"SyncBeat/logger"
	"SyncBeat/model"
)

const (
	envFile        = ".env"
	simCheckPeriod = 250 * time.Millisecond
)

var simDuration float64

// session 一个命令行房间会话依赖的资源
type session struct {
	transport transport.Transport
	directory room.Directory
	player    *driver.Adapter
	closers   []func()
}

// openSession 按配置选择传输和房间目录，并启动模拟播放器
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	s := &session{}

	switch cfg.Transport {
	case config.TransportMemory:
		// 只在同一进程内可见，用于演示和测试
		s.transport = transport.NewBus()
		s.directory = room.NewMemoryDirectory()
	case config.TransportRedis:
		if err := cache.ConnectRedis(cfg); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = cache.CloseRedis() })
		s.transport = transport.NewRedisTransport(cache.RedisClient)
		s.directory = cache.NewRoomDirectory(cache.RedisClient)
	case config.TransportRelay:
		s.transport = transport.NewRelayTransport(cfg.RelayURL)
	case config.TransportP2P:
		s.transport = transport.NewP2PTransport(cfg.P2PPort)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	sim := driver.NewSim(driver.WithDefaultDuration(simDuration))
	simCtx, cancel := context.WithCancel(ctx)
	go sim.Run(simCtx, simCheckPeriod)
	s.closers = append(s.closers, cancel)
	s.player = driver.NewAdapter(sim)

	watchCtx, stopWatch := context.WithCancel(ctx)
	s.closers = append(s.closers, stopWatch)
	if err := config.Watch(watchCtx, envFile, func(c *config.Config) {
		level := logger.LogLevel(strings.ToLower(c.LogLevel))
		if level == logger.GetLevel() {
			return
		}
		logger.SetLevel(level)
		logger.Info("config reloaded", logger.String("logLevel", c.LogLevel))
	}); err != nil {
		logger.Debug("config watch disabled", logger.ErrorField(err))
	}

	logger.Info("session opened",
		logger.String("transport", cfg.Transport),
		logger.Duration("hostBroadcast", cfg.HostBroadcastInterval),
		logger.Duration("driftCheck", cfg.DriftCheckInterval))
	return s, nil
}

func (s *session) options(cfg *config.Config) room.Options {
	return room.Options{
		Transport:             s.transport,
		Driver:                s.player,
		Directory:             s.directory,
		HostBroadcastInterval: cfg.HostBroadcastInterval,
		DriftCheckInterval:    cfg.DriftCheckInterval,
		JoinDelay:             cfg.JoinDelay,
		DriftThreshold:        cfg.DriftThreshold,
		OnChange: func(snap model.RoomSnapshot) {
			logger.Debug("room state changed",
				logger.String("room", snap.Code),
				logger.Int("queue", len(snap.Queue)),
				logger.Int("members", len(snap.Members)),
				logger.Bool("playing", snap.Cursor.IsPlaying))
		},
	}
}

// Close 按打开的逆序释放
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&simDuration, "sim-duration", 0,
		"模拟播放器的曲目时长（秒），0 表示不会自动结束")
}
