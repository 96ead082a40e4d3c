package driver

import (
	"fmt"

	"SyncBeat/model"

	"go.uber.org/zap"
)

// Guard 在调用处吞掉驱动的错误和 panic（例如切歌过程中播放器被销毁），
// 协议状态机不受驱动故障影响。
type Guard struct {
	d   Driver
	log *zap.Logger
}

// NewGuard log 为 nil 时不输出
func NewGuard(d Driver, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{d: d, log: log}
}

func (g *Guard) call(op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Warn("driver panic suppressed", zap.String("op", op), zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		g.log.Debug("driver call failed", zap.String("op", op), zap.Error(err))
		return false
	}
	return true
}

// Position ok 为 false 表示读取失败
func (g *Guard) Position() (pos float64, ok bool) {
	ok = g.call("position", func() (err error) {
		pos, err = g.d.Position()
		return err
	})
	return pos, ok
}

func (g *Guard) State() (st State, ok bool) {
	ok = g.call("state", func() (err error) {
		st, err = g.d.State()
		return err
	})
	return st, ok
}

func (g *Guard) Play() bool              { return g.call("play", g.d.Play) }
func (g *Guard) Pause() bool             { return g.call("pause", g.d.Pause) }
func (g *Guard) Seek(t float64) bool     { return g.call("seek", func() error { return g.d.Seek(t) }) }
func (g *Guard) Load(t model.Track) bool { return g.call("load", func() error { return g.d.Load(t) }) }

func (g *Guard) Interactive() (interactive bool) {
	g.call("interactive", func() error {
		interactive = g.d.Interactive()
		return nil
	})
	return interactive
}
