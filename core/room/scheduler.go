package room

import "time"

// scheduler 房间持有的定时任务：一个周期 ticker 和一个可选的一次性加入延迟。
// 只在事件循环中访问，离开房间时 stop 全部取消。
type scheduler struct {
	ticker    *time.Ticker
	joinTimer *time.Timer
}

// newScheduler joinDelay 为负数表示不需要加入延迟
func newScheduler(every, joinDelay time.Duration) *scheduler {
	s := &scheduler{ticker: time.NewTicker(every)}
	if joinDelay >= 0 {
		s.joinTimer = time.NewTimer(joinDelay)
	}
	return s
}

func (s *scheduler) tick() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C
}

func (s *scheduler) join() <-chan time.Time {
	if s.joinTimer == nil {
		return nil
	}
	return s.joinTimer.C
}

func (s *scheduler) joinFired() {
	s.joinTimer = nil
}

func (s *scheduler) stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.joinTimer != nil {
		s.joinTimer.Stop()
		s.joinTimer = nil
	}
}
