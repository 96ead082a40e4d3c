package room

import (
	"time"

	"SyncBeat/model"
)

// state 每个进程独立持有的房间副本，只在事件循环里读写
type state struct {
	members []model.Member
	queue   model.Queue
	cursor  model.PlaybackCursor
	version uint64
}

func newState(self model.Member, now time.Time) *state {
	return &state{
		members: []model.Member{self},
		queue:   model.Queue{},
		cursor:  model.InitialCursor(now),
	}
}

func (s *state) touch() { s.version++ }

// upsertMember 已存在时不做任何事，返回是否新增
func (s *state) upsertMember(m model.Member) bool {
	for _, existing := range s.members {
		if existing.ID == m.ID {
			return false
		}
	}
	s.members = append(s.members, m)
	s.touch()
	return true
}

func (s *state) removeMember(id string) bool {
	for i, m := range s.members {
		if m.ID == id {
			s.members = append(s.members[:i:i], s.members[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

func (s *state) setMembers(members []model.Member) {
	s.members = append([]model.Member(nil), members...)
	s.touch()
}

func (s *state) setQueue(q model.Queue) {
	s.queue = q.Clone()
	s.touch()
}

func (s *state) setCursor(c model.PlaybackCursor) {
	s.cursor = c
	s.touch()
}

func (s *state) reset(now time.Time) {
	s.members = nil
	s.queue = model.Queue{}
	s.cursor = model.InitialCursor(now)
	s.touch()
}

func (s *state) snapshot(code string, self model.Member) model.RoomSnapshot {
	return model.RoomSnapshot{
		Code:    code,
		Self:    self,
		Members: append([]model.Member(nil), s.members...),
		Queue:   s.queue.Clone(),
		Cursor:  s.cursor,
	}
}
