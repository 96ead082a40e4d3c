package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpectedPosition(t *testing.T) {
	t0 := time.UnixMilli(1_700_000_000_000)

	playing := PlaybackCursor{IsPlaying: true, PositionSeconds: 10, ObservedAt: t0.UnixMilli()}
	assert.InDelta(t, 11.0, playing.ExpectedPosition(t0.Add(time.Second)), 1e-9)
	assert.InDelta(t, 10.0, playing.ExpectedPosition(t0), 1e-9)

	paused := playing
	paused.IsPlaying = false
	assert.Equal(t, 10.0, paused.ExpectedPosition(t0.Add(time.Hour)))
}

func TestCursorWithTrack(t *testing.T) {
	c := InitialCursor(time.Now())
	assert.Equal(t, "", c.TrackID())

	c2 := c.WithTrack("a")
	assert.Equal(t, "a", c2.TrackID())
	assert.Nil(t, c.CurrentTrackID, "receiver cursor untouched")

	assert.Nil(t, c2.WithTrack("").CurrentTrackID)
}

func TestCursorEqual(t *testing.T) {
	a := PlaybackCursor{IsPlaying: true, PositionSeconds: 3, ObservedAt: 5}.WithTrack("x")
	b := PlaybackCursor{IsPlaying: true, PositionSeconds: 3, ObservedAt: 5}.WithTrack("x")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.WithTrack("")))
	assert.False(t, a.Equal(b.WithTrack("y")))
}

func TestQueueOps(t *testing.T) {
	a := Track{ID: "a"}
	b := Track{ID: "b"}
	q := Queue{}.Append(a).Append(b).Append(a)

	assert.Len(t, q, 3, "duplicates allowed")
	assert.Equal(t, 1, q.IndexOf("b"))
	assert.Equal(t, -1, q.IndexOf("z"))

	next, ok := q.After("b")
	assert.True(t, ok)
	assert.Equal(t, "a", next.ID)

	_, ok = Queue{a}.After("a")
	assert.False(t, ok)

	first, ok := q.After("missing")
	assert.True(t, ok)
	assert.Equal(t, "a", first.ID)

	assert.Equal(t, Queue{b}, q.Without("a"))
	assert.Len(t, q, 3, "Without must not mutate")
}

func TestSnapshotCurrentTrack(t *testing.T) {
	s := RoomSnapshot{Queue: Queue{{ID: "a", Title: "A"}}}
	_, ok := s.CurrentTrack()
	assert.False(t, ok)

	s.Cursor = s.Cursor.WithTrack("a")
	tr, ok := s.CurrentTrack()
	assert.True(t, ok)
	assert.Equal(t, "A", tr.Title)
}
