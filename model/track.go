package model

// Platform 曲目来源平台
type Platform string

const (
	PlatformPrimaryVideo    Platform = "PRIMARY_VIDEO"
	PlatformOtherStreamingA Platform = "OTHER_STREAMING_A"
	PlatformOtherStreamingB Platform = "OTHER_STREAMING_B"
	PlatformGeneric         Platform = "GENERIC"
)

// Embeddable 只有主视频平台有可嵌入的播放控件
func (p Platform) Embeddable() bool {
	return p == PlatformPrimaryVideo
}

// Track 队列中的一首曲目，创建后不可变
type Track struct {
	ID              string   `json:"id" validate:"required"`
	SourceURL       string   `json:"sourceUrl"`
	Platform        Platform `json:"platform"`
	Title           string   `json:"title"`
	ThumbnailRef    string   `json:"thumbnailRef"`
	AddedBy         string   `json:"addedBy"` // 添加者显示名
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
}

// Queue 有序播放队列，允许重复 URL
type Queue []Track

// IndexOf 返回曲目下标，不存在返回 -1
func (q Queue) IndexOf(trackID string) int {
	for i := range q {
		if q[i].ID == trackID {
			return i
		}
	}
	return -1
}

// Find 按 ID 查找曲目
func (q Queue) Find(trackID string) (Track, bool) {
	if i := q.IndexOf(trackID); i >= 0 {
		return q[i], true
	}
	return Track{}, false
}

// Append 返回追加后的新队列，不修改原切片
func (q Queue) Append(t Track) Queue {
	out := make(Queue, 0, len(q)+1)
	out = append(out, q...)
	return append(out, t)
}

// Without 返回移除指定曲目后的新队列
func (q Queue) Without(trackID string) Queue {
	out := make(Queue, 0, len(q))
	for _, t := range q {
		if t.ID != trackID {
			out = append(out, t)
		}
	}
	return out
}

// After 返回 trackID 之后的一首；trackID 不在队列中时从头开始
func (q Queue) After(trackID string) (Track, bool) {
	next := q.IndexOf(trackID) + 1
	if next < len(q) {
		return q[next], true
	}
	return Track{}, false
}

// Clone 深拷贝队列
func (q Queue) Clone() Queue {
	if q == nil {
		return Queue{}
	}
	out := make(Queue, len(q))
	copy(out, q)
	return out
}
