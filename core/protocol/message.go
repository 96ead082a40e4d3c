package protocol

import (
	"encoding/json"

	"SyncBeat/model"
)

// MessageType 消息类型
type MessageType string

const (
	TypeJoin         MessageType = "JOIN"          // 新成员宣告加入（成员 -> 房主）
	TypeLeave        MessageType = "LEAVE"         // 成员离开（尽力而为）
	TypeUpdateQueue  MessageType = "UPDATE_QUEUE"  // 全量队列（可附带成员列表）
	TypeSyncPlayback MessageType = "SYNC_PLAYBACK" // 播放游标（房主 -> 听众）
	TypeRequestSync  MessageType = "REQUEST_SYNC"  // 请求全量状态（成员 -> 房主）
)

// Envelope 线上消息结构，所有字段必填
type Envelope struct {
	Type     MessageType     `json:"type" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
	SenderID string          `json:"senderId" validate:"required"`
}

// Message 五种消息的封闭和类型，只能由本包实现
type Message interface {
	Type() MessageType
	payload() any
}

// Join 负载就是成员本身
type Join struct {
	Member model.Member
}

// Leave 负载为空对象
type Leave struct{}

// UpdateQueue 全量队列；Members 仅在房主响应加入时携带
type UpdateQueue struct {
	Queue   model.Queue    `json:"queue" validate:"required,dive"`
	Members []model.Member `json:"members,omitempty" validate:"omitempty,dive"`
}

// SyncPlayback 负载就是游标本身
type SyncPlayback struct {
	Cursor model.PlaybackCursor
}

// RequestSync 负载为空对象
type RequestSync struct{}

func (Join) Type() MessageType         { return TypeJoin }
func (Leave) Type() MessageType        { return TypeLeave }
func (UpdateQueue) Type() MessageType  { return TypeUpdateQueue }
func (SyncPlayback) Type() MessageType { return TypeSyncPlayback }
func (RequestSync) Type() MessageType  { return TypeRequestSync }

func (m Join) payload() any         { return m.Member }
func (Leave) payload() any          { return struct{}{} }
func (m UpdateQueue) payload() any  { return m }
func (m SyncPlayback) payload() any { return m.Cursor }
func (RequestSync) payload() any    { return struct{}{} }

// Inbound 解码后的入站消息
type Inbound struct {
	SenderID string
	Message  Message
}
