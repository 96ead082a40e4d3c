package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"SyncBeat/model"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownType 未知消息类型，接收方应忽略
	ErrUnknownType = errors.New("unknown message type")
	// ErrMalformed JSON 格式错误或负载校验失败
	ErrMalformed = errors.New("malformed message")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 校验错误里使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Encode 将消息编码为线上格式
func Encode(senderID string, msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	if senderID == "" {
		return nil, fmt.Errorf("%w: empty sender", ErrMalformed)
	}
	payload, err := json.Marshal(msg.payload())
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{Type: msg.Type(), Payload: payload, SenderID: senderID})
}

// Decode 解析线上消息
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msg, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{SenderID: env.SenderID, Message: msg}, nil
}

func decodePayload(typ MessageType, raw json.RawMessage) (Message, error) {
	switch typ {
	case TypeJoin:
		var m model.Member
		if err := unmarshalValid(raw, &m); err != nil {
			return nil, err
		}
		return Join{Member: m}, nil

	case TypeLeave:
		return Leave{}, nil

	case TypeUpdateQueue:
		var m UpdateQueue
		if err := unmarshalValid(raw, &m); err != nil {
			return nil, err
		}
		return m, nil

	case TypeSyncPlayback:
		var c model.PlaybackCursor
		if err := unmarshalValid(raw, &c); err != nil {
			return nil, err
		}
		return SyncPlayback{Cursor: c}, nil

	case TypeRequestSync:
		return RequestSync{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func unmarshalValid(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
