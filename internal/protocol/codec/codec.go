package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

// Format 线路编码格式
type Format string

const (
	FormatJSON     Format = "json"     // 文本帧，{"type":..., "payload":...}
	FormatProtobuf Format = "protobuf" // 二进制帧，structpb.Struct 包装同样的信封
)

// ErrEmptyType 消息缺少 type 字段
var ErrEmptyType = errors.New("message type is empty")

// ParseFormat 解析格式名，空字符串视为 JSON
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatProtobuf:
		return FormatProtobuf, nil
	}
	return "", fmt.Errorf("unknown wire format %q", s)
}

// IsBinary 是否使用二进制帧
func (f Format) IsBinary() bool {
	return f == FormatProtobuf
}

// NewMessage 创建一个新消息，payload 以 JSON 保存
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	msg := GetMessage()
	msg.Type = msgType

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 按指定格式编码消息
func Encode(m *protocol.Message, f Format) ([]byte, error) {
	if f == FormatProtobuf {
		return encodeProto(m)
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	return append([]byte(nil), bytes.TrimRight(buf.Bytes(), "\n")...), nil
}

// Decode 按指定格式解码消息
// 注意: 使用完毕后可调用 PutMessage 归还对象到池
func Decode(data []byte, f Format) (*protocol.Message, error) {
	if f == FormatProtobuf {
		return decodeProto(data)
	}

	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrEmptyType
	}
	return msg, nil
}

func encodeProto(m *protocol.Message) ([]byte, error) {
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(m.Type)),
	}}

	if len(m.Payload) > 0 {
		var v any
		if err := json.Unmarshal(m.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		pv, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("convert payload: %w", err)
		}
		st.Fields["payload"] = pv
	}
	return proto.Marshal(st)
}

func decodeProto(data []byte) (*protocol.Message, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, err
	}

	msgType := st.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, ErrEmptyType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)
	if pv, ok := st.GetFields()["payload"]; ok {
		payload, err := json.Marshal(pv.AsInterface())
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = payload
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("%s: empty payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return NewErrorMessageWithText(code, protocol.ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
	return msg
}
