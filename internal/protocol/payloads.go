package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldError 必填字段缺失或为空
type FieldError struct {
	Event MessageType
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Event, e.Field)
}

func required(event MessageType, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Event: event, Field: field}
	}
	return nil
}

// --- 客户端请求 Payloads ---

// JoinPayload 玩家加入
type JoinPayload struct {
	PlayerName string `json:"playerName"`
}

func (p *JoinPayload) Validate() error {
	return required(MsgJoin, "playerName", p.PlayerName)
}

// StartPayload 主持人开局
type StartPayload struct {
	GameName string `json:"gameName"`
	Host     string `json:"host"`
}

func (p *StartPayload) Validate() error {
	if err := required(MsgStart, "gameName", p.GameName); err != nil {
		return err
	}
	return required(MsgStart, "host", p.Host)
}

// AnswerPayload 玩家作答
type AnswerPayload struct {
	Player   string       `json:"player"`
	Answer   string       `json:"answer"`
	Question *QuestionRef `json:"question,omitempty"` // 客户端回传的题目，仅作参考
}

// QuestionRef 作答时附带的题目引用
type QuestionRef struct {
	Ans string `json:"ans"`
}

func (p *AnswerPayload) Validate() error {
	return required(MsgAnswer, "answer", p.Answer)
}

// GameOverPayload 主持人结束游戏。服务端不解析，原样转发给所有人
type GameOverPayload struct {
	GameName string         `json:"gameName,omitempty"`
	Score    map[string]int `json:"score,omitempty"`
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// Question 题目。除 q/ans 外的字段原样保留并透传。
type Question struct {
	Prompt string         `json:"q"`
	Answer string         `json:"ans"`
	Extra  map[string]any `json:"-"`
}

func (q *Question) Validate() error {
	if err := required(MsgAsk, "q", q.Prompt); err != nil {
		return err
	}
	return required(MsgAsk, "ans", q.Answer)
}

// MarshalJSON 将 Extra 与 q/ans 展平到同一个对象
func (q Question) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Extra)+2)
	for k, v := range q.Extra {
		out[k] = v
	}
	out["q"] = q.Prompt
	out["ans"] = q.Answer
	return json.Marshal(out)
}

// UnmarshalJSON 读取 q/ans，其余字段放入 Extra
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Prompt, _ = raw["q"].(string)
	q.Answer, _ = raw["ans"].(string)
	delete(raw, "q")
	delete(raw, "ans")
	q.Extra = nil
	if len(raw) > 0 {
		q.Extra = raw
	}
	return nil
}

// --- 服务端响应 Payloads ---

// ParticipantInfo 参与者信息
type ParticipantInfo struct {
	ID         string `json:"id"`
	PlayerName string `json:"playerName"`
	Type       string `json:"type"` // host / player
}

// WelcomePayload 新连接收到的完整会话快照
type WelcomePayload struct {
	GameName        string            `json:"gameName"`
	Phase           string            `json:"phase"`
	Players         []ParticipantInfo `json:"players"`
	Host            string            `json:"host"`
	Questions       []Question        `json:"questions"`
	CurrentQuestion *Question         `json:"currentQuestion"`
	Results         *bool             `json:"results"`
	Score           map[string]int    `json:"score"`
}

// StartedPayload 开局广播
type StartedPayload struct {
	GameName string `json:"gameName"`
	Host     string `json:"host"`
}

// EndPayload 主持人离开后的结束广播
type EndPayload struct {
	GameName        string    `json:"gameName"`
	Host            string    `json:"host"`
	CurrentQuestion *Question `json:"currentQuestion"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
