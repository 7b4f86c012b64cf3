package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型（即事件名）
type MessageType string

// 客户端 → 服务端 消息类型
const (
	MsgJoin     MessageType = "join"     // 玩家加入
	MsgStart    MessageType = "start"    // 主持人开局
	MsgAsk      MessageType = "ask"      // 主持人出题
	MsgAnswer   MessageType = "answer"   // 玩家作答
	MsgGameOver MessageType = "gameover" // 结束游戏（透传）
	MsgPing     MessageType = "ping"     // 心跳 ping
)

// 服务端 → 客户端 消息类型
const (
	MsgWelcome MessageType = "welcome" // 连接后推送的完整快照
	MsgJoined  MessageType = "joined"  // 加入成功（仅发送者）
	MsgPlayers MessageType = "players" // 玩家列表
	MsgScore   MessageType = "score"   // 积分表
	MsgResults MessageType = "results" // 作答结果（仅发送者）
	MsgEnd     MessageType = "end"     // 主持人离开，游戏结束
	MsgPong    MessageType = "pong"    // 心跳 pong

	// 错误
	MsgError MessageType = "error"
)

// MsgStart、MsgAsk、MsgGameOver 同时也是广播事件名。

// IsInbound 判断是否为客户端可发送的事件
func IsInbound(t MessageType) bool {
	switch t {
	case MsgJoin, MsgStart, MsgAsk, MsgAnswer, MsgGameOver, MsgPing:
		return true
	}
	return false
}
