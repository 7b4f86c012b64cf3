package client

import (
	"time"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
)

// --- 便捷方法 ---

// Join 以玩家身份加入
func (c *Client) Join(name string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoin, protocol.JoinPayload{
		PlayerName: name,
	}))
}

// Start 以主持人身份开局
func (c *Client) Start(gameName, host string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgStart, protocol.StartPayload{
		GameName: gameName,
		Host:     host,
	}))
}

// Ask 出题，题目的额外字段原样发送
func (c *Client) Ask(q protocol.Question) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgAsk, q))
}

// Answer 作答
func (c *Client) Answer(player, answer string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgAnswer, protocol.AnswerPayload{
		Player: player,
		Answer: answer,
	}))
}

// GameOver 广播结束，附带最终积分
func (c *Client) GameOver(gameName string, scores map[string]int) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{
		GameName: gameName,
		Score:    scores,
	}))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}
