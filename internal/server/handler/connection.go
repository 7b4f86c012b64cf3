package handler

import (
	"log"
	"time"

	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

// onConnect 注册连接并推送完整快照
func (h *Handler) onConnect(client types.ClientInterface) {
	if !h.registry.Register(client) {
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgWelcome, h.session.Snapshot()))
	log.Printf("🔗 连接 %s 已加入，当前在线: %d", client.GetID(), h.registry.Count())
}

// onDisconnect 注销连接并更新会话，重复断开是空操作
func (h *Handler) onDisconnect(client types.ClientInterface) {
	if !h.registry.Unregister(client) {
		return
	}

	res := h.session.Leave(client.GetID())
	switch {
	case res.WasHost:
		log.Printf("🏁 主持人 %s 离开，游戏结束", res.Participant.Name)
		h.registry.Broadcast(codec.MustNewMessage(protocol.MsgEnd, protocol.EndPayload{
			GameName: session.GameOverName,
		}))
	case res.Removed:
		log.Printf("👋 玩家 %s 离开", res.Participant.Name)
		h.registry.Broadcast(codec.MustNewMessage(protocol.MsgPlayers, h.session.Players()))
	}
	log.Printf("🔌 连接 %s 已断开，当前在线: %d", client.GetID(), h.registry.Count())
}

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		return
	}

	// 立即回复 pong
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}
