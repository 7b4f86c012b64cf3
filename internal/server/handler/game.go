package handler

import (
	"log"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

// handleJoin 玩家加入
func (h *Handler) handleJoin(client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parsePayload[protocol.JoinPayload](msg)
	if err != nil {
		return err
	}

	p := h.session.Join(client.GetID(), payload.PlayerName)
	client.SendMessage(codec.MustNewMessage(protocol.MsgJoined, p.Info()))
	h.registry.Broadcast(codec.MustNewMessage(protocol.MsgPlayers, h.session.Players()))
	h.registry.Broadcast(codec.MustNewMessage(protocol.MsgScore, h.session.Scores()))

	log.Printf("🙋 玩家 %s 加入", payload.PlayerName)
	return nil
}

// handleStart 主持人开局，替换之前的主持人
func (h *Handler) handleStart(client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parsePayload[protocol.StartPayload](msg)
	if err != nil {
		return err
	}

	host := h.session.Start(client.GetID(), payload.GameName, payload.Host)
	client.SendMessage(codec.MustNewMessage(protocol.MsgJoined, host.Info()))
	h.registry.Broadcast(codec.MustNewMessage(protocol.MsgStart, protocol.StartedPayload{
		GameName: payload.GameName,
		Host:     payload.Host,
	}))

	log.Printf("🎬 问答开始: '%s'，主持人 %s", payload.GameName, payload.Host)
	return nil
}

// handleAsk 出题，题目原样广播
func (h *Handler) handleAsk(client types.ClientInterface, msg *protocol.Message) error {
	q, err := parsePayload[protocol.Question](msg)
	if err != nil {
		return err
	}

	if err := h.session.Ask(client.GetID(), *q); err != nil {
		return err
	}
	h.registry.Broadcast(codec.MustNewMessage(protocol.MsgAsk, q))

	log.Printf("❓ 出题: %s", q.Prompt)
	return nil
}

// handleAnswer 作答，结果只回给发送者，积分广播给所有人
func (h *Handler) handleAnswer(client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parsePayload[protocol.AnswerPayload](msg)
	if err != nil {
		return err
	}

	res, err := h.session.Answer(client.GetID(), payload.Player, payload.Answer)
	if err != nil {
		return err
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgResults, res.Correct))
	h.registry.Broadcast(codec.MustNewMessage(protocol.MsgScore, h.session.Scores()))

	if res.Correct {
		log.Printf("✅ %s 答对了: %s", res.Player, payload.Answer)
	} else {
		log.Printf("❌ %s 答错了: %s", res.Player, payload.Answer)
	}
	return nil
}

// handleGameOver 透传 gameover 载荷并存档本局积分
func (h *Handler) handleGameOver(client types.ClientInterface, msg *protocol.Message) error {
	h.session.End()
	h.registry.Broadcast(&protocol.Message{Type: protocol.MsgGameOver, Payload: msg.Payload})
	log.Printf("🏆 游戏结束: %s", h.session.GameName())

	h.archiveGame()
	return nil
}
