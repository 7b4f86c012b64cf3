package handler

import (
	"context"
	"errors"
	"log"

	"github.com/palemoky/bookclub-trivia/internal/apperrors"
	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/server/registry"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

// ErrStopped 事件循环已退出
var ErrStopped = errors.New("handler stopped")

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Session  *session.Session
	Registry *registry.Registry
	Archive  types.ScoreArchive // 可为 nil
}

// Handler 事件路由。所有会话读写都在 Run 所在的协程中完成。
type Handler struct {
	session  *session.Session
	registry *registry.Registry
	archive  types.ScoreArchive
	handlers map[protocol.MessageType]handlerFunc

	events chan event
	done   chan struct{}
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message) error

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventMessage
	eventQuery
)

type event struct {
	kind   eventKind
	client types.ClientInterface
	msg    *protocol.Message
	query  func(s *session.Session)
	reply  chan struct{}
}

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		session:  deps.Session,
		registry: deps.Registry,
		archive:  deps.Archive,
		events:   make(chan event, 256),
		done:     make(chan struct{}),
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化事件处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		protocol.MsgJoin:     h.handleJoin,
		protocol.MsgStart:    h.handleStart,
		protocol.MsgAsk:      h.handleAsk,
		protocol.MsgAnswer:   h.handleAnswer,
		protocol.MsgGameOver: h.handleGameOver,
	}
}

// Run 运行事件循环，直到 ctx 取消
func (h *Handler) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.process(ev)
		}
	}
}

// Connect 新连接进入（注册并推送快照）
func (h *Handler) Connect(client types.ClientInterface) {
	h.enqueue(event{kind: eventConnect, client: client})
}

// Disconnect 连接断开
func (h *Handler) Disconnect(client types.ClientInterface) {
	h.enqueue(event{kind: eventDisconnect, client: client})
}

// Handle 处理客户端消息。心跳不涉及会话，直接回复；
// 服务端事件名（welcome、score 等）在入队前拒绝。
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if !protocol.IsInbound(msg.Type) {
		log.Printf("⚠️  拒绝非客户端事件: '%s' (来自连接: %s)", msg.Type, client.GetID())
		h.sendError(client, apperrors.ErrUnknownEvent)
		return
	}
	if msg.Type == protocol.MsgPing {
		h.handlePing(client, msg)
		return
	}
	h.enqueue(event{kind: eventMessage, client: client, msg: msg})
}

// Snapshot 在事件循环中读取当前会话快照
func (h *Handler) Snapshot(ctx context.Context) (protocol.WelcomePayload, error) {
	var snap protocol.WelcomePayload
	err := h.Query(ctx, func(s *session.Session) { snap = s.Snapshot() })
	return snap, err
}

// Query 在事件循环中执行只读函数并等待完成
func (h *Handler) Query(ctx context.Context, fn func(s *session.Session)) error {
	ev := event{kind: eventQuery, query: fn, reply: make(chan struct{})}
	select {
	case h.events <- ev:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ev.reply:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Questions 题库（创建后不再变化，无需经过事件循环）
func (h *Handler) Questions() []protocol.Question {
	return h.session.Questions()
}

func (h *Handler) enqueue(ev event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// process 顺序处理单个事件
func (h *Handler) process(ev event) {
	switch ev.kind {
	case eventConnect:
		h.onConnect(ev.client)
	case eventDisconnect:
		h.onDisconnect(ev.client)
	case eventMessage:
		h.dispatch(ev.client, ev.msg)
	case eventQuery:
		ev.query(h.session)
		close(ev.reply)
	}
}

// dispatch 分发消息，业务错误只回给发送者，连接保持
func (h *Handler) dispatch(client types.ClientInterface, msg *protocol.Message) {
	handler, ok := h.handlers[msg.Type]
	if !ok {
		log.Printf("⚠️  未知事件类型: '%s' (来自连接: %s)", msg.Type, client.GetID())
		h.sendError(client, apperrors.ErrUnknownEvent)
		return
	}

	if err := handler(client, msg); err != nil {
		log.Printf("⚠️  处理 %s 失败 (连接: %s): %v", msg.Type, client.GetID(), err)
		h.sendError(client, err)
	}
}

func (h *Handler) sendError(client types.ClientInterface, err error) {
	var te *apperrors.TriviaError
	if errors.As(err, &te) {
		client.SendMessage(codec.NewErrorMessageWithText(te.Code, te.Message))
		return
	}
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}

// validator 带必填字段校验的载荷
type validator interface {
	Validate() error
}

// parsePayload 解析并校验载荷，失败统一包装为 ErrMalformedPayload
func parsePayload[T any](msg *protocol.Message) (*T, error) {
	p, err := codec.ParsePayload[T](msg)
	if err != nil {
		return nil, apperrors.Malformed(err)
	}
	if v, ok := any(p).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, apperrors.Malformed(err)
		}
	}
	return p, nil
}
