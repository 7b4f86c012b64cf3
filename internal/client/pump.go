package client

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/bookclub-trivia/internal/logger"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
)

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn) {
	defer c.handleReadExit()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.OnError != nil {
					c.OnError(err)
				}
			}
			return
		}

		msg, err := codec.Decode(data, c.Format)
		if err != nil {
			logger.LogError("消息解析错误: %v", err)
			continue
		}

		c.processMessage(msg)
	}
}

func (c *Client) handleReadExit() {
	if r := recover(); r != nil {
		logger.LogPanic(r)
	}
	// 服务端断开：非主动关闭时尝试重连
	if !c.stopped.Load() && !c.reconnecting.Load() {
		c.shutdown()
		go c.tryReconnect()
		return
	}
	if c.stopped.Load() {
		c.shutdown()
		if c.OnClose != nil {
			c.OnClose()
		}
	}
}

func (c *Client) processMessage(msg *protocol.Message) {
	if msg.Type == protocol.MsgPong {
		if pong, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil {
			latency := time.Now().UnixMilli() - pong.ClientTimestamp
			c.latency.Store(latency)
			if c.OnLatency != nil {
				c.OnLatency(latency)
			}
		}
	}

	// 回调处理
	if c.OnMessage != nil {
		c.OnMessage(msg)
	}

	// 同时发送到 channel
	c.mu.RLock()
	receive := c.receive
	c.mu.RUnlock()
	select {
	case receive <- msg:
	default:
	}
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	c.mu.RLock()
	send, done := c.send, c.done
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.Format.IsBinary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
