package client

import (
	"time"

	"github.com/palemoky/bookclub-trivia/internal/logger"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

// StartHeartbeat 启动心跳检测，重连后需要重新调用
func (c *Client) StartHeartbeat() {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if c.IsConnected() {
					_ = c.Ping()
				}
			case <-done:
				return
			}
		}
	}()
}

// tryReconnect 指数退避重连。服务端没有会话恢复，重连成功后会收到新的 welcome 快照，
// 由 OnReconnect 决定是否重新 join/start。
func (c *Client) tryReconnect() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			c.reconnecting.Store(false)
		}
	}()

	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}

	for c.reconnectCount < maxReconnectAttempts {
		if c.stopped.Load() {
			c.reconnecting.Store(false)
			return
		}

		c.reconnectCount++
		if c.OnReconnecting != nil {
			c.OnReconnecting(c.reconnectCount, maxReconnectAttempts)
		}
		logger.LogInfo("🔄 尝试重连 (%d/%d)，等待 %v", c.reconnectCount, maxReconnectAttempts, c.backoff)

		time.Sleep(c.backoff)
		c.backoff = nextBackoff(c.backoff)

		conn, err := c.dial()
		if err != nil {
			logger.LogError("重连失败: %v", err)
			continue
		}

		// 重置状态
		c.mu.Lock()
		c.conn = conn
		c.closed = false
		c.send = make(chan []byte, 256)
		c.receive = make(chan *protocol.Message, 256)
		c.done = make(chan struct{})
		c.mu.Unlock()

		c.reconnectCount = 0
		c.backoff = reconnectInterval
		c.reconnecting.Store(false)

		go c.readPump(conn)
		go c.writePump(conn)

		logger.LogInfo("✅ 重连成功")
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		return
	}

	// 重连失败
	logger.LogError("❌ 重连失败，已达最大尝试次数")
	c.reconnecting.Store(false)
	c.stopped.Store(true)
	if c.OnClose != nil {
		c.OnClose()
	}
}

// nextBackoff 计算下一次退避时间 (最大 30 秒)
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectInterval {
		d = maxReconnectInterval
	}
	return d
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}
