package client

import (
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 最大重连次数
	maxReconnectAttempts = 5
	// 首次重连间隔
	reconnectInterval = 2 * time.Second
	// 最大重连间隔
	maxReconnectInterval = 30 * time.Second
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrBufferFull = errors.New("send buffer full")
	ErrTimeout    = errors.New("receive timeout")
)

// Client WebSocket 客户端
type Client struct {
	ServerURL string
	Format    codec.Format

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	// 网络延迟（毫秒）
	latency atomic.Int64

	// 回调
	OnMessage      func(*protocol.Message) // 消息回调
	OnError        func(error)             // 错误回调
	OnClose        func()                  // 连接彻底关闭
	OnReconnecting func(attempt, max int)  // 正在重连
	OnReconnect    func()                  // 重连成功，服务端随后推送 welcome
	OnLatency      func(int64)             // 延迟更新

	mu             sync.RWMutex
	closed         bool
	stopped        atomic.Bool // 主动关闭后不再重连
	reconnecting   atomic.Bool
	reconnectCount int
	backoff        time.Duration
}

// NewClient 创建客户端
func NewClient(serverURL string, format codec.Format) *Client {
	return &Client{
		ServerURL: serverURL,
		Format:    format,
		send:      make(chan []byte, 256),
		receive:   make(chan *protocol.Message, 256),
		done:      make(chan struct{}),
		backoff:   reconnectInterval,
	}
}

// dialURL 在服务器地址上附加 format 参数
func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", err
	}
	if c.Format.IsBinary() {
		q := u.Query()
		q.Set("format", string(c.Format))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	target, err := c.dialURL()
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Connect 连接服务器
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// 启动读写协程
	go c.readPump(conn)
	go c.writePump(conn)

	return nil
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := codec.Encode(msg, c.Format)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive 接收消息 (阻塞)
func (c *Client) Receive() (*protocol.Message, error) {
	c.mu.RLock()
	receive, done := c.receive, c.done
	c.mu.RUnlock()

	select {
	case msg := <-receive:
		return msg, nil
	case <-done:
		return nil, ErrClosed
	}
}

// ReceiveWithTimeout 带超时接收消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	c.mu.RLock()
	receive, done := c.receive, c.done
	c.mu.RUnlock()

	select {
	case msg := <-receive:
		return msg, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	case <-done:
		return nil, ErrClosed
	}
}

// Close 主动关闭连接，不再重连
func (c *Client) Close() {
	c.stopped.Store(true)
	c.shutdown()
}

// shutdown 关闭当前连接
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil
}

// Latency 获取当前延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}
