// Package ui 终端客户端界面（bubbletea）
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/bookclub-trivia/internal/client"
	"github.com/palemoky/bookclub-trivia/internal/logger"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/sound"
)

// Phase 界面阶段
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseLobby
	PhaseQuestion
	PhaseGameOver
)

// noticeDuration 提示信息显示时长
const noticeDuration = 3 * time.Second

// Transport 界面依赖的连接操作，由 client.Client 实现
type Transport interface {
	Connect() error
	Receive() (*protocol.Message, error)
	IsConnected() bool
	StartHeartbeat()
	Close()

	Join(name string) error
	Start(gameName, host string) error
	Ask(q protocol.Question) error
	Answer(player, answer string) error
	GameOver(gameName string, scores map[string]int) error
}

// Options 客户端启动参数
type Options struct {
	ServerURL string
	Format    codec.Format
	Name      string
	AsHost    bool
	GameName  string
	SoundDir  string
}

// ServerMessage 服务器消息（用于 tea.Msg）
type ServerMessage struct {
	Msg *protocol.Message
}

// ConnectedMsg 连接成功消息
type ConnectedMsg struct{}

// ConnectionErrorMsg 连接错误消息
type ConnectionErrorMsg struct {
	Err error
}

// ReconnectingMsg 正在重连消息
type ReconnectingMsg struct {
	Attempt  int
	MaxTries int
}

// ReconnectSuccessMsg 重连成功消息
type ReconnectSuccessMsg struct{}

// ClosedMsg 连接已彻底关闭
type ClosedMsg struct{}

// ClearNoticeMsg 清除提示消息
type ClearNoticeMsg struct{}

// OnlineModel 联网模式的 model
type OnlineModel struct {
	conn  Transport
	opts  Options
	state *client.GameState
	sound *sound.SoundManager

	connected bool
	closed    bool
	latency   int64
	notice    string
	error     string

	// 连接回调通过 channel 转成 tea.Msg
	events chan tea.Msg

	input  textinput.Model
	width  int
	height int
}

// NewOnlineModel 创建联网模式 model
func NewOnlineModel(opts Options) *OnlineModel {
	c := client.NewClient(opts.ServerURL, opts.Format)
	m := newModel(c, opts)

	// 设置重连回调 - 通过 channel 发送消息到 Bubble Tea
	c.OnReconnecting = func(attempt, maxTries int) {
		m.emit(ReconnectingMsg{Attempt: attempt, MaxTries: maxTries})
	}
	c.OnReconnect = func() {
		m.emit(ReconnectSuccessMsg{})
	}
	c.OnClose = func() {
		m.emit(ClosedMsg{})
	}
	c.OnLatency = func(l int64) {
		m.emit(latencyMsg(l))
	}
	return m
}

type latencyMsg int64

func newModel(conn Transport, opts Options) *OnlineModel {
	ti := textinput.New()
	ti.Placeholder = "输入答案..."
	ti.CharLimit = 120
	ti.Width = 40

	return &OnlineModel{
		conn:   conn,
		opts:   opts,
		state:  client.NewGameState(),
		sound:  sound.NewSoundManager(opts.SoundDir),
		events: make(chan tea.Msg, 16),
		input:  ti,
	}
}

func (m *OnlineModel) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

func (m *OnlineModel) Init() tea.Cmd {
	go func() {
		if err := m.sound.Init(); err != nil {
			logger.LogError("音效初始化失败: %v", err)
		}
	}()

	return tea.Batch(
		m.connectToServer(),
		textinput.Blink,
		m.listenForEvents(),
	)
}

// listenForEvents 监听连接回调
func (m *OnlineModel) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// connectToServer 连接服务器
func (m *OnlineModel) connectToServer() tea.Cmd {
	return func() tea.Msg {
		if err := m.conn.Connect(); err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// listenForMessages 监听服务器消息
func (m *OnlineModel) listenForMessages() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.conn.Receive()
		if err != nil {
			// 重连期间 receive 会被替换，由 ReconnectSuccessMsg 重新监听
			return nil
		}
		return ServerMessage{Msg: msg}
	}
}

func clearNoticeAfter() tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

func (m *OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if handled, cmd := m.handleKeyPress(msg); handled {
			return m, cmd
		}

	case ConnectedMsg:
		m.connected = true
		m.error = ""
		m.conn.StartHeartbeat()
		cmds = append(cmds, m.listenForMessages())

	case ConnectionErrorMsg:
		m.connected = false
		m.error = fmt.Sprintf("无法连接到服务器: %v\n\n按 ESC 退出", msg.Err)

	case ReconnectingMsg:
		m.connected = false
		m.notice = fmt.Sprintf("🔄 正在重连 (%d/%d)...", msg.Attempt, msg.MaxTries)
		cmds = append(cmds, m.listenForEvents())

	case ReconnectSuccessMsg:
		m.connected = true
		m.notice = "✅ 重连成功！"
		m.conn.StartHeartbeat()
		cmds = append(cmds, clearNoticeAfter(), m.listenForEvents(), m.listenForMessages())

	case ClosedMsg:
		m.connected = false
		m.closed = true
		m.error = "与服务器的连接已断开，按 ESC 退出"

	case latencyMsg:
		m.latency = int64(msg)
		cmds = append(cmds, m.listenForEvents())

	case ClearNoticeMsg:
		m.notice = ""

	case clearErrorMsg:
		m.error = ""

	case ServerMessage:
		if cmd := m.handleServerMessage(msg.Msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		// 继续监听
		if m.conn.IsConnected() {
			cmds = append(cmds, m.listenForMessages())
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Phase 当前界面阶段，由本地会话镜像推导
func (m *OnlineModel) Phase() Phase {
	switch {
	case !m.connected && m.state.Me == nil:
		return PhaseConnecting
	case m.state.GameOver:
		return PhaseGameOver
	case m.state.CurrentQuestion != nil:
		return PhaseQuestion
	default:
		return PhaseLobby
	}
}

// State 本地会话镜像
func (m *OnlineModel) State() *client.GameState {
	return m.state
}
