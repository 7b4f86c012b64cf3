package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/bookclub-trivia/internal/logger"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/sound"
)

// handleServerMessage 更新本地镜像，并处理音效与输入框
func (m *OnlineModel) handleServerMessage(msg *protocol.Message) tea.Cmd {
	if msg.Type == protocol.MsgError {
		return m.handleError(msg)
	}

	if err := m.state.Apply(msg); err != nil {
		logger.LogError("处理 %s 失败: %v", msg.Type, err)
		return nil
	}

	switch msg.Type {
	case protocol.MsgWelcome:
		// 每个新连接（包括重连）都会先收到 welcome，再表明身份
		m.identify()

	case protocol.MsgAsk:
		m.sound.Play(sound.CueQuestion)
		m.input.Reset()
		if !m.state.IsHost() {
			m.input.Focus()
		}

	case protocol.MsgResults:
		if m.state.LastResult != nil {
			m.sound.Play(sound.ForResult(*m.state.LastResult))
		}
		m.input.Blur()

	case protocol.MsgGameOver:
		m.sound.Play(sound.CueGameOver)
		m.input.Blur()

	case protocol.MsgEnd:
		m.sound.Play(sound.CueGameOver)
		m.input.Blur()
		m.notice = "主持人已离开，本局结束"
		return clearNoticeAfter()
	}
	return nil
}

// identify 以主持人身份开局，或以玩家身份加入
func (m *OnlineModel) identify() {
	var err error
	if m.opts.AsHost {
		err = m.conn.Start(m.opts.GameName, m.opts.Name)
	} else {
		err = m.conn.Join(m.opts.Name)
	}
	if err != nil {
		m.error = "发送失败: " + err.Error()
	}
}

func (m *OnlineModel) handleError(msg *protocol.Message) tea.Cmd {
	p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
	if err != nil {
		return nil
	}
	m.error = p.Message
	return tea.Tick(noticeDuration, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

type clearErrorMsg struct{}
