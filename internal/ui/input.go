package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress 处理按键消息，返回是否已处理和命令
func (m *OnlineModel) handleKeyPress(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.conn.Close()
		return true, tea.Quit
	case tea.KeyEnter:
		return true, m.handleEnter()
	}

	// 主持人没有输入框，字母键作为快捷键
	if m.state.IsHost() && msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		switch msg.Runes[0] {
		case 'n', 'N':
			m.askNext()
			return true, nil
		case 'g', 'G':
			m.endGame()
			return true, nil
		case 'q', 'Q':
			m.conn.Close()
			return true, tea.Quit
		}
	}
	return false, nil
}

// handleEnter 玩家提交答案
func (m *OnlineModel) handleEnter() tea.Cmd {
	if m.state.IsHost() || m.Phase() != PhaseQuestion || m.state.Answered {
		return nil
	}

	answer := strings.TrimSpace(m.input.Value())
	if answer == "" {
		return nil
	}
	m.input.Reset()
	m.error = ""

	if err := m.conn.Answer(m.state.MyName(), answer); err != nil {
		m.error = "发送失败: " + err.Error()
		return nil
	}
	m.state.Answered = true
	m.input.Blur()
	return nil
}

// askNext 主持人按顺序出下一题
func (m *OnlineModel) askNext() {
	q, ok := m.state.NextQuestion()
	if !ok {
		m.notice = "题库已经用完，按 g 结束游戏"
		return
	}
	if err := m.conn.Ask(q); err != nil {
		m.error = "发送失败: " + err.Error()
	}
}

// endGame 主持人结束游戏并公布积分
func (m *OnlineModel) endGame() {
	if err := m.conn.GameOver(m.state.GameName, m.state.Scores); err != nil {
		m.error = "发送失败: " + err.Error()
	}
}
