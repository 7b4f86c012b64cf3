package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

func (m *OnlineModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.Phase() {
	case PhaseConnecting:
		content = m.connectingView()
	case PhaseLobby:
		content = m.lobbyView()
	case PhaseQuestion:
		content = m.questionView()
	case PhaseGameOver:
		content = m.gameOverView()
	}

	return docStyle.Render(m.header() + "\n\n" + content + m.footer())
}

func (m *OnlineModel) center(s string) string {
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, s)
}

func (m *OnlineModel) header() string {
	title := titleStyle("📚 " + m.state.GameName)
	status := dimStyle.Render("离线")
	if m.connected {
		status = dimStyle.Render(fmt.Sprintf("在线 · %dms", m.latency))
	}
	return m.center(title) + "\n" + m.center(status)
}

func (m *OnlineModel) footer() string {
	var sb strings.Builder
	if m.notice != "" {
		sb.WriteString("\n\n" + m.center(noticeStyle.Render(m.notice)))
	}
	if m.error != "" {
		sb.WriteString("\n\n" + m.center(errorStyle.Render(m.error)))
	}
	return sb.String()
}

func (m *OnlineModel) connectingView() string {
	if m.error != "" {
		return ""
	}
	return m.center("正在连接 " + m.opts.ServerURL + " ...")
}

func (m *OnlineModel) lobbyView() string {
	var sb strings.Builder

	host := m.state.Host
	if host == "" {
		host = "等待主持人..."
	}
	sb.WriteString(m.center(fmt.Sprintf("%s 主持人: %s", HostIcon, host)))
	sb.WriteString("\n\n")
	sb.WriteString(m.center(m.rosterView()))
	sb.WriteString(promptStyle.Render(m.center(m.hint())))
	return sb.String()
}

func (m *OnlineModel) rosterView() string {
	if len(m.state.Players) == 0 {
		return boxStyle.Render(dimStyle.Render("还没有玩家加入"))
	}

	var lines []string
	for _, p := range m.state.Players {
		line := fmt.Sprintf("%s %-20s %3d", PlayerIcon, p.PlayerName, m.state.Scores[p.PlayerName])
		if m.state.Me != nil && p.ID == m.state.Me.ID {
			line = meStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m *OnlineModel) questionView() string {
	q := m.state.CurrentQuestion
	var sb strings.Builder

	sb.WriteString(m.center(boxStyle.Render(questionText(q))))
	sb.WriteString("\n\n")

	switch {
	case m.state.IsHost():
		sb.WriteString(m.center(dimStyle.Render("答案: " + q.Answer)))
		sb.WriteString("\n\n")
		sb.WriteString(m.center(m.rosterView()))
	case m.state.LastResult != nil:
		if *m.state.LastResult {
			sb.WriteString(m.center(successStyle.Render("✅ 回答正确！+1")))
		} else {
			sb.WriteString(m.center(errorStyle.Render("❌ 回答错误")))
		}
	case m.state.Answered:
		sb.WriteString(m.center(dimStyle.Render("已提交，等待结果...")))
	default:
		sb.WriteString(m.center(m.input.View()))
	}

	sb.WriteString(promptStyle.Render(m.center(m.hint())))
	return sb.String()
}

// questionText 题目及其附加信息（如书名）
func questionText(q *protocol.Question) string {
	text := "❓ " + q.Prompt
	if book, ok := q.Extra["book"].(string); ok && book != "" {
		text += "\n" + dimStyle.Render("《"+book+"》")
	}
	return text
}

func (m *OnlineModel) gameOverView() string {
	var sb strings.Builder
	sb.WriteString(m.center(titleStyle("🏆 游戏结束")))
	sb.WriteString("\n\n")

	ranking := m.state.FinalRanking()
	if len(ranking) == 0 {
		sb.WriteString(m.center(dimStyle.Render("本局没有积分")))
	} else {
		var lines []string
		for i, e := range ranking {
			line := fmt.Sprintf("%d. %-20s %3d", i+1, e.Name, e.Score)
			if e.Name == m.state.MyName() {
				line = meStyle.Render(line)
			}
			lines = append(lines, line)
		}
		sb.WriteString(m.center(boxStyle.Render(strings.Join(lines, "\n"))))
	}

	sb.WriteString(promptStyle.Render(m.center(m.hint())))
	return sb.String()
}

// hint 当前可用操作
func (m *OnlineModel) hint() string {
	if m.state.IsHost() {
		return dimStyle.Render(fmt.Sprintf("n 下一题 (剩余 %d) · g 结束游戏 · q 退出", m.state.RemainingQuestions()))
	}
	if m.Phase() == PhaseQuestion && !m.state.Answered {
		return dimStyle.Render("回车提交答案 · ESC 退出")
	}
	return dimStyle.Render("等待主持人出题 · ESC 退出")
}
