package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

// GameState manages the client-side mirror of the trivia session
type GameState struct {
	GameName string
	Phase    string
	Host     string

	// Roster and scores
	Players []protocol.ParticipantInfo
	Scores  map[string]int

	// Question bank from welcome, used by the host to pick questions
	Questions []protocol.Question
	nextIndex int

	CurrentQuestion *protocol.Question
	LastResult      *bool // 自己最近一次作答结果

	// Self
	Me       *protocol.ParticipantInfo
	Answered bool // 当前题目是否已作答

	// Game result
	GameOver    bool
	FinalScores map[string]int
}

// ScoreEntry 排序后的积分
type ScoreEntry struct {
	Name  string
	Score int
}

// NewGameState creates a new game state
func NewGameState() *GameState {
	gs := &GameState{}
	gs.Reset()
	return gs
}

// Reset clears all game state
func (gs *GameState) Reset() {
	gs.GameName = session.DefaultGameName
	gs.Phase = session.PhaseIdle.String()
	gs.Host = ""
	gs.Players = nil
	gs.Scores = make(map[string]int)
	gs.Questions = nil
	gs.nextIndex = 0
	gs.CurrentQuestion = nil
	gs.LastResult = nil
	gs.Me = nil
	gs.Answered = false
	gs.GameOver = false
	gs.FinalScores = nil
}

// Apply 根据服务端事件更新本地状态
func (gs *GameState) Apply(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.MsgWelcome:
		var p protocol.WelcomePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		gs.GameName = p.GameName
		gs.Phase = p.Phase
		gs.Host = p.Host
		gs.Players = p.Players
		gs.Questions = p.Questions
		gs.CurrentQuestion = p.CurrentQuestion
		gs.LastResult = nil
		gs.Answered = false
		gs.setScores(p.Score)
		// 新连接没有身份，重连后需要重新 join/start
		gs.Me = nil
		gs.GameOver = gs.Phase == session.PhaseEnded.String()

	case protocol.MsgJoined:
		var p protocol.ParticipantInfo
		if err := decode(msg, &p); err != nil {
			return err
		}
		gs.Me = &p
		if gs.Phase == session.PhaseIdle.String() {
			gs.Phase = session.PhaseLobby.String()
		}

	case protocol.MsgPlayers:
		var p []protocol.ParticipantInfo
		if err := decode(msg, &p); err != nil {
			return err
		}
		gs.Players = p

	case protocol.MsgScore:
		var p map[string]int
		if err := decode(msg, &p); err != nil {
			return err
		}
		gs.setScores(p)

	case protocol.MsgStart:
		var p protocol.StartedPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		gs.GameName = p.GameName
		gs.Host = p.Host
		gs.GameOver = false
		gs.FinalScores = nil
		gs.Phase = session.PhaseLobby.String()

	case protocol.MsgAsk:
		var q protocol.Question
		if err := decode(msg, &q); err != nil {
			return err
		}
		gs.CurrentQuestion = &q
		gs.LastResult = nil
		gs.Answered = false
		gs.GameOver = false
		gs.Phase = session.PhaseQuestionActive.String()

	case protocol.MsgResults:
		var correct bool
		if err := decode(msg, &correct); err != nil {
			return err
		}
		gs.LastResult = &correct
		gs.Answered = true

	case protocol.MsgGameOver:
		var p protocol.GameOverPayload
		// 载荷由主持人自定义，解析失败时沿用当前积分
		if err := decode(msg, &p); err != nil || len(p.Score) == 0 {
			p.Score = gs.Scores
		}
		gs.GameOver = true
		gs.FinalScores = copyScores(p.Score)
		gs.Phase = session.PhaseEnded.String()

	case protocol.MsgEnd:
		var p protocol.EndPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		me := gs.Me
		gs.Reset()
		gs.Me = me
		gs.GameName = p.GameName
		gs.GameOver = true
		gs.Phase = session.PhaseEnded.String()
	}
	return nil
}

// IsHost 自己是否为主持人
func (gs *GameState) IsHost() bool {
	return gs.Me != nil && gs.Me.Type == string(session.RoleHost)
}

// MyName 自己的显示名
func (gs *GameState) MyName() string {
	if gs.Me == nil {
		return ""
	}
	return gs.Me.PlayerName
}

// NextQuestion 依次返回题库中的下一题
func (gs *GameState) NextQuestion() (protocol.Question, bool) {
	if gs.nextIndex >= len(gs.Questions) {
		return protocol.Question{}, false
	}
	q := gs.Questions[gs.nextIndex]
	gs.nextIndex++
	return q, true
}

// RemainingQuestions 题库剩余题数
func (gs *GameState) RemainingQuestions() int {
	return len(gs.Questions) - gs.nextIndex
}

// Ranking 按积分降序排列，同分按名字
func (gs *GameState) Ranking() []ScoreEntry {
	return rank(gs.Scores)
}

// FinalRanking 结束时的排名
func (gs *GameState) FinalRanking() []ScoreEntry {
	return rank(gs.FinalScores)
}

func (gs *GameState) setScores(scores map[string]int) {
	gs.Scores = copyScores(scores)
}

func rank(scores map[string]int) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(scores))
	for name, score := range scores {
		entries = append(entries, ScoreEntry{Name: name, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

func copyScores(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func decode(msg *protocol.Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}
	return nil
}
