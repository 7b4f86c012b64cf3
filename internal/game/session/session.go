// Package session 实现单局问答会话的状态机。
// Session 不加锁，只能由事件路由的单个协程访问。
package session

import (
	"github.com/palemoky/bookclub-trivia/internal/apperrors"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

const (
	// DefaultGameName 新会话的默认名称
	DefaultGameName = "Untitled"
	// GameOverName 主持人离开后的游戏名
	GameOverName = "GAME OVER!"
)

// Participant 会话参与者
type Participant struct {
	ConnID string
	Name   string
	Role   Role
}

// Info 转换为协议结构
func (p Participant) Info() protocol.ParticipantInfo {
	return protocol.ParticipantInfo{ID: p.ConnID, PlayerName: p.Name, Type: string(p.Role)}
}

// Policy 可配置的会话策略
type Policy struct {
	// 普通玩家断线后保留积分
	RetainScoresOnDisconnect bool
	// 只有主持人连接可以出题
	EnforceHostAsk bool
}

// DefaultPolicy 与最初的聚会版本行为一致
func DefaultPolicy() Policy {
	return Policy{RetainScoresOnDisconnect: true}
}

// AnswerResult 作答结果
type AnswerResult struct {
	Player  string // 计分的玩家名
	Correct bool
	Scored  bool // 是否实际加分（玩家不在积分表中时为 false）
}

// LeaveResult 断线处理结果
type LeaveResult struct {
	Participant Participant
	WasHost     bool // 主持人离开，会话已重置
	Removed     bool // 名单发生变化
}

// Session 问答会话
type Session struct {
	policy    Policy
	questions []protocol.Question

	gameName        string
	host            *Participant
	players         []Participant          // 按加入顺序
	byConn          map[string]Participant // connID -> 玩家
	currentQuestion *protocol.Question
	lastResult      *bool
	scores          map[string]int
	ended           bool

	// 本局开始（或上次存档）时的积分，存档只记录之后的增量
	baseline map[string]int
	archived bool
}

// New 创建会话，questions 为题库（welcome 快照中下发）
func New(policy Policy, questions []protocol.Question) *Session {
	s := &Session{
		policy:    policy,
		questions: questions,
	}
	s.Reset()
	return s
}

// Reset 恢复到初始状态，题库和策略保持不变
func (s *Session) Reset() {
	s.gameName = DefaultGameName
	s.host = nil
	s.players = nil
	s.byConn = make(map[string]Participant)
	s.currentQuestion = nil
	s.lastResult = nil
	s.scores = make(map[string]int)
	s.ended = false
	s.baseline = make(map[string]int)
	s.archived = false
}

// Policy 返回当前策略
func (s *Session) Policy() Policy {
	return s.policy
}

// Phase 计算当前阶段
func (s *Session) Phase() Phase {
	switch {
	case s.ended:
		return PhaseEnded
	case s.currentQuestion != nil:
		return PhaseQuestionActive
	case s.host != nil || len(s.players) > 0:
		return PhaseLobby
	default:
		return PhaseIdle
	}
}

// Join 玩家加入。同一连接再次加入时原地改名。
func (s *Session) Join(connID, name string) Participant {
	p := Participant{ConnID: connID, Name: name, Role: RolePlayer}
	if _, ok := s.byConn[connID]; ok {
		s.players[s.indexOf(connID)] = p
	} else {
		s.players = append(s.players, p)
	}
	s.byConn[connID] = p
	s.scores[name] = 0
	s.baseline[name] = 0
	s.ended = false
	return p
}

// Start 设置主持人和游戏名，静默替换之前的主持人
func (s *Session) Start(connID, gameName, hostName string) Participant {
	host := Participant{ConnID: connID, Name: hostName, Role: RoleHost}
	s.host = &host
	s.gameName = gameName
	s.ended = false
	s.baseline = s.Scores()
	s.archived = false
	return host
}

// Ask 出题，清空上一题结果
func (s *Session) Ask(connID string, q protocol.Question) error {
	if s.policy.EnforceHostAsk && !s.IsHost(connID) {
		return apperrors.ErrNotHost
	}
	s.currentQuestion = &q
	s.lastResult = nil
	s.ended = false
	s.archived = false
	return nil
}

// Answer 与当前题目答案精确比较，答对加一分。
// 计分对象是发送者在名单中的名字，未加入的连接退回使用 claimed。
func (s *Session) Answer(connID, claimed, answer string) (AnswerResult, error) {
	if s.currentQuestion == nil {
		return AnswerResult{}, apperrors.ErrNoActiveQuestion
	}

	player := claimed
	if p, ok := s.byConn[connID]; ok {
		player = p.Name
	}

	res := AnswerResult{Player: player, Correct: answer == s.currentQuestion.Answer}
	if res.Correct {
		if _, ok := s.scores[player]; ok {
			s.scores[player]++
			res.Scored = true
		}
	}
	correct := res.Correct
	s.lastResult = &correct
	return res, nil
}

// End 标记游戏结束（gameover 只是广播注解）
func (s *Session) End() {
	s.ended = true
}

// GameScores 返回本局尚未存档的得分（相对 baseline 的增量）。
// 本局已存档且之后没有新的 start/ask 时返回 false。
func (s *Session) GameScores() (map[string]int, bool) {
	if s.archived {
		return nil, false
	}
	out := make(map[string]int, len(s.scores))
	for name, score := range s.scores {
		out[name] = max(0, score-s.baseline[name])
	}
	return out, true
}

// MarkArchived 记录本局已存档，后续增量从当前积分算起
func (s *Session) MarkArchived() {
	s.baseline = s.Scores()
	s.archived = true
}

// Leave 处理连接断开。
// 主持人离开时整个会话重置，游戏名变为 GameOverName；
// 普通玩家离开时只从名单中移除该玩家。
func (s *Session) Leave(connID string) LeaveResult {
	if s.IsHost(connID) {
		host := *s.host
		s.Reset()
		s.gameName = GameOverName
		s.ended = true
		return LeaveResult{Participant: host, WasHost: true, Removed: true}
	}

	p, ok := s.byConn[connID]
	if !ok {
		return LeaveResult{}
	}
	delete(s.byConn, connID)
	i := s.indexOf(connID)
	s.players = append(s.players[:i], s.players[i+1:]...)

	if !s.policy.RetainScoresOnDisconnect && !s.hasPlayerNamed(p.Name) {
		delete(s.scores, p.Name)
	}
	return LeaveResult{Participant: p, Removed: true}
}

// IsHost 判断连接是否为主持人
func (s *Session) IsHost(connID string) bool {
	return s.host != nil && s.host.ConnID == connID
}

// GameName 当前游戏名
func (s *Session) GameName() string {
	return s.gameName
}

// Host 当前主持人
func (s *Session) Host() (Participant, bool) {
	if s.host == nil {
		return Participant{}, false
	}
	return *s.host, true
}

// CurrentQuestion 当前题目
func (s *Session) CurrentQuestion() *protocol.Question {
	return s.currentQuestion
}

// LastResult 最近一次作答结果，未作答为 nil
func (s *Session) LastResult() *bool {
	return s.lastResult
}

// Questions 题库
func (s *Session) Questions() []protocol.Question {
	return s.questions
}

// Players 名单（按加入顺序）
func (s *Session) Players() []protocol.ParticipantInfo {
	out := make([]protocol.ParticipantInfo, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Info())
	}
	return out
}

// Scores 返回积分表副本
func (s *Session) Scores() map[string]int {
	out := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Snapshot 完整快照，用于 welcome
func (s *Session) Snapshot() protocol.WelcomePayload {
	snap := protocol.WelcomePayload{
		GameName:  s.gameName,
		Phase:     s.Phase().String(),
		Players:   s.Players(),
		Questions: s.questions,
		Score:     s.Scores(),
	}
	if s.host != nil {
		snap.Host = s.host.Name
	}
	if s.currentQuestion != nil {
		q := *s.currentQuestion
		snap.CurrentQuestion = &q
	}
	if s.lastResult != nil {
		r := *s.lastResult
		snap.Results = &r
	}
	if snap.Questions == nil {
		snap.Questions = []protocol.Question{}
	}
	return snap
}

func (s *Session) indexOf(connID string) int {
	for i, p := range s.players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (s *Session) hasPlayerNamed(name string) bool {
	for _, p := range s.players {
		if p.Name == name {
			return true
		}
	}
	return false
}
