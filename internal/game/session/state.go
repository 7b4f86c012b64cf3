package session

// Phase 会话阶段，由会话字段推导，不单独存储
type Phase int

const (
	PhaseIdle           Phase = iota // 没有主持人，名单为空
	PhaseLobby                       // 有主持人或玩家，没有进行中的题目
	PhaseQuestionActive              // 已出题，等待作答
	PhaseEnded                       // 已广播 gameover，之后行为与 Idle 相同
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLobby:
		return "lobby"
	case PhaseQuestionActive:
		return "question_active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Role 参与者角色
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)
