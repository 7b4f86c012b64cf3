package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bookclub-trivia/internal/apperrors"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

var arithmetic = protocol.Question{Prompt: "2+2?", Answer: "4"}

// quizScenario join Alice、Bob，Carol 开局并出题
func quizScenario(t *testing.T, policy Policy) *Session {
	t.Helper()
	s := New(policy, nil)
	s.Join("c-alice", "Alice")
	s.Join("c-bob", "Bob")
	s.Start("c-carol", "Quiz", "Carol")
	require.NoError(t, s.Ask("c-carol", arithmetic))
	return s
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(DefaultPolicy(), nil)
	assert.Equal(t, DefaultGameName, s.GameName())
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.Players())
	assert.Empty(t, s.Scores())
	assert.Nil(t, s.CurrentQuestion())
	assert.Nil(t, s.LastResult())
	_, ok := s.Host()
	assert.False(t, ok)
}

func TestJoin_PreservesOrderAndInitializesScores(t *testing.T) {
	t.Parallel()

	s := New(DefaultPolicy(), nil)
	names := []string{"Alice", "Bob", "Dana", "Eve"}
	for i, n := range names {
		p := s.Join(string(rune('a'+i)), n)
		assert.Equal(t, RolePlayer, p.Role)
	}

	players := s.Players()
	require.Len(t, players, len(names))
	for i, n := range names {
		assert.Equal(t, n, players[i].PlayerName)
		assert.Equal(t, "player", players[i].Type)
	}
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0, "Dana": 0, "Eve": 0}, s.Scores())
	assert.Equal(t, PhaseLobby, s.Phase())
}

func TestJoin_SameConnectionRenames(t *testing.T) {
	t.Parallel()

	s := New(DefaultPolicy(), nil)
	s.Join("c1", "Alice")
	s.Join("c2", "Bob")
	s.Join("c1", "Alicia")

	players := s.Players()
	require.Len(t, players, 2)
	assert.Equal(t, "Alicia", players[0].PlayerName)
	assert.Equal(t, "Bob", players[1].PlayerName)
}

func TestStart_ReplacesHost(t *testing.T) {
	t.Parallel()

	s := New(DefaultPolicy(), nil)
	s.Start("c1", "First", "Carol")
	s.Start("c2", "Second", "Dave")

	host, ok := s.Host()
	require.True(t, ok)
	assert.Equal(t, Participant{ConnID: "c2", Name: "Dave", Role: RoleHost}, host)
	assert.Equal(t, "Second", s.GameName())
	assert.False(t, s.IsHost("c1"))
	assert.True(t, s.IsHost("c2"))
}

func TestAsk_ClearsLastResult(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	_, err := s.Answer("c-alice", "Alice", "4")
	require.NoError(t, err)
	require.NotNil(t, s.LastResult())

	next := protocol.Question{Prompt: "Author of Emma?", Answer: "Austen"}
	require.NoError(t, s.Ask("c-carol", next))
	assert.Nil(t, s.LastResult())
	assert.Equal(t, "Austen", s.CurrentQuestion().Answer)
	assert.Equal(t, PhaseQuestionActive, s.Phase())
}

func TestAsk_HostPolicy(t *testing.T) {
	t.Parallel()

	open := New(DefaultPolicy(), nil)
	open.Start("host", "Quiz", "Carol")
	assert.NoError(t, open.Ask("someone", arithmetic))

	strict := New(Policy{RetainScoresOnDisconnect: true, EnforceHostAsk: true}, nil)
	strict.Start("host", "Quiz", "Carol")
	assert.ErrorIs(t, strict.Ask("someone", arithmetic), apperrors.ErrNotHost)
	assert.Nil(t, strict.CurrentQuestion())
	assert.NoError(t, strict.Ask("host", arithmetic))
}

func TestAnswer_Scenario(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())

	res, err := s.Answer("c-alice", "Alice", "4")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.Scored)
	assert.Equal(t, "Alice", res.Player)

	assert.Equal(t, map[string]int{"Alice": 1, "Bob": 0}, s.Scores())
	require.NotNil(t, s.LastResult())
	assert.True(t, *s.LastResult())
}

func TestAnswer_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		connID    string
		claimed   string
		answer    string
		want      bool
		wantScore map[string]int
	}{
		{name: "correct", connID: "c-bob", claimed: "Bob", answer: "4", want: true, wantScore: map[string]int{"Alice": 0, "Bob": 1}},
		{name: "wrong", connID: "c-bob", claimed: "Bob", answer: "5", want: false, wantScore: map[string]int{"Alice": 0, "Bob": 0}},
		{name: "exact equality only", connID: "c-bob", claimed: "Bob", answer: " 4", want: false, wantScore: map[string]int{"Alice": 0, "Bob": 0}},
		{name: "sender name wins over claim", connID: "c-bob", claimed: "Alice", answer: "4", want: true, wantScore: map[string]int{"Alice": 0, "Bob": 1}},
		{name: "unjoined falls back to claim", connID: "c-x", claimed: "Alice", answer: "4", want: true, wantScore: map[string]int{"Alice": 1, "Bob": 0}},
		{name: "unknown player not added", connID: "c-x", claimed: "Zed", answer: "4", want: true, wantScore: map[string]int{"Alice": 0, "Bob": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := quizScenario(t, DefaultPolicy())
			res, err := s.Answer(tt.connID, tt.claimed, tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Correct)
			assert.Equal(t, tt.wantScore, s.Scores())
			require.NotNil(t, s.LastResult())
			assert.Equal(t, tt.want, *s.LastResult())
		})
	}
}

func TestAnswer_NoActiveQuestion(t *testing.T) {
	t.Parallel()

	s := New(DefaultPolicy(), nil)
	s.Join("c1", "Alice")
	_, err := s.Answer("c1", "Alice", "4")
	assert.ErrorIs(t, err, apperrors.ErrNoActiveQuestion)
	assert.Nil(t, s.LastResult())
}

func TestLeave_HostResetsSession(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	_, err := s.Answer("c-alice", "Alice", "4")
	require.NoError(t, err)

	res := s.Leave("c-carol")
	assert.True(t, res.WasHost)
	assert.Equal(t, "Carol", res.Participant.Name)

	assert.Equal(t, GameOverName, s.GameName())
	_, ok := s.Host()
	assert.False(t, ok)
	assert.Empty(t, s.Players())
	assert.Empty(t, s.Scores())
	assert.Nil(t, s.CurrentQuestion())
	assert.Equal(t, PhaseEnded, s.Phase())

	// 新的 start 可以重新开局
	s.Start("c-dave", "Round 2", "Dave")
	assert.Equal(t, PhaseLobby, s.Phase())
}

func TestJoin_AfterHostLeftMovesToLobby(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	s.Leave("c-carol")
	require.Equal(t, PhaseEnded, s.Phase())

	s.Join("c-erin", "Erin")
	assert.Equal(t, PhaseLobby, s.Phase())
	assert.Equal(t, GameOverName, s.GameName())
}

func TestLeave_PlayerRemovesOnlyThatPlayer(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	before := s.Snapshot()

	res := s.Leave("c-alice")
	assert.True(t, res.Removed)
	assert.False(t, res.WasHost)

	after := s.Snapshot()
	require.Len(t, after.Players, 1)
	assert.Equal(t, "Bob", after.Players[0].PlayerName)
	assert.Equal(t, before.GameName, after.GameName)
	assert.Equal(t, before.Host, after.Host)
	assert.Equal(t, before.CurrentQuestion, after.CurrentQuestion)
	assert.Equal(t, before.Score, after.Score, "scores retained by default")
}

func TestLeave_DropScoresPolicy(t *testing.T) {
	t.Parallel()

	s := New(Policy{RetainScoresOnDisconnect: false}, nil)
	s.Join("c1", "Alice")
	s.Join("c2", "Bob")
	s.Join("c3", "Bob")

	s.Leave("c1")
	s.Leave("c2")
	// 还有一个 Bob 在名单中，积分保留
	assert.Equal(t, map[string]int{"Bob": 0}, s.Scores())
}

func TestLeave_UnknownIsNoop(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	res := s.Leave("nobody")
	assert.False(t, res.Removed)
	assert.Len(t, s.Players(), 2)
}

func TestEnd_IsAnnotationOnly(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	scores := s.Scores()
	s.End()

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, scores, s.Scores())
	assert.Equal(t, "Quiz", s.GameName())

	require.NoError(t, s.Ask("c-carol", arithmetic))
	assert.Equal(t, PhaseQuestionActive, s.Phase())
}

func TestGameScores_ArchivedOncePerGame(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	_, err := s.Answer("c-alice", "Alice", "4")
	require.NoError(t, err)
	s.End()

	scores, ok := s.GameScores()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"Alice": 1, "Bob": 0}, scores)
	s.MarkArchived()

	// 重复的 gameover 不再产生存档
	_, ok = s.GameScores()
	assert.False(t, ok)

	// 同一会话的第二局只计算新增得分
	s.Start("c-dave", "Round 2", "Dave")
	require.NoError(t, s.Ask("c-dave", arithmetic))
	_, err = s.Answer("c-bob", "Bob", "4")
	require.NoError(t, err)

	scores, ok = s.GameScores()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 1}, scores)
	assert.Equal(t, map[string]int{"Alice": 1, "Bob": 1}, s.Scores(), "session scores keep accumulating")
}

func TestGameScores_JoinMidGame(t *testing.T) {
	t.Parallel()

	s := quizScenario(t, DefaultPolicy())
	_, err := s.Answer("c-alice", "Alice", "4")
	require.NoError(t, err)
	s.MarkArchived()

	// 重新加入会把积分清零，增量不会变成负数
	s.Join("c-alice2", "Alice")
	s.Join("c-erin", "Erin")
	require.NoError(t, s.Ask("c-carol", arithmetic))
	_, err = s.Answer("c-erin", "Erin", "4")
	require.NoError(t, err)

	scores, ok := s.GameScores()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0, "Erin": 1}, scores)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	bank := []protocol.Question{arithmetic}
	s := New(DefaultPolicy(), bank)
	s.Join("c-alice", "Alice")
	s.Start("c-carol", "Quiz", "Carol")
	require.NoError(t, s.Ask("c-carol", arithmetic))
	_, err := s.Answer("c-alice", "Alice", "5")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "Quiz", snap.GameName)
	assert.Equal(t, "Carol", snap.Host)
	assert.Equal(t, "question_active", snap.Phase)
	assert.Equal(t, bank, snap.Questions)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "2+2?", snap.CurrentQuestion.Prompt)
	require.NotNil(t, snap.Results)
	assert.False(t, *snap.Results)

	// 快照与会话互不影响
	snap.Score["Alice"] = 99
	assert.Equal(t, 0, s.Scores()["Alice"])
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "lobby", PhaseLobby.String())
	assert.Equal(t, "question_active", PhaseQuestionActive.String())
	assert.Equal(t, "ended", PhaseEnded.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
