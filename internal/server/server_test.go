package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bookclub-trivia/internal/config"
	"github.com/palemoky/bookclub-trivia/internal/game/question"
	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

const readTimeout = 2 * time.Second

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Redis.Enabled = false
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Security.BlockedIPs = nil
	// 文件不存在时回退到内置题库
	cfg.Game.QuestionsFile = filepath.Join(t.TempDir(), "missing.yaml")
	return cfg
}

// startServer 启动事件循环并返回测试 HTTP 服务
func startServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx)

	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.closeRedis()
	})
	return s, ts
}

func wsURL(ts *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

type testConn struct {
	t      *testing.T
	conn   *websocket.Conn
	format codec.Format
}

func dial(t *testing.T, ts *httptest.Server, format codec.Format) *testConn {
	t.Helper()
	query := ""
	if format == codec.FormatProtobuf {
		query = "format=protobuf"
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, query), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{t: t, conn: conn, format: format}
}

func (tc *testConn) send(msgType protocol.MessageType, payload any) {
	tc.t.Helper()
	data, err := codec.Encode(codec.MustNewMessage(msgType, payload), tc.format)
	require.NoError(tc.t, err)

	frame := websocket.TextMessage
	if tc.format.IsBinary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(tc.t, tc.conn.WriteMessage(frame, data))
}

// expect 读取下一条消息并检查类型
func (tc *testConn) expect(msgType protocol.MessageType) *protocol.Message {
	tc.t.Helper()
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	frame, data, err := tc.conn.ReadMessage()
	require.NoError(tc.t, err)
	if tc.format.IsBinary() {
		assert.Equal(tc.t, websocket.BinaryMessage, frame)
	} else {
		assert.Equal(tc.t, websocket.TextMessage, frame)
	}

	msg, err := codec.Decode(data, tc.format)
	require.NoError(tc.t, err)
	require.Equal(tc.t, msgType, msg.Type, "payload: %s", msg.Payload)
	return msg
}

func payloadOf[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func TestServer_QuizOverWebSocket(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, testConfig(t))

	host := dial(t, ts, codec.FormatJSON)
	welcome := payloadOf[protocol.WelcomePayload](t, host.expect(protocol.MsgWelcome))
	assert.Equal(t, session.DefaultGameName, welcome.GameName)
	assert.Len(t, welcome.Questions, len(question.Builtin()))

	host.send(protocol.MsgStart, protocol.StartPayload{GameName: "Dune Night", Host: "Ann"})
	host.expect(protocol.MsgJoined)
	started := payloadOf[protocol.StartedPayload](t, host.expect(protocol.MsgStart))
	assert.Equal(t, "Dune Night", started.GameName)

	player := dial(t, ts, codec.FormatJSON)
	welcome = payloadOf[protocol.WelcomePayload](t, player.expect(protocol.MsgWelcome))
	assert.Equal(t, "Dune Night", welcome.GameName)
	assert.Equal(t, "Ann", welcome.Host)

	player.send(protocol.MsgJoin, protocol.JoinPayload{PlayerName: "Bob"})
	player.expect(protocol.MsgJoined)
	player.expect(protocol.MsgPlayers)
	score := payloadOf[map[string]int](t, player.expect(protocol.MsgScore))
	assert.Equal(t, map[string]int{"Bob": 0}, score)
	host.expect(protocol.MsgPlayers)
	host.expect(protocol.MsgScore)

	host.send(protocol.MsgAsk, protocol.Question{Prompt: "Who wrote Dune?", Answer: "Frank Herbert"})
	asked := payloadOf[protocol.Question](t, player.expect(protocol.MsgAsk))
	assert.Equal(t, "Who wrote Dune?", asked.Prompt)
	host.expect(protocol.MsgAsk)

	player.send(protocol.MsgAnswer, protocol.AnswerPayload{Player: "Bob", Answer: "Frank Herbert"})
	assert.True(t, payloadOf[bool](t, player.expect(protocol.MsgResults)))
	score = payloadOf[map[string]int](t, player.expect(protocol.MsgScore))
	assert.Equal(t, 1, score["Bob"])
	host.expect(protocol.MsgScore)

	// 主持人离开，其余玩家收到 end
	require.NoError(t, host.conn.Close())
	end := payloadOf[protocol.EndPayload](t, player.expect(protocol.MsgEnd))
	assert.Equal(t, session.GameOverName, end.GameName)
}

func TestServer_ProtobufFrames(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, testConfig(t))

	c := dial(t, ts, codec.FormatProtobuf)
	c.expect(protocol.MsgWelcome)

	c.send(protocol.MsgJoin, protocol.JoinPayload{PlayerName: "Bob"})
	joined := payloadOf[protocol.ParticipantInfo](t, c.expect(protocol.MsgJoined))
	assert.Equal(t, "Bob", joined.PlayerName)
	assert.Equal(t, string(session.RolePlayer), joined.Type)
}

func TestServer_MalformedPayloadKeepsConnection(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, testConfig(t))

	c := dial(t, ts, codec.FormatJSON)
	c.expect(protocol.MsgWelcome)

	c.send(protocol.MsgJoin, map[string]string{})
	errPayload := payloadOf[protocol.ErrorPayload](t, c.expect(protocol.MsgError))
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errPayload.Code)

	c.send(protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	pong := payloadOf[protocol.PongPayload](t, c.expect(protocol.MsgPong))
	assert.Equal(t, int64(42), pong.ClientTimestamp)
}

func TestServer_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, testConfig(t))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "format=xml"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_BlockedIP(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Security.BlockedIPs = []string{"127.0.0.1"}
	_, ts := startServer(t, cfg)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_MaintenanceMode(t *testing.T) {
	t.Parallel()

	s, ts := startServer(t, testConfig(t))
	assert.False(t, s.IsMaintenanceMode())

	c := dial(t, ts, codec.FormatJSON)
	c.expect(protocol.MsgWelcome)

	s.EnterMaintenanceMode()
	assert.True(t, s.IsMaintenanceMode())
	errPayload := payloadOf[protocol.ErrorPayload](t, c.expect(protocol.MsgError))
	assert.Equal(t, protocol.ErrCodeServerMaintenance, errPayload.Code)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ConnectionLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Server.MaxConnections = 1
	s, ts := startServer(t, cfg)

	first := dial(t, ts, codec.FormatJSON)
	first.expect(protocol.MsgWelcome)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// 断开后释放名额
	require.NoError(t, first.conn.Close())
	assert.Eventually(t, func() bool { return len(s.semaphore) == 0 }, readTimeout, 10*time.Millisecond)
}

func TestServer_Shutdown(t *testing.T) {
	t.Parallel()

	s, ts := startServer(t, testConfig(t))

	c := dial(t, ts, codec.FormatJSON)
	c.expect(protocol.MsgWelcome)
	assert.Eventually(t, func() bool { return s.GetOnlineCount() == 1 }, readTimeout, 10*time.Millisecond)

	s.Shutdown(context.Background())

	end := payloadOf[protocol.EndPayload](t, c.expect(protocol.MsgEnd))
	assert.Equal(t, session.GameOverName, end.GameName)
	assert.Equal(t, 0, s.GetOnlineCount())
}

func TestServer_GracefulShutdownWithoutGame(t *testing.T) {
	t.Parallel()

	s, _ := startServer(t, testConfig(t))

	done := make(chan struct{})
	go func() {
		s.GracefulShutdown(context.Background(), 5*time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(readTimeout):
		t.Fatal("graceful shutdown should not wait when no game is running")
	}
	assert.True(t, s.IsMaintenanceMode())
}

func TestServer_HandleHealth(t *testing.T) {
	t.Parallel()

	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServer_API(t *testing.T) {
	t.Parallel()

	_, ts := startServer(t, testConfig(t))

	var snap protocol.WelcomePayload
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/session", &snap))
	assert.Equal(t, session.DefaultGameName, snap.GameName)
	assert.Equal(t, session.PhaseIdle.String(), snap.Phase)

	var qs []protocol.Question
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/questions", &qs))
	assert.Len(t, qs, len(question.Builtin()))

	// 未启用 Redis
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/leaderboard", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/games", nil))

	resp, err := http.Post(ts.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RedisQuestionSetAndArchive(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	set := []protocol.Question{
		{Prompt: "Who wrote Emma?", Answer: "Jane Austen"},
		{Prompt: "Who wrote Beloved?", Answer: "Toni Morrison"},
	}
	require.NoError(t, storage.NewRedisStore(rdb).SaveQuestions(context.Background(), "march", set))

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Game.QuestionSet = "march"
	_, ts := startServer(t, cfg)

	var qs []protocol.Question
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/questions", &qs))
	require.Len(t, qs, 2)
	assert.Equal(t, "Who wrote Emma?", qs[0].Prompt)

	// 完成一局后出现在排行榜
	host := dial(t, ts, codec.FormatJSON)
	host.expect(protocol.MsgWelcome)
	host.send(protocol.MsgJoin, protocol.JoinPayload{PlayerName: "Bob"})
	host.expect(protocol.MsgJoined)
	host.expect(protocol.MsgPlayers)
	host.expect(protocol.MsgScore)
	host.send(protocol.MsgAsk, set[0])
	host.expect(protocol.MsgAsk)
	host.send(protocol.MsgAnswer, protocol.AnswerPayload{Player: "Bob", Answer: "Jane Austen"})
	host.expect(protocol.MsgResults)
	host.expect(protocol.MsgScore)
	host.send(protocol.MsgGameOver, map[string]any{"score": map[string]int{"Bob": 1}})
	host.expect(protocol.MsgGameOver)

	// 快照查询经过事件循环，返回时存档已经写入
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/session", nil))

	var board []*storage.LeaderboardEntry
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/leaderboard?limit=5", &board))
	require.Len(t, board, 1)
	assert.Equal(t, "Bob", board[0].PlayerName)
	assert.Equal(t, 1, board[0].Points)

	var games []*storage.GameRecord
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/games", &games))
	require.Len(t, games, 1)
	assert.Equal(t, []string{"Bob"}, games[0].Winners)
}

func TestServer_RedisUnavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestParseLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  int
	}{
		{"", defaultAPILimit},
		{"limit=5", 5},
		{"limit=-1", defaultAPILimit},
		{"limit=abc", defaultAPILimit},
		{"limit=1000", maxAPILimit},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/games?"+tt.query, nil)
		assert.Equal(t, tt.want, parseLimit(req), tt.query)
	}
}
