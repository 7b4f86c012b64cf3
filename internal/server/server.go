package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bookclub-trivia/internal/config"
	"github.com/palemoky/bookclub-trivia/internal/game/question"
	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/server/admin"
	"github.com/palemoky/bookclub-trivia/internal/server/handler"
	"github.com/palemoky/bookclub-trivia/internal/server/registry"
	"github.com/palemoky/bookclub-trivia/internal/server/storage"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

// Server WebSocket 服务器
type Server struct {
	config     *config.Config
	redis      *redis.Client // Redis 未启用时为 nil
	redisStore *storage.RedisStore
	archive    *storage.ScoreArchive
	registry   *registry.Registry
	handler    *handler.Handler
	mcp        *admin.MCP
	upgrader   websocket.Upgrader
	httpServer *http.Server

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	runOnce sync.Once
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		config:   cfg,
		registry: registry.New(),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		ipFilter:       NewIPFilter(cfg.Security.BlockedIPs...),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 来源在升级前已经检查过
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	if cfg.Redis.Enabled {
		if err := s.connectRedis(); err != nil {
			return nil, err
		}
	}

	questions, err := s.loadQuestions()
	if err != nil {
		s.closeRedis()
		return nil, err
	}

	var archive types.ScoreArchive
	if s.archive != nil {
		archive = s.archive
	}

	sess := session.New(session.Policy{
		RetainScoresOnDisconnect: cfg.Game.RetainScores(),
		EnforceHostAsk:           cfg.Game.EnforceHostAsk,
	}, questions)

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Session:  sess,
		Registry: s.registry,
		Archive:  archive,
	})
	s.mcp = admin.NewMCP(s.handler, s.handler.Questions, archive)

	log.Printf("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 最大连接数=%d",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond, cfg.Server.MaxConnections)
	log.Printf("📚 题库已加载: %d 道题", len(questions))

	return s, nil
}

// connectRedis 初始化 Redis 客户端并测试连接
func (s *Server) connectRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     s.config.Redis.Addr,
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis 连接失败: %w", err)
	}

	s.redis = rdb
	s.redisStore = storage.NewRedisStore(rdb)
	s.archive = storage.NewScoreArchive(rdb, s.config.Game.HistoryLimit)
	return nil
}

// loadQuestions 依次尝试 Redis 题库、YAML 文件、内置题库
func (s *Server) loadQuestions() ([]protocol.Question, error) {
	if s.redisStore != nil && s.config.Game.QuestionSet != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		qs, err := s.redisStore.LoadQuestions(ctx, s.config.Game.QuestionSet)
		if err != nil {
			return nil, fmt.Errorf("加载 Redis 题库失败: %w", err)
		}
		if len(qs) > 0 {
			log.Printf("📚 使用 Redis 题库: %s", s.config.Game.QuestionSet)
			return qs, nil
		}
		log.Printf("⚠️  Redis 题库 %s 为空，回退到文件", s.config.Game.QuestionSet)
	}

	qs, err := question.Load(s.config.Game.QuestionsFile)
	if err == nil {
		return qs, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️  题库文件 %s 不存在，使用内置题库", s.config.Game.QuestionsFile)
		return question.Builtin(), nil
	}
	return nil, err
}

// Routes 返回 HTTP 路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/questions", s.handleQuestions)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.Handle("POST /mcp", s.mcp)
	return mux
}

// Run 启动事件循环和后台任务，只会执行一次
func (s *Server) Run(ctx context.Context) {
	s.runOnce.Do(func() {
		go s.handler.Run(ctx)
		go s.rateLimiter.Run(ctx, 5*time.Minute)
		go s.monitorStats(ctx)
	})
}

// Start 启动服务器，阻塞直到 HTTP 服务退出
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.Run(ctx)

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetOnlineCount 在线连接数
func (s *Server) GetOnlineCount() int {
	return s.registry.Count()
}
