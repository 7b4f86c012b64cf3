package types

import (
	"context"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

// ClientInterface 定义客户端连接接口
type ClientInterface interface {
	GetID() string
	GetName() string
	SendMessage(msg *protocol.Message)
	Close()
}

// ScoreArchive 对局存档接口（Redis 未启用时为 nil）
type ScoreArchive interface {
	RecordGame(ctx context.Context, rec *storage.GameRecord) error
	RecentGames(ctx context.Context, limit int) ([]*storage.GameRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]*storage.LeaderboardEntry, error)
	DailyLeaderboard(ctx context.Context, limit int) ([]*storage.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, name string) (*storage.PlayerStats, error)
}

// SessionReader 只读访问当前会话（经由事件路由协程）
type SessionReader interface {
	Snapshot(ctx context.Context) (protocol.WelcomePayload, error)
}
