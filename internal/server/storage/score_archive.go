package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	gameHistoryKey   = "trivia:games"
	playerStatsKey   = "trivia:player:stats:"
	leaderboardKey   = "trivia:leaderboard:points"
	dailyLeaderboard = "trivia:leaderboard:daily:"
)

// GameRecord 一局结束后的存档
type GameRecord struct {
	ID         string         `json:"id"`
	GameName   string         `json:"game_name"`
	Host       string         `json:"host"`
	Scores     map[string]int `json:"scores"`
	Winners    []string       `json:"winners"`
	FinishedAt int64          `json:"finished_at"`
}

// PlayerStats 玩家累计统计
type PlayerStats struct {
	PlayerName   string `json:"player_name"`
	TotalGames   int    `json:"total_games"`
	Wins         int    `json:"wins"`
	Points       int    `json:"points"`     // 累计答对题数
	BestScore    int    `json:"best_score"` // 单局最高分
	LastPlayedAt int64  `json:"last_played_at"`
	CreatedAt    int64  `json:"created_at"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerName string  `json:"player_name"`
	Points     int     `json:"points"`
	Games      int     `json:"games"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

// ScoreArchive 对局存档与排行榜
type ScoreArchive struct {
	redis        *redis.Client
	historyLimit int
}

// NewScoreArchive 创建存档，historyLimit 为保留的历史对局数
func NewScoreArchive(client *redis.Client, historyLimit int) *ScoreArchive {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &ScoreArchive{redis: client, historyLimit: historyLimit}
}

// NewGameRecord 根据积分表生成存档，最高分（大于 0）的玩家为赢家
func NewGameRecord(gameName, host string, scores map[string]int) *GameRecord {
	rec := &GameRecord{
		ID:         uuid.NewString(),
		GameName:   gameName,
		Host:       host,
		Scores:     make(map[string]int, len(scores)),
		Winners:    []string{},
		FinishedAt: time.Now().Unix(),
	}

	best := 0
	for name, s := range scores {
		rec.Scores[name] = s
		best = max(best, s)
	}
	if best > 0 {
		for name, s := range scores {
			if s == best {
				rec.Winners = append(rec.Winners, name)
			}
		}
		sort.Strings(rec.Winners)
	}
	return rec
}

// RecordGame 保存对局并更新玩家统计和排行榜
func (sa *ScoreArchive) RecordGame(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化对局失败: %w", err)
	}

	pipe := sa.redis.TxPipeline()
	pipe.LPush(ctx, gameHistoryKey, data)
	pipe.LTrim(ctx, gameHistoryKey, 0, int64(sa.historyLimit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存对局失败: %w", err)
	}

	winners := make(map[string]bool, len(rec.Winners))
	for _, w := range rec.Winners {
		winners[w] = true
	}

	for name, score := range rec.Scores {
		if err := sa.recordPlayer(ctx, name, score, winners[name]); err != nil {
			return fmt.Errorf("更新玩家 %s 统计失败: %w", name, err)
		}
	}
	return nil
}

func (sa *ScoreArchive) recordPlayer(ctx context.Context, name string, score int, won bool) error {
	stats, err := sa.PlayerStats(ctx, name)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	if stats == nil {
		stats = &PlayerStats{PlayerName: name, CreatedAt: now}
	}

	stats.TotalGames++
	stats.Points += score
	stats.BestScore = max(stats.BestScore, score)
	stats.LastPlayedAt = now
	if won {
		stats.Wins++
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	dailyKey := dailyLeaderboard + time.Now().Format("2006-01-02")
	pipe := sa.redis.TxPipeline()
	pipe.Set(ctx, playerStatsKey+name, data, 0)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(stats.Points), Member: name})
	pipe.ZIncrBy(ctx, dailyKey, float64(score), name)
	// 每日排行榜保留 2 天
	pipe.Expire(ctx, dailyKey, 48*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

// PlayerStats 获取玩家统计，不存在返回 nil
func (sa *ScoreArchive) PlayerStats(ctx context.Context, name string) (*PlayerStats, error) {
	data, err := sa.redis.Get(ctx, playerStatsKey+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentGames 最近的对局，最新的在前
func (sa *ScoreArchive) RecentGames(ctx context.Context, limit int) ([]*GameRecord, error) {
	if limit <= 0 {
		return []*GameRecord{}, nil
	}
	items, err := sa.redis.LRange(ctx, gameHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	games := make([]*GameRecord, 0, len(items))
	for _, item := range items {
		var rec GameRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		games = append(games, &rec)
	}
	return games, nil
}

// Leaderboard 累计积分排行榜
func (sa *ScoreArchive) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return sa.leaderboard(ctx, leaderboardKey, limit)
}

// DailyLeaderboard 当日积分排行榜
func (sa *ScoreArchive) DailyLeaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return sa.leaderboard(ctx, dailyLeaderboard+time.Now().Format("2006-01-02"), limit)
}

func (sa *ScoreArchive) leaderboard(ctx context.Context, key string, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		return []*LeaderboardEntry{}, nil
	}

	// 从高到低
	results, err := sa.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, 0, len(results))
	for i, result := range results {
		name, _ := result.Member.(string)
		entry := &LeaderboardEntry{
			Rank:       i + 1,
			PlayerName: name,
			Points:     int(result.Score),
		}
		if stats, err := sa.PlayerStats(ctx, name); err == nil && stats != nil {
			entry.Games = stats.TotalGames
			entry.Wins = stats.Wins
			if stats.TotalGames > 0 {
				entry.WinRate = float64(stats.Wins) / float64(stats.TotalGames) * 100
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
