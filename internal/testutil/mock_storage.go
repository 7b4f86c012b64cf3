//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

// MockScoreArchive 对局存档 mock
type MockScoreArchive struct {
	mock.Mock
}

func (m *MockScoreArchive) RecordGame(ctx context.Context, rec *storage.GameRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockScoreArchive) RecentGames(ctx context.Context, limit int) ([]*storage.GameRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.GameRecord), args.Error(1)
}

func (m *MockScoreArchive) Leaderboard(ctx context.Context, limit int) ([]*storage.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.LeaderboardEntry), args.Error(1)
}

func (m *MockScoreArchive) DailyLeaderboard(ctx context.Context, limit int) ([]*storage.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.LeaderboardEntry), args.Error(1)
}

func (m *MockScoreArchive) PlayerStats(ctx context.Context, name string) (*storage.PlayerStats, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PlayerStats), args.Error(1)
}
