package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

const (
	// Redis key 前缀
	questionSetPrefix = "trivia:questions:"
	questionSetsKey   = "trivia:question_sets"
)

// RedisStore Redis 存储（题库）
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// --- 题库存储 ---

// SaveQuestions 保存一套题目（覆盖同名题库）
func (rs *RedisStore) SaveQuestions(ctx context.Context, set string, questions []protocol.Question) error {
	if set == "" {
		return errors.New("题库名不能为空")
	}

	key := questionSetPrefix + set
	values := make([]any, 0, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("题目 %d 无效: %w", i, err)
		}
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("序列化题目失败: %w", err)
		}
		values = append(values, data)
	}

	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.SAdd(ctx, questionSetsKey, set)
		} else {
			pipe.SRem(ctx, questionSetsKey, set)
		}
		return nil
	})
	return err
}

// LoadQuestions 按顺序加载题库，不存在时返回空切片
func (rs *RedisStore) LoadQuestions(ctx context.Context, set string) ([]protocol.Question, error) {
	items, err := rs.client.LRange(ctx, questionSetPrefix+set, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	questions := make([]protocol.Question, 0, len(items))
	for _, item := range items {
		var q protocol.Question
		if err := json.Unmarshal([]byte(item), &q); err != nil {
			return nil, fmt.Errorf("反序列化题目失败: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// DeleteQuestions 删除题库
func (rs *RedisStore) DeleteQuestions(ctx context.Context, set string) error {
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, questionSetPrefix+set)
		pipe.SRem(ctx, questionSetsKey, set)
		return nil
	})
	return err
}

// ListQuestionSets 列出所有题库名
func (rs *RedisStore) ListQuestionSets(ctx context.Context) ([]string, error) {
	return rs.client.SMembers(ctx, questionSetsKey).Result()
}
