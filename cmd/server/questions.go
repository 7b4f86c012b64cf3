package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bookclub-trivia/internal/config"
	"github.com/palemoky/bookclub-trivia/internal/game/question"
	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

// questionSetOptions 题库管理命令的参数
type questionSetOptions struct {
	importFile string // 导入的 YAML 文件
	set        string // 目标题库名
	deleteSet  string // 要删除的题库名
}

func (o questionSetOptions) requested() bool {
	return o.importFile != "" || o.deleteSet != ""
}

// runQuestionSets 连接 Redis 执行题库导入/删除，然后退出
func runQuestionSets(cfg *config.Config, opts questionSetOptions) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := storage.NewRedisStore(rdb)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis 连接失败: %w", err)
	}
	return manageQuestionSets(ctx, store, opts)
}

func manageQuestionSets(ctx context.Context, store *storage.RedisStore, opts questionSetOptions) error {
	if opts.deleteSet != "" {
		if err := store.DeleteQuestions(ctx, opts.deleteSet); err != nil {
			return fmt.Errorf("删除题库失败: %w", err)
		}
		log.Printf("🗑️ 已删除题库 %s", opts.deleteSet)
	}

	if opts.importFile != "" {
		if opts.set == "" {
			return errors.New("导入题库需要指定 -set 或 game.question_set")
		}
		qs, err := question.Load(opts.importFile)
		if err != nil {
			return err
		}
		if err := store.SaveQuestions(ctx, opts.set, qs); err != nil {
			return fmt.Errorf("保存题库失败: %w", err)
		}
		log.Printf("📥 已导入 %d 道题到题库 %s", len(qs), opts.set)
	}

	sets, err := store.ListQuestionSets(ctx)
	if err != nil {
		return err
	}
	log.Printf("📚 当前题库: %v", sets)
	return nil
}
