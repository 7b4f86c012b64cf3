package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/palemoky/bookclub-trivia/internal/config"
	"github.com/palemoky/bookclub-trivia/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	var qsOpts questionSetOptions
	flag.StringVar(&qsOpts.importFile, "import", "", "导入 YAML 题库到 Redis 后退出")
	flag.StringVar(&qsOpts.set, "set", "", "导入的题库名（默认 game.question_set）")
	flag.StringVar(&qsOpts.deleteSet, "delete-set", "", "从 Redis 删除题库后退出")
	flag.Parse()

	// .env 可选，环境变量优先于配置文件
	if err := godotenv.Load(); err == nil {
		log.Println("已加载 .env")
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}

	if qsOpts.requested() {
		if qsOpts.set == "" {
			qsOpts.set = cfg.Game.QuestionSet
		}
		if err := runQuestionSets(cfg, qsOpts); err != nil {
			log.Fatalf("题库管理失败: %v", err)
		}
		return
	}

	// 创建服务器
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("创建服务器失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("正在关闭服务器...")
		srv.GracefulShutdown(context.Background(), cfg.Game.ShutdownTimeoutDuration())
		cancel()
	}()

	// 启动服务器
	log.Println("📚 读书会问答服务器启动中...")
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
	<-ctx.Done()
}
