package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/palemoky/bookclub-trivia/internal/client"
	"github.com/palemoky/bookclub-trivia/internal/logger"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
	"github.com/palemoky/bookclub-trivia/internal/sound"
	"github.com/palemoky/bookclub-trivia/internal/ui"
)

func main() {
	cmd := &cli.Command{
		Name:  "bookclub-trivia",
		Usage: "读书会问答终端客户端",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "localhost:4000",
				Usage:   "服务器地址 (host:port 或完整的 ws:// URL)",
				Sources: cli.EnvVars("TRIVIA_SERVER"),
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "显示名，留空随机生成",
			},
			&cli.BoolFlag{
				Name:  "host",
				Usage: "以主持人身份开局",
			},
			&cli.StringFlag{
				Name:  "game",
				Value: "Book Club Trivia",
				Usage: "游戏名（仅主持人）",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: string(codec.FormatJSON),
				Usage: "线路格式: json 或 protobuf",
			},
			&cli.StringFlag{
				Name:  "sounds",
				Value: sound.DefaultDir,
				Usage: "音效目录",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("启动客户端时出错: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	format, err := codec.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		name = client.GenerateNickname()
	}

	// TUI 占用标准输出，日志写入文件
	if err := logger.Init(); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Close()

	opts := ui.Options{
		ServerURL: serverURL(cmd.String("server")),
		Format:    format,
		Name:      name,
		AsHost:    cmd.Bool("host"),
		GameName:  cmd.String("game"),
		SoundDir:  cmd.String("sounds"),
	}
	logger.LogInfo("客户端启动: %s as %s (host=%t, format=%s)", opts.ServerURL, opts.Name, opts.AsHost, opts.Format)

	p := tea.NewProgram(ui.NewOnlineModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// serverURL 补全 ws:// 前缀和 /ws 路径
func serverURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return fmt.Sprintf("ws://%s/ws", addr)
}
