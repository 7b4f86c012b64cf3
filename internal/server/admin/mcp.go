// Package admin 只读管理接口：通过 MCP (JSON-RPC) 暴露会话、题库与排行榜
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

const (
	serverName    = "Book Club Trivia"
	serverVersion = "1.0.0"

	defaultLimit = 10
	maxLimit     = 100
)

// MCP 管理端点，挂载在 POST /mcp
type MCP struct {
	reader    types.SessionReader
	questions func() []protocol.Question
	archive   types.ScoreArchive // 可能为 nil

	mcpServer *server.MCPServer
}

// NewMCP 创建 MCP 端点并注册工具
func NewMCP(reader types.SessionReader, questions func() []protocol.Question, archive types.ScoreArchive) *MCP {
	m := &MCP{
		reader:    reader,
		questions: questions,
		archive:   archive,
	}
	m.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Book Club Trivia - read-only admin interface

AVAILABLE TOOLS:
- session_snapshot: current game name, host, roster, question and scores
- list_questions: the loaded question bank
- leaderboard: cumulative (or today's, with daily=true) points across finished games (needs Redis)
- recent_games: most recent finished games (needs Redis)
- player_stats: games, wins and points of one player (needs Redis)`),
	)
	m.registerTools()
	return m
}

// Server 返回底层 MCP server
func (m *MCP) Server() *server.MCPServer {
	return m.mcpServer
}

func (m *MCP) registerTools() {
	m.mcpServer.AddTool(mcp.Tool{
		Name:        "session_snapshot",
		Description: "Get the current trivia session snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, m.handleSnapshot)

	m.mcpServer.AddTool(mcp.Tool{
		Name:        "list_questions",
		Description: "List the loaded question bank",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, m.handleListQuestions)

	limitSchema := map[string]interface{}{
		"limit": map[string]interface{}{
			"type":        "number",
			"description": "Maximum number of entries (default 10, max 100)",
		},
	}

	m.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Get the points leaderboard",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": limitSchema["limit"],
				"daily": map[string]interface{}{
					"type":        "boolean",
					"description": "Only count games finished today",
				},
			},
		},
	}, m.handleLeaderboard)

	m.mcpServer.AddTool(mcp.Tool{
		Name:        "recent_games",
		Description: "List the most recent finished games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: limitSchema,
		},
	}, m.handleRecentGames)

	m.mcpServer.AddTool(mcp.Tool{
		Name:        "player_stats",
		Description: "Get the archived stats of one player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Player display name",
				},
			},
			Required: []string{"name"},
		},
	}, m.handlePlayerStats)
}

// ServeHTTP 处理 JSON-RPC 请求
func (m *MCP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := m.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Printf("MCP 响应写入失败: %v", err)
	}
}

func (m *MCP) handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := m.reader.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s (%s)\n", snap.GameName, snap.Phase)
	host := snap.Host
	if host == "" {
		host = "-"
	}
	fmt.Fprintf(&b, "Host: %s\n", host)
	fmt.Fprintf(&b, "Players (%d):\n", len(snap.Players))
	for _, p := range snap.Players {
		fmt.Fprintf(&b, "- %s (score: %d)\n", p.PlayerName, snap.Score[p.PlayerName])
	}
	if snap.CurrentQuestion != nil {
		fmt.Fprintf(&b, "Current question: %s\n", snap.CurrentQuestion.Prompt)
	}
	if snap.Results != nil {
		fmt.Fprintf(&b, "Last answer correct: %t\n", *snap.Results)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (m *MCP) handleListQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	qs := m.questions()

	var b strings.Builder
	fmt.Fprintf(&b, "Questions (%d):\n\n", len(qs))
	for i, q := range qs {
		fmt.Fprintf(&b, "%d. %s\n   ans: %s\n", i+1, q.Prompt, q.Answer)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (m *MCP) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.archive == nil {
		return mcp.NewToolResultError("score archive is disabled (redis not enabled)"), nil
	}

	fetch, title := m.archive.Leaderboard, "Leaderboard"
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if daily, _ := args["daily"].(bool); daily {
			fetch, title = m.archive.DailyLeaderboard, "Today's leaderboard"
		}
	}

	entries, err := fetch(ctx, limitArg(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n\n", title, len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %d pts, %d games, %d wins (%.0f%%)\n",
			e.Rank, e.PlayerName, e.Points, e.Games, e.Wins, e.WinRate)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (m *MCP) handleRecentGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.archive == nil {
		return mcp.NewToolResultError("score archive is disabled (redis not enabled)"), nil
	}

	games, err := m.archive.RecentGames(ctx, limitArg(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent games (%d):\n\n", len(games))
	for _, g := range games {
		winners := strings.Join(g.Winners, ", ")
		if winners == "" {
			winners = "-"
		}
		fmt.Fprintf(&b, "- %s hosted by %s at %s, winners: %s\n",
			g.GameName, g.Host, time.Unix(g.FinishedAt, 0).Format("2006-01-02 15:04"), winners)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (m *MCP) handlePlayerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.archive == nil {
		return mcp.NewToolResultError("score archive is disabled (redis not enabled)"), nil
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	stats, err := m.archive.PlayerStats(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if stats == nil {
		return mcp.NewToolResultText(fmt.Sprintf("%s has not finished any games yet", name)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Player: %s\n", stats.PlayerName)
	fmt.Fprintf(&b, "Games: %d\nWins: %d\nPoints: %d\nBest score: %d\n",
		stats.TotalGames, stats.Wins, stats.Points, stats.BestScore)
	if stats.LastPlayedAt > 0 {
		fmt.Fprintf(&b, "Last played: %s\n", time.Unix(stats.LastPlayedAt, 0).Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// limitArg 读取可选的 limit 参数（JSON 数字解码为 float64）
func limitArg(request mcp.CallToolRequest) int {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return defaultLimit
	}
	v, ok := args["limit"].(float64)
	if !ok || v <= 0 {
		return defaultLimit
	}
	return min(int(v), maxLimit)
}
