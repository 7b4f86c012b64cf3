package server

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/palemoky/bookclub-trivia/internal/game/session"
	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
)

const (
	monitorInterval       = 30 * time.Second
	shutdownCheckInterval = time.Second
)

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			phase := "-"
			if snap, err := s.handler.Snapshot(ctx); err == nil {
				phase = snap.Phase
			}

			log.Printf("📊 [监控] 在线: %d | 阶段: %s | Goroutines: %d | 活跃连接: %d/%d | 内存: %.2f MB",
				s.GetOnlineCount(),
				phase,
				runtime.NumGoroutine(),
				len(s.semaphore),
				s.maxConnections,
				float64(m.Alloc)/1024/1024)
		}
	}
}

// EnterMaintenanceMode 进入维护模式，拒绝新连接
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.registry.Broadcast(codec.MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    protocol.ErrCodeServerMaintenance,
		Message: "👷🏻‍♂️ 维护模式：本局结束后服务器将关闭",
	}))

	log.Println("🔧 进入维护模式：停止接受新连接")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 优雅关闭：等待当前问答结束（或超时），广播 end 后关闭所有连接
func (s *Server) GracefulShutdown(ctx context.Context, timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(shutdownCheckInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if !s.gameInProgress(ctx) {
			log.Println("✅ 没有进行中的问答，开始关闭")
			break
		}
		log.Println("⏳ 等待当前问答结束...")
		<-ticker.C
	}

	if s.gameInProgress(ctx) {
		log.Println("⚠️ 超时，强制结束当前问答")
	}

	s.Shutdown(ctx)
}

// gameInProgress 有主持人且未结束视为进行中
func (s *Server) gameInProgress(ctx context.Context) bool {
	qctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	snap, err := s.handler.Snapshot(qctx)
	if err != nil {
		return false
	}
	return snap.Host != "" && snap.Phase != session.PhaseEnded.String()
}

// Shutdown 广播 end，关闭所有连接、HTTP 服务和 Redis
func (s *Server) Shutdown(ctx context.Context) {
	s.registry.Broadcast(codec.MustNewMessage(protocol.MsgEnd, protocol.EndPayload{
		GameName: session.GameOverName,
	}))
	s.registry.CloseAll()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP 服务关闭失败: %v", err)
		}
	}

	s.closeRedis()
	log.Println("服务器已关闭")
}

func (s *Server) closeRedis() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
