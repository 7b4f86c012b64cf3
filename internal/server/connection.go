package server

import (
	"log"
	"net/http"

	"github.com/palemoky/bookclub-trivia/internal/protocol/codec"
)

// handleWebSocket 处理 WebSocket 连接，?format=protobuf 选择二进制帧
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Printf("🔧 维护模式，拒绝新连接: %s", clientIP)
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	if !s.ipFilter.IsAllowed(clientIP) {
		log.Printf("🚫 IP %s 被过滤器拒绝", clientIP)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	format, err := codec.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 连接数限制，连接断开时在 ReadPump 中释放
	if !s.acquireSlot() {
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.releaseSlot()
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn, format)
	client.IP = clientIP

	// 先入队 connect，保证 welcome 先于该连接的任何事件处理
	s.handler.Connect(client)
	log.Printf("✅ 连接 %s 已建立 (IP: %s, 格式: %s)", client.GetName(), clientIP, format)

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) acquireSlot() bool {
	select {
	case s.semaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseSlot() {
	select {
	case <-s.semaphore:
	default:
	}
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
