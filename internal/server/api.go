package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

const (
	defaultAPILimit = 10
	maxAPILimit     = 100
)

// handleSession 当前会话快照（经由事件循环读取）
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.handler.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleQuestions 题库
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.handler.Questions())
}

// handleLeaderboard 累计排行榜
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusServiceUnavailable)
		return
	}
	entries, err := s.archive.Leaderboard(r.Context(), parseLimit(r))
	if err != nil {
		log.Printf("获取排行榜失败: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGames 最近的对局
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusServiceUnavailable)
		return
	}
	games, err := s.archive.RecentGames(r.Context(), parseLimit(r))
	if err != nil {
		log.Printf("获取对局历史失败: %v", err)
		http.Error(w, "games unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// parseLimit 解析 ?limit=N，范围 1..maxAPILimit
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultAPILimit
	}
	return min(n, maxAPILimit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("写入响应失败: %v", err)
	}
}
