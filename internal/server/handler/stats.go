package handler

import (
	"context"
	"log"
	"time"

	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

const archiveTimeout = 3 * time.Second

// archiveGame 将本局积分写入存档，失败只记录日志
func (h *Handler) archiveGame() {
	if h.archive == nil {
		return
	}

	scores, ok := h.session.GameScores()
	if !ok {
		log.Printf("💾 对局 %s 已存档，跳过重复的 gameover", h.session.GameName())
		return
	}
	if len(scores) == 0 {
		return
	}

	hostName := ""
	if host, ok := h.session.Host(); ok {
		hostName = host.Name
	}
	rec := storage.NewGameRecord(h.session.GameName(), hostName, scores)

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := h.archive.RecordGame(ctx, rec); err != nil {
		log.Printf("⚠️  保存对局 %s 失败: %v", rec.GameName, err)
		return
	}
	h.session.MarkArchived()
	log.Printf("💾 对局 %s 已存档，赢家: %v", rec.GameName, rec.Winners)
}
