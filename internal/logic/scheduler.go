package logic

import (
	"context"
	"time"

	"emochat-backend/internal/common"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

type windowCounter interface {
	WindowCounts(ctx context.Context, since time.Time) (map[string]int64, error)
}

// RefreshEmotionWindow 统计所有用户近 7 天的情绪分布并写入指标
func RefreshEmotionWindow(ctx context.Context, store windowCounter, m *metrics.Metrics, log *logger.Logger) {
	counts, err := store.WindowCounts(ctx, time.Now().Add(-common.StatsWindow))
	if err != nil {
		log.Warn("刷新情绪分布指标失败", "error", err)
		return
	}
	m.SetEmotionWindow(counts)
	log.Debug("情绪分布指标已刷新", "labels", len(counts))
}

// StartScheduler 启动定时任务，ctx 取消后退出
func StartScheduler(ctx context.Context, store windowCounter, m *metrics.Metrics, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		log.Info("定时任务未启用")
		return
	}
	log.Info("启动定时任务调度器...", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		RefreshEmotionWindow(ctx, store, m, log)
		for {
			select {
			case <-ctx.Done():
				log.Info("定时任务调度器退出")
				return
			case <-ticker.C:
				RefreshEmotionWindow(ctx, store, m, log)
			}
		}
	}()
}
