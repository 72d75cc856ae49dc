package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emochat-backend/internal/common"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

// EmotionStats 情绪分布，labels 与 data 一一对应，data 为百分比
type EmotionStats struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// EmptyStats 序列化为 [] 而不是 null
func EmptyStats() EmotionStats {
	return EmotionStats{Labels: []string{}, Data: []float64{}}
}

// Store 情绪与聊天日志的读写，每个操作独立事务。
// 时间统一存 UTC，sqlite 按文本比较时间列
type Store struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStore(gdb *gorm.DB, log *logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		db:      gdb,
		log:     log.With("component", "store"),
		metrics: m,
		now:     time.Now,
	}
}

// LogEmotion 写入一条情绪记录。失败时记录日志并返回错误，调用方可忽略
func (s *Store) LogEmotion(ctx context.Context, userID, emotion string, ts time.Time) error {
	row := EmotionLog{
		UserID:    common.UserOrAnonymous(userID),
		Emotion:   emotion,
		Timestamp: ts.UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	s.metrics.RecordStoreOperation("log_emotion", err)
	if err != nil {
		s.log.Error("Error logging emotion", "user_id", row.UserID, "emotion", emotion, "error", err)
		return fmt.Errorf("log emotion: %w", err)
	}
	return nil
}

// LogChat 写入一轮对话，失败处理同 LogEmotion
func (s *Store) LogChat(ctx context.Context, userID, userMessage, botResponse, emotion string, ts time.Time) error {
	row := ChatLog{
		UserID:      common.UserOrAnonymous(userID),
		UserMessage: userMessage,
		BotResponse: botResponse,
		Emotion:     emotion,
		Timestamp:   ts.UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	s.metrics.RecordStoreOperation("log_chat", err)
	if err != nil {
		s.log.Error("Error logging chat", "user_id", row.UserID, "emotion", emotion, "error", err)
		return fmt.Errorf("log chat: %w", err)
	}
	return nil
}

type labelCount struct {
	Emotion string
	Count   int64
}

// EmotionStats 统计用户最近 7 天的情绪占比。无数据或查询失败均返回空结果，失败时附带错误
func (s *Store) EmotionStats(ctx context.Context, userID string) (EmotionStats, error) {
	userID = common.UserOrAnonymous(userID)
	since := s.now().UTC().Add(-common.StatsWindow)

	var rows []labelCount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&EmotionLog{}).
			Select("emotion, COUNT(*) AS count").
			Where("user_id = ?", userID).
			Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: since}).
			Group("emotion").
			Order("emotion").
			Scan(&rows).Error
	})
	s.metrics.RecordStoreOperation("emotion_stats", err)
	if err != nil {
		s.log.Error("Error fetching emotion stats", "user_id", userID, "error", err)
		return EmptyStats(), fmt.Errorf("emotion stats: %w", err)
	}
	return percentages(rows), nil
}

func percentages(rows []labelCount) EmotionStats {
	var total int64
	for _, r := range rows {
		total += r.Count
	}
	stats := EmptyStats()
	if total == 0 {
		return stats
	}
	for _, r := range rows {
		stats.Labels = append(stats.Labels, r.Emotion)
		stats.Data = append(stats.Data, float64(r.Count)/float64(total)*100)
	}
	return stats
}

// ChatHistory 最近的对话，新的在前。limit 非法时取默认值，超过上限时截断
func (s *Store) ChatHistory(ctx context.Context, userID string, limit int) ([]ChatLog, error) {
	if limit <= 0 {
		limit = common.DefaultHistoryLimit
	}
	if limit > common.MaxHistoryLimit {
		limit = common.MaxHistoryLimit
	}
	userID = common.UserOrAnonymous(userID)

	records := make([]ChatLog, 0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ?", userID).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
			Order("id desc").
			Limit(limit).
			Find(&records).Error
	})
	s.metrics.RecordStoreOperation("chat_history", err)
	if err != nil {
		s.log.Error("Error fetching chat history", "user_id", userID, "error", err)
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return records, nil
}

// WindowCounts 所有用户 since 之后的情绪计数，供指标刷新
func (s *Store) WindowCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []labelCount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&EmotionLog{}).
			Select("emotion, COUNT(*) AS count").
			Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: since.UTC()}).
			Group("emotion").
			Scan(&rows).Error
	})
	s.metrics.RecordStoreOperation("window_counts", err)
	if err != nil {
		return nil, fmt.Errorf("window counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Emotion] = r.Count
	}
	return counts, nil
}
