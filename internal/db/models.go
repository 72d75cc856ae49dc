package db

import (
	"time"
)

// EmotionLog 情绪识别记录，只追加不修改
type EmotionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:255;index:idx_emotion_user_time,priority:1" json:"user_id"`
	Emotion   string    `gorm:"size:32" json:"emotion"`
	Timestamp time.Time `gorm:"column:timestamp;index:idx_emotion_user_time,priority:2" json:"timestamp"`
}

func (EmotionLog) TableName() string { return "emotion_logs" }

// ChatLog 聊天记录表
// user_message: 用户输入
// bot_response: 模型回复（失败时为兜底文案）
// emotion: 本轮对话使用的情绪标签
type ChatLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:255;index" json:"user_id"`
	UserMessage string    `gorm:"type:text" json:"user_message"`
	BotResponse string    `gorm:"type:text" json:"bot_response"`
	Emotion     string    `gorm:"size:32" json:"emotion"`
	Timestamp   time.Time `gorm:"column:timestamp;index" json:"timestamp"`
}

func (ChatLog) TableName() string { return "chat_logs" }
