package common

import "time"

const (
	// AnonymousUser 未携带 user_id 的请求统一归入该用户
	AnonymousUser = "anonymous"

	// StatsWindow 情绪统计的回溯窗口
	StatsWindow = 7 * 24 * time.Hour

	MaxHistoryLimit     = 100
	DefaultHistoryLimit = 20
)

// 对客户端暴露的错误信息，内部原因只写日志
const (
	ErrMsgInternal        = "Internal server error"
	ErrMsgDetectFailed    = "Emotion detection failed"
	ErrMsgChatFailed      = "Chat processing failed"
	ErrMsgStatsFailed     = "Failed to fetch stats"
	ErrMsgEmotionResponse = "Emotion response failed"
	ErrMsgHistoryFailed   = "Failed to fetch history"
)

// UserOrAnonymous 空 user_id 归入匿名用户
func UserOrAnonymous(userID string) string {
	if userID == "" {
		return AnonymousUser
	}
	return userID
}
