package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"emochat-backend/internal/common"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	cfg := Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "data", "chat.db")}
	gdb, err := Open(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(gdb, logger.Nop(), metrics.New()), gdb
}

// 测试 sqlite 文件目录自动创建
func TestOpenCreatesSQLiteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	gdb, err := Open(Config{Driver: DriverSQLite, DSN: filepath.Join(dir, "chat.db")}, logger.Nop())
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()

	_, err = os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, gdb.Migrator().HasTable(&EmotionLog{}))
	assert.True(t, gdb.Migrator().HasTable(&ChatLog{}))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle", DSN: "x"}, logger.Nop())
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Driver: DriverMySQL}.Validate())
	assert.Error(t, Config{Driver: "mongo", DSN: "x"}.Validate())
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/emochat")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/emochat", cfg.DSN)
	assert.Equal(t, 4, cfg.MaxOpenConns)
}

// 兼容旧的 MYSQL_DSN 变量
func TestConfigLegacyMySQLDSN(t *testing.T) {
	t.Setenv("MYSQL_DSN", "root:123456@tcp(127.0.0.1:3306)/emochat?parseTime=True")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "root:123456@tcp(127.0.0.1:3306)/emochat?parseTime=True", cfg.DSN)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@localhost:5432/db", maskDSN("postgres://u:p@localhost:5432/db"))
	assert.Equal(t, "***@tcp(127.0.0.1:3306)/js", maskDSN("root:123456@tcp(127.0.0.1:3306)/js"))
	assert.Equal(t, "db/chat.db", maskDSN("db/chat.db"))
}

// 测试模型表名
func TestTableNames(t *testing.T) {
	assert.Equal(t, "emotion_logs", EmotionLog{}.TableName())
	assert.Equal(t, "chat_logs", ChatLog{}.TableName())
}

func TestLogEmotionAppendsRow(t *testing.T) {
	store, gdb := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogEmotion(ctx, "u1", "happy", time.Now()))
	require.NoError(t, store.LogEmotion(ctx, "", "sad", time.Now()))

	var rows []EmotionLog
	require.NoError(t, gdb.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, "happy", rows[0].Emotion)
	assert.Equal(t, common.AnonymousUser, rows[1].UserID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestLogChatAppendsRow(t *testing.T) {
	store, gdb := newTestStore(t)

	require.NoError(t, store.LogChat(context.Background(), "", "hi", "hello!", "neutral", time.Now()))

	var row ChatLog
	require.NoError(t, gdb.First(&row).Error)
	assert.Equal(t, common.AnonymousUser, row.UserID)
	assert.Equal(t, "hi", row.UserMessage)
	assert.Equal(t, "hello!", row.BotResponse)
	assert.Equal(t, "neutral", row.Emotion)
	assert.False(t, row.Timestamp.IsZero())
}

// 写入失败返回错误，不 panic
func TestLogWriteFailureReturnsError(t *testing.T) {
	store, gdb := newTestStore(t)
	require.NoError(t, gdb.Migrator().DropTable(&ChatLog{}, &EmotionLog{}))

	assert.Error(t, store.LogChat(context.Background(), "u1", "hi", "hello", "neutral", time.Now()))
	assert.Error(t, store.LogEmotion(context.Background(), "u1", "happy", time.Now()))
}

func TestEmotionStatsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	stats, err := store.EmotionStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, []string{}, stats.Labels)
	assert.Equal(t, []float64{}, stats.Data)
}

func TestEmotionStatsPercentages(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.LogEmotion(ctx, "u1", "happy", now.Add(-time.Duration(i)*time.Hour)))
	}
	require.NoError(t, store.LogEmotion(ctx, "u1", "sad", now.Add(-48*time.Hour)))
	// 其他用户与窗口外的数据不计入
	require.NoError(t, store.LogEmotion(ctx, "u2", "angry", now))
	require.NoError(t, store.LogEmotion(ctx, "u1", "angry", now.Add(-8*24*time.Hour)))

	stats, err := store.EmotionStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad"}, stats.Labels)
	assert.Equal(t, []float64{75.0, 25.0}, stats.Data)
}

func TestEmotionStatsSumsToHundred(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	for _, label := range []string{"happy", "sad", "angry", "happy", "neutral", "fear", "neutral"} {
		require.NoError(t, store.LogEmotion(ctx, "u1", label, time.Now()))
	}

	stats, err := store.EmotionStats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stats.Data, len(stats.Labels))

	var sum float64
	for _, v := range stats.Data {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

// 以固定时钟验证 7 天窗口边界
func TestEmotionStatsWindowBoundary(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.LogEmotion(ctx, "u1", "happy", now.Add(-common.StatsWindow+time.Minute)))
	require.NoError(t, store.LogEmotion(ctx, "u1", "sad", now.Add(-common.StatsWindow-time.Minute)))

	stats, err := store.EmotionStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"happy"}, stats.Labels)
	assert.Equal(t, []float64{100.0}, stats.Data)
}

// 查询失败返回空结果与错误
func TestEmotionStatsQueryFailure(t *testing.T) {
	store, gdb := newTestStore(t)
	require.NoError(t, gdb.Migrator().DropTable(&EmotionLog{}))

	stats, err := store.EmotionStats(context.Background(), "u1")
	assert.Error(t, err)
	assert.Equal(t, EmptyStats(), stats)
}

func TestChatHistoryNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, msg := range []string{"first", "second", "third"} {
		require.NoError(t, store.LogChat(ctx, "u1", msg, "reply", "neutral", base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, store.LogChat(ctx, "u2", "other", "reply", "neutral", time.Now()))

	records, err := store.ChatHistory(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].UserMessage)
	assert.Equal(t, "second", records[1].UserMessage)

	// 非法 limit 使用默认值
	records, err = store.ChatHistory(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestWindowCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.LogEmotion(ctx, "u1", "happy", now))
	require.NoError(t, store.LogEmotion(ctx, "u2", "happy", now))
	require.NoError(t, store.LogEmotion(ctx, "u2", "sad", now))
	require.NoError(t, store.LogEmotion(ctx, "u3", "angry", now.Add(-30*24*time.Hour)))

	counts, err := store.WindowCounts(ctx, now.Add(-common.StatsWindow))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"happy": 2, "sad": 1}, counts)
}
