package logic

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"emochat-backend/internal/common"
)

// Config HTTP 服务配置
// allow_origins: 含 "*" 时放开所有来源
// capture_interval: 前端采集画面的间隔
type Config struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	Title           string        `yaml:"title"`
	CaptureInterval time.Duration `yaml:"capture_interval"`
	MaxFrameSide    int           `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Mode:            "release",
		AllowOrigins:    []string{"*"},
		Title:           "Emotion-Aware Chatbot",
		CaptureInterval: 2 * time.Second,
	}
}

func (c *Config) ApplyEnv() error {
	common.EnvString("SERVER_ADDR", &c.Addr)
	common.EnvString("GIN_MODE", &c.Mode)
	common.EnvList("CORS_ALLOW_ORIGINS", &c.AllowOrigins)
	return common.EnvDuration("CAPTURE_INTERVAL", &c.CaptureInterval)
}

func (c Config) Validate() error {
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("unknown gin mode %q", c.Mode)
	}
}
