package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emochat-backend/internal/common"
	"emochat-backend/internal/logger"
)

const (
	BackendVision  = "vision"
	BackendLLM     = "llm"
	BackendNeutral = "neutral"
)

// Config 情绪识别配置
// backend: vision | llm | neutral
// credentials: Google 服务账号文件路径或 JSON 内容，空则走默认凭证链
// llm_*: backend 为 llm 时使用的多模态模型
type Config struct {
	Backend       string        `yaml:"backend"`
	MaxFrameSide  int           `yaml:"max_frame_side"`
	VisionTimeout time.Duration `yaml:"vision_timeout"`
	Credentials   string        `yaml:"credentials"`
	LLMModel      string        `yaml:"llm_model"`
	LLMBaseURL    string        `yaml:"llm_base_url"`
	LLMAPIKey     string        `yaml:"llm_api_key"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Backend:       BackendVision,
		MaxFrameSide:  DefaultMaxFrameSide,
		VisionTimeout: 10 * time.Second,
		LLMModel:      "gpt-4o-mini",
		LLMTimeout:    20 * time.Second,
	}
}

// ApplyEnv 环境变量覆盖
func (c *Config) ApplyEnv() error {
	common.EnvString("EMOTION_BACKEND", &c.Backend)
	if err := common.EnvInt("EMOTION_MAX_FRAME_SIDE", &c.MaxFrameSide); err != nil {
		return err
	}
	if err := common.EnvDuration("VISION_TIMEOUT", &c.VisionTimeout); err != nil {
		return err
	}
	common.EnvString("GOOGLE_APPLICATION_CREDENTIALS", &c.Credentials)
	common.EnvString("GOOGLE_APPLICATION_CREDENTIALS_JSON", &c.Credentials)
	common.EnvString("EMOTION_LLM_MODEL", &c.LLMModel)
	common.EnvString("EMOTION_LLM_BASE_URL", &c.LLMBaseURL)
	common.EnvString("EMOTION_LLM_API_KEY", &c.LLMAPIKey)
	return common.EnvDuration("EMOTION_LLM_TIMEOUT", &c.LLMTimeout)
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendVision, BackendLLM, BackendNeutral:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// NewClassifier 按配置构造后端
func NewClassifier(ctx context.Context, cfg Config, log *logger.Logger) (Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Backend) {
	case BackendVision:
		return NewVisionClassifier(ctx, cfg)
	case BackendLLM:
		return NewLLMClassifier(cfg)
	default:
		log.Warn("Emotion backend is static, every frame is neutral")
		return StaticClassifier{Label: Neutral}, nil
	}
}
