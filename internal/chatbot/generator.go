package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"emochat-backend/internal/common"
)

var (
	ErrEmptyReply     = errors.New("empty reply from model")
	ErrUnknownBackend = errors.New("unknown llm backend")
)

const (
	BackendOpenAI  = "openai"
	BackendHunyuan = "hunyuan"
	BackendArk     = "ark"
)

// Generator 文本生成后端。prefix 为情绪前缀，input 为用户原文
type Generator interface {
	Generate(ctx context.Context, prefix, input string, maxTokens int) (string, error)
	Name() string
}

// Config 大模型配置
// backend: openai（任意 OpenAI 兼容接口）| hunyuan | ark
type Config struct {
	Backend         string        `yaml:"backend"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	HunyuanSecretID string        `yaml:"hunyuan_secret_id"`
	HunyuanSecret   string        `yaml:"hunyuan_secret_key"`
	HunyuanRegion   string        `yaml:"hunyuan_region"`
	ArkAPIKey       string        `yaml:"ark_api_key"`
	ArkModel        string        `yaml:"ark_model"`
	ArkBaseURL      string        `yaml:"ark_base_url"`
}

func DefaultConfig() Config {
	return Config{
		Backend:    BackendOpenAI,
		Model:      "gpt-4o-mini",
		MaxTokens:  100,
		Timeout:    30 * time.Second,
		ArkBaseURL: "https://ark.cn-beijing.volces.com/api/v3",
	}
}

func (c *Config) ApplyEnv() error {
	common.EnvString("LLM_BACKEND", &c.Backend)
	common.EnvString("LLM_BASE_URL", &c.BaseURL)
	common.EnvString("LLM_MODEL", &c.Model)
	common.EnvString("LLM_API_KEY", &c.APIKey)
	if err := common.EnvInt("LLM_MAX_TOKENS", &c.MaxTokens); err != nil {
		return err
	}
	if err := common.EnvDuration("LLM_TIMEOUT", &c.Timeout); err != nil {
		return err
	}
	common.EnvString("TENCENTCLOUD_SECRETID", &c.HunyuanSecretID)
	common.EnvString("TENCENTCLOUD_SECRETKEY", &c.HunyuanSecret)
	common.EnvString("HUNYUAN_REGION", &c.HunyuanRegion)
	common.EnvString("ARK_API_KEY", &c.ArkAPIKey)
	common.EnvString("ARK_MODEL", &c.ArkModel)
	common.EnvString("ARK_BASE_URL", &c.ArkBaseURL)
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendOpenAI, BackendHunyuan, BackendArk:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// NewGenerator 按配置构造后端，客户端在进程内复用
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Backend) {
	case BackendHunyuan:
		return NewHunyuanGenerator(cfg)
	case BackendArk:
		return NewArkGenerator(ctx, cfg)
	default:
		return NewLangChainGenerator(cfg)
	}
}

type unavailable struct {
	name string
	err  error
}

// Unavailable 后端初始化失败时使用，每次调用都返回 err，回复降级为道歉文案
func Unavailable(name string, err error) Generator {
	return unavailable{name: name, err: err}
}

func (u unavailable) Generate(context.Context, string, string, int) (string, error) {
	return "", u.err
}

func (u unavailable) Name() string { return u.name }
