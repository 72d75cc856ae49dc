package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"emochat-backend/internal/chatbot"
	"emochat-backend/internal/common"
	"emochat-backend/internal/db"
	"emochat-backend/internal/emotion"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/logic"
	"emochat-backend/internal/tracing"
)

// MetricsConfig refresh_interval 为情绪分布指标的刷新周期，0 表示不刷新
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Config 优先级：环境变量 > CONFIG_FILE 指定的 YAML > 默认值
type Config struct {
	Server  logic.Config   `yaml:"server"`
	Log     logger.Config  `yaml:"log"`
	DB      db.Config      `yaml:"db"`
	Emotion emotion.Config `yaml:"emotion"`
	LLM     chatbot.Config `yaml:"llm"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Tracing tracing.Config `yaml:"tracing"`
}

func DefaultConfig() *Config {
	return &Config{
		Server:  logic.DefaultConfig(),
		Log:     logger.Config{Mode: "dev", Level: "info"},
		DB:      db.DefaultConfig(),
		Emotion: emotion.DefaultConfig(),
		LLM:     chatbot.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true, RefreshInterval: time.Minute},
		Tracing: tracing.Config{ServiceName: "emochat", SampleRatio: 0.1},
	}
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.derive()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	common.EnvString("LOG_MODE", &c.Log.Mode)
	common.EnvString("LOG_LEVEL", &c.Log.Level)

	appliers := []func() error{
		c.Server.ApplyEnv,
		c.DB.ApplyEnv,
		c.Emotion.ApplyEnv,
		c.LLM.ApplyEnv,
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return err
		}
	}

	if err := common.EnvBool("METRICS_ENABLED", &c.Metrics.Enabled); err != nil {
		return err
	}
	if err := common.EnvDuration("STATS_REFRESH_INTERVAL", &c.Metrics.RefreshInterval); err != nil {
		return err
	}

	if err := common.EnvBool("TRACING_ENABLED", &c.Tracing.Enabled); err != nil {
		return err
	}
	common.EnvString("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	common.EnvString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	if err := common.EnvBool("OTEL_EXPORTER_OTLP_INSECURE", &c.Tracing.Insecure); err != nil {
		return err
	}
	if v := os.Getenv("TRACING_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRACING_SAMPLE_RATIO: %w", err)
		}
		c.Tracing.SampleRatio = ratio
	}
	return nil
}

// derive 多模态识别默认复用对话模型的地址与密钥
func (c *Config) derive() {
	c.Server.MaxFrameSide = c.Emotion.MaxFrameSide
	if c.Emotion.LLMAPIKey == "" {
		c.Emotion.LLMAPIKey = c.LLM.APIKey
	}
	if c.Emotion.LLMBaseURL == "" {
		c.Emotion.LLMBaseURL = c.LLM.BaseURL
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.DB.Validate(); err != nil {
		return err
	}
	if err := c.Emotion.Validate(); err != nil {
		return err
	}
	return c.LLM.Validate()
}

func (c *Config) Print(log *logger.Logger) {
	log.Info("server config", "addr", c.Server.Addr, "mode", c.Server.Mode, "allow_origins", c.Server.AllowOrigins)
	c.DB.Print(log)
	log.Info("model config",
		"emotion_backend", c.Emotion.Backend,
		"llm_backend", c.LLM.Backend,
		"llm_model", c.LLM.Model,
		"llm_max_tokens", c.LLM.MaxTokens,
	)
	log.Info("observability config", "metrics", c.Metrics.Enabled, "tracing", c.Tracing.Enabled, "otlp_endpoint", c.Tracing.Endpoint)
}
