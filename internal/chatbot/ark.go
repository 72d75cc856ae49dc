package chatbot

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkGenerator 火山方舟模型，经 eino 调用
type ArkGenerator struct {
	model model.BaseChatModel
}

func NewArkGenerator(ctx context.Context, cfg Config) (*ArkGenerator, error) {
	timeout := cfg.Timeout
	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.ArkBaseURL,
		APIKey:  cfg.ArkAPIKey,
		Model:   cfg.ArkModel,
		Timeout: &timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ark chat model: %w", err)
	}
	return NewArkGeneratorWithModel(cm), nil
}

func NewArkGeneratorWithModel(m model.BaseChatModel) *ArkGenerator {
	return &ArkGenerator{model: m}
}

func (g *ArkGenerator) Name() string { return BackendArk }

func (g *ArkGenerator) Generate(ctx context.Context, prefix, input string, maxTokens int) (string, error) {
	msg, err := g.model.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prefix + input)},
		model.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("ark generate: %w", err)
	}
	if msg == nil {
		return "", ErrEmptyReply
	}
	return msg.Content, nil
}
