package emotion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	langopenai "github.com/tmc/langchaingo/llms/openai"
)

const classifyPrompt = "Look at the person's face in this webcam frame. " +
	"Answer with exactly one word from: angry, disgust, fear, happy, sad, surprise, neutral."

// LLMClassifier 通过多模态大模型识别情绪
type LLMClassifier struct {
	model llms.Model
}

func NewLLMClassifier(cfg Config) (*LLMClassifier, error) {
	opts := []langopenai.Option{
		langopenai.WithToken(cfg.LLMAPIKey),
		langopenai.WithModel(cfg.LLMModel),
		langopenai.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
	}
	if cfg.LLMBaseURL != "" {
		opts = append(opts, langopenai.WithBaseURL(cfg.LLMBaseURL))
	}
	llm, err := langopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("emotion llm client: %w", err)
	}
	return NewLLMClassifierWithModel(llm), nil
}

func NewLLMClassifierWithModel(model llms.Model) *LLMClassifier {
	return &LLMClassifier{model: model}
}

func (l *LLMClassifier) Name() string { return BackendLLM }

func (l *LLMClassifier) Classify(ctx context.Context, frame *Frame) (Label, error) {
	msgs := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(classifyPrompt),
			llms.ImageURLPart(frame.DataURL()),
		},
	}}
	resp, err := l.model.GenerateContent(ctx, msgs, llms.WithMaxTokens(8), llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("emotion llm: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("emotion llm: empty response")
	}
	label, ok := FindLabel(resp.Choices[0].Content)
	if !ok {
		return "", fmt.Errorf("emotion llm: no label in %q", resp.Choices[0].Content)
	}
	return label, nil
}
