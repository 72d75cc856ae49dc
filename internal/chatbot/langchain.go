package chatbot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	langopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
)

// LangChainGenerator 通过 langchaingo 调用 OpenAI 兼容接口
type LangChainGenerator struct {
	chain *chains.LLMChain
}

func NewLangChainGenerator(cfg Config) (*LangChainGenerator, error) {
	opts := []langopenai.Option{
		langopenai.WithToken(cfg.APIKey),
		langopenai.WithModel(cfg.Model),
		langopenai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, langopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := langopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return NewLangChainGeneratorWithModel(llm), nil
}

func NewLangChainGeneratorWithModel(model llms.Model) *LangChainGenerator {
	tmpl := prompts.NewPromptTemplate("{{.prefix}}{{.input}}", []string{"prefix", "input"})
	return &LangChainGenerator{chain: chains.NewLLMChain(model, tmpl)}
}

func (g *LangChainGenerator) Name() string { return BackendOpenAI }

func (g *LangChainGenerator) Generate(ctx context.Context, prefix, input string, maxTokens int) (string, error) {
	out, err := chains.Predict(ctx, g.chain,
		map[string]any{"prefix": prefix, "input": input},
		chains.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("llm chain: %w", err)
	}
	return out, nil
}
