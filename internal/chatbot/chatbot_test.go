package chatbot

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v20230901 "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/hunyuan/v20230901"
	"github.com/tmc/langchaingo/llms"

	"emochat-backend/internal/emotion"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

type fakeGenerator struct {
	reply     string
	err       error
	gotPrefix string
	gotInput  string
	gotMax    int
}

func (f *fakeGenerator) Generate(_ context.Context, prefix, input string, maxTokens int) (string, error) {
	f.gotPrefix, f.gotInput, f.gotMax = prefix, input, maxTokens
	return f.reply, f.err
}

func (*fakeGenerator) Name() string { return "fake" }

func newResponder(gen Generator) *Responder {
	return NewResponder(gen, 100, logger.Nop(), nil, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestGenerateResponseSelectsPrefix(t *testing.T) {
	for _, label := range emotion.Known {
		gen := &fakeGenerator{reply: "ok"}
		reply := newResponder(gen).GenerateResponse(context.Background(), "hi", label)

		assert.Equal(t, "ok", reply.Text)
		assert.False(t, reply.Fallback)
		assert.Equal(t, emotionPrompts[label], gen.gotPrefix, label)
		assert.Equal(t, "hi", gen.gotInput)
		assert.Equal(t, 100, gen.gotMax)
	}
}

func TestGenerateResponseUnknownEmotionUsesNeutral(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	newResponder(gen).GenerateResponse(context.Background(), "hi", "bored")
	assert.Equal(t, "You are a friendly chatbot. Respond naturally: ", gen.gotPrefix)
}

func TestGenerateResponseTrims(t *testing.T) {
	reply := newResponder(&fakeGenerator{reply: "  hello there \n"}).GenerateResponse(context.Background(), "hi", emotion.Happy)
	assert.Equal(t, "hello there", reply.Text)
}

func TestGenerateResponseFallbacks(t *testing.T) {
	m := metrics.New()
	gen := &fakeGenerator{err: errors.New("connection refused")}
	r := NewResponder(gen, 100, logger.Nop(), m)

	reply := r.GenerateResponse(context.Background(), "hi", emotion.Sad)
	assert.Equal(t, Apology, reply.Text)
	assert.True(t, reply.Fallback)
	assert.Error(t, reply.Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("fake", "fallback")))

	reply = r.GenerateResponse(context.Background(), "hi", emotion.Sad)
	assert.Equal(t, Apology, reply.Text)

	gen.err = nil
	gen.reply = "   "
	reply = r.GenerateResponse(context.Background(), "hi", emotion.Sad)
	assert.Equal(t, Apology, reply.Text)
	assert.True(t, errors.Is(reply.Err, ErrEmptyReply))
}

func TestGenerateEmotionResponse(t *testing.T) {
	r := newResponder(&fakeGenerator{})
	happy := followUps[emotion.Happy]
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		out := r.GenerateEmotionResponse(emotion.Happy)
		require.True(t, strings.HasPrefix(out, "Why are you happy like that? "), out)
		tail := strings.TrimPrefix(out, "Why are you happy like that? ")
		assert.Contains(t, happy, tail)
		seen[tail] = true
	}
	assert.Len(t, seen, 2)
}

func TestGenerateEmotionResponseNeutral(t *testing.T) {
	r := newResponder(&fakeGenerator{})

	out := r.GenerateEmotionResponse(emotion.Neutral)
	assert.True(t, strings.HasPrefix(out, "You seem calm right now. Why are you feeling neutral like that? "))

	// 未知情绪沿用 neutral 追问
	out = r.GenerateEmotionResponse("bored")
	tail := strings.TrimPrefix(out, "Why are you bored like that? ")
	assert.Contains(t, followUps[emotion.Neutral], tail)
}

// 生成 emotion response 不调用模型
func TestGenerateEmotionResponseSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}
	newResponder(gen).GenerateEmotionResponse(emotion.Sad)
	assert.Empty(t, gen.gotPrefix)
}

type fakeLLM struct {
	reply  string
	prompt string
	opts   llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&f.opts)
	}
	for _, part := range msgs[0].Parts {
		if text, ok := part.(llms.TextContent); ok {
			f.prompt += text.Text
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainGenerator(t *testing.T) {
	llm := &fakeLLM{reply: "Great to hear!"}
	g := NewLangChainGeneratorWithModel(llm)

	out, err := g.Generate(context.Background(), PromptPrefix(emotion.Happy), "I got the job", 100)
	require.NoError(t, err)
	assert.Equal(t, "Great to hear!", out)
	assert.Equal(t, PromptPrefix(emotion.Happy)+"I got the job", llm.prompt)
	assert.Equal(t, 100, llm.opts.MaxTokens)
}

type fakeHunyuan struct {
	resp *v20230901.ChatCompletionsResponse
	err  error
	req  *v20230901.ChatCompletionsRequest
}

func (f *fakeHunyuan) ChatCompletionsWithContext(_ context.Context, req *v20230901.ChatCompletionsRequest) (*v20230901.ChatCompletionsResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestHunyuanGenerator(t *testing.T) {
	content := "Take a deep breath."
	client := &fakeHunyuan{resp: &v20230901.ChatCompletionsResponse{
		Response: &v20230901.ChatCompletionsResponseParams{
			Choices: []*v20230901.Choice{{Message: &v20230901.Message{Content: &content}}},
		},
	}}
	g := &HunyuanGenerator{client: client, model: "hunyuan-lite"}

	out, err := g.Generate(context.Background(), PromptPrefix(emotion.Angry), "ugh", 100)
	require.NoError(t, err)
	assert.Equal(t, content, out)
	require.Len(t, client.req.Messages, 1)
	assert.Equal(t, PromptPrefix(emotion.Angry)+"ugh", *client.req.Messages[0].Content)
	assert.False(t, *client.req.Stream)

	client.resp = &v20230901.ChatCompletionsResponse{}
	_, err = g.Generate(context.Background(), "", "ugh", 100)
	assert.True(t, errors.Is(err, ErrEmptyReply))
}

type fakeChatModel struct {
	reply string
	opts  *model.Options
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.opts = model.GetCommonOptions(nil, opts...)
	return schema.AssistantMessage(f.reply+" / "+input[0].Content, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestHunyuanReqTimeout(t *testing.T) {
	assert.Equal(t, 0, reqTimeoutSeconds(0))
	assert.Equal(t, 1, reqTimeoutSeconds(300*time.Millisecond))
	assert.Equal(t, 1, reqTimeoutSeconds(time.Second))
	assert.Equal(t, 2, reqTimeoutSeconds(1500*time.Millisecond))
	assert.Equal(t, 30, reqTimeoutSeconds(30*time.Second))
}

func TestArkGenerator(t *testing.T) {
	cm := &fakeChatModel{reply: "ark"}
	out, err := NewArkGeneratorWithModel(cm).Generate(context.Background(), "P: ", "hello", 64)
	require.NoError(t, err)
	assert.Equal(t, "ark / P: hello", out)
	require.NotNil(t, cm.opts.MaxTokens)
	assert.Equal(t, 64, *cm.opts.MaxTokens)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Backend = "dialogpt"
	assert.True(t, errors.Is(cfg.Validate(), ErrUnknownBackend))

	cfg = DefaultConfig()
	cfg.MaxTokens = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("LLM_BACKEND", "hunyuan")
	t.Setenv("LLM_MAX_TOKENS", "64")
	t.Setenv("TENCENTCLOUD_SECRETID", "id")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, BackendHunyuan, cfg.Backend)
	assert.Equal(t, 64, cfg.MaxTokens)
	assert.Equal(t, "id", cfg.HunyuanSecretID)
}

func TestUnavailableGenerator(t *testing.T) {
	gen := Unavailable(BackendOpenAI, errors.New("missing api key"))
	reply := newResponder(gen).GenerateResponse(context.Background(), "hi", emotion.Neutral)

	assert.Equal(t, BackendOpenAI, gen.Name())
	assert.Equal(t, Apology, reply.Text)
	assert.True(t, reply.Fallback)
}
