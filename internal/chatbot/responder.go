package chatbot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"emochat-backend/internal/emotion"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
)

// Reply 生成结果。Fallback 为 true 时 Text 为兜底文案，Err 为原始错误
type Reply struct {
	Text     string
	Emotion  emotion.Label
	Fallback bool
	Err      error
}

// Responder 按情绪生成回复，不保留对话历史
type Responder struct {
	gen       Generator
	maxTokens int
	log       *logger.Logger
	metrics   *metrics.Metrics

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Responder)

// WithRand 指定随机源，测试用
func WithRand(r *rand.Rand) Option {
	return func(rs *Responder) { rs.rnd = r }
}

func NewResponder(gen Generator, maxTokens int, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Responder {
	r := &Responder{
		gen:       gen,
		maxTokens: maxTokens,
		log:       log.With("component", "chatbot", "backend", gen.Name()),
		metrics:   m,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Backend() string { return r.gen.Name() }

// GenerateResponse 拼接情绪前缀后调用模型。任何失败都返回固定道歉文案
func (r *Responder) GenerateResponse(ctx context.Context, userText string, label emotion.Label) (reply Reply) {
	ctx, span := otel.Tracer("emochat/chatbot").Start(ctx, "chatbot.generate")
	defer span.End()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			reply = Reply{Text: Apology, Emotion: label, Fallback: true, Err: fmt.Errorf("generator panic: %v", p)}
		}
		span.SetAttributes(
			attribute.String("llm.backend", r.gen.Name()),
			attribute.String("emotion.label", label.String()),
			attribute.Bool("llm.fallback", reply.Fallback),
		)
		if reply.Err != nil {
			span.SetStatus(codes.Error, reply.Err.Error())
			r.log.Error("Chatbot response generation failed", "emotion", label, "error", reply.Err)
		}
		r.metrics.RecordGeneration(r.gen.Name(), reply.Fallback, time.Since(start))
	}()

	out, err := r.gen.Generate(ctx, PromptPrefix(label), userText, r.maxTokens)
	if err != nil {
		return Reply{Text: Apology, Emotion: label, Fallback: true, Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Reply{Text: Apology, Emotion: label, Fallback: true, Err: ErrEmptyReply}
	}
	return Reply{Text: out, Emotion: label}
}

// GenerateEmotionResponse 模板问句加一条随机追问，不调用模型
func (r *Responder) GenerateEmotionResponse(label emotion.Label) string {
	question := fmt.Sprintf("Why are you %s like that?", label)
	if label == emotion.Neutral {
		question = "You seem calm right now. Why are you feeling neutral like that?"
	}
	options := FollowUps(label)

	r.mu.Lock()
	pick := options[r.rnd.IntN(len(options))]
	r.mu.Unlock()

	return question + " " + pick
}
