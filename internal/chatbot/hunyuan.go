package chatbot

import (
	"context"
	"fmt"
	"time"

	tccommon "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	v20230901 "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/hunyuan/v20230901"
)

const hunyuanEndpoint = "hunyuan.ap-guangzhou.tencentcloudapi.com"

type hunyuanClient interface {
	ChatCompletionsWithContext(ctx context.Context, req *v20230901.ChatCompletionsRequest) (*v20230901.ChatCompletionsResponse, error)
}

// HunyuanGenerator 使用腾讯云官方 Go SDK，非流式调用
type HunyuanGenerator struct {
	client hunyuanClient
	model  string
}

func NewHunyuanGenerator(cfg Config) (*HunyuanGenerator, error) {
	credential := tccommon.NewCredential(cfg.HunyuanSecretID, cfg.HunyuanSecret)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = hunyuanEndpoint
	if secs := reqTimeoutSeconds(cfg.Timeout); secs > 0 {
		cpf.HttpProfile.ReqTimeout = secs
	}
	client, err := v20230901.NewClient(credential, cfg.HunyuanRegion, cpf)
	if err != nil {
		return nil, fmt.Errorf("hunyuan client: %w", err)
	}
	model := cfg.Model
	if model == "" || model == DefaultConfig().Model {
		model = "hunyuan-lite"
	}
	return &HunyuanGenerator{client: client, model: model}, nil
}

// reqTimeoutSeconds SDK 超时以秒为单位，不足一秒向上取整
func reqTimeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func (g *HunyuanGenerator) Name() string { return BackendHunyuan }

// Generate 混元接口没有输出长度参数，maxTokens 不生效
func (g *HunyuanGenerator) Generate(ctx context.Context, prefix, input string, _ int) (string, error) {
	req := v20230901.NewChatCompletionsRequest()
	req.Model = tccommon.StringPtr(g.model)
	req.Stream = tccommon.BoolPtr(false)
	req.Messages = []*v20230901.Message{{
		Role:    tccommon.StringPtr("user"),
		Content: tccommon.StringPtr(prefix + input),
	}}

	resp, err := g.client.ChatCompletionsWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("hunyuan chat completions: %w", err)
	}
	if resp == nil || resp.Response == nil || len(resp.Response.Choices) == 0 {
		return "", ErrEmptyReply
	}
	choice := resp.Response.Choices[0]
	if choice.Message == nil || choice.Message.Content == nil {
		return "", ErrEmptyReply
	}
	return *choice.Message.Content, nil
}
