package ark

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"kiwi/internal/config"
)

const (
	defaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultModel   = "doubao-seed-1-6-flash-250615"
)

// LLMClient Ark 客户端封装
// 用于调用火山引擎的 Ark API（豆包大模型），使用官方 volcengine-go-sdk
// 参考: https://github.com/volcengine/volcengine-go-sdk
type LLMClient struct {
	client      *arkruntime.Client
	model       string
	temperature float64
	maxTokens   int
	mu          sync.Mutex // 用于并发安全
}

// NewLLMClient 创建 Ark LLM 客户端
// 配置由上层显式传入，不读环境变量
func NewLLMClient(cfg *config.LLMConfig) (*LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Ark API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	temperature := cfg.Options.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	maxTokens := cfg.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8 * 1024
	}

	arkClient := arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL))

	return &LLMClient{
		client:      arkClient,
		model:       modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// ChatCompletionSimple 单轮对话：一个 user prompt 换一段文本
// 脚本生成只需要这一种调用方式
func (c *LLMClient) ChatCompletionSimple(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := prompt
	input := &model.ChatCompletionRequest{
		Model: c.model,
		Messages: []*model.ChatCompletionMessage{
			{
				Role:    "user",
				Content: &model.ChatCompletionMessageContent{StringValue: &content},
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
	}

	output, err := c.client.CreateChatCompletion(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("failed to call Ark ChatCompletion API")
		return "", fmt.Errorf("Ark API call failed: %w", err)
	}

	if len(output.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	msg := output.Choices[0].Message
	if msg.Content == nil || msg.Content.StringValue == nil {
		return "", fmt.Errorf("empty content in response")
	}

	return *msg.Content.StringValue, nil
}
