package providers

import (
	"context"
	"fmt"

	"kiwi/internal/pkg/ark"
)

// ArkProvider Ark 实现的 LLM 提供者（使用 pkg/ark 的 LLMClient，直连官方 SDK）
// 实现了 scripttools.LLMProvider 接口
type ArkProvider struct {
	client *ark.LLMClient
}

// NewArkProvider 创建基于 Ark 的 LLM 提供者
func NewArkProvider(client *ark.LLMClient) *ArkProvider {
	return &ArkProvider{
		client: client,
	}
}

// Generate 根据提示词生成文本（使用 Ark LLM 客户端）
func (p *ArkProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("ark client is required")
	}
	return p.client.ChatCompletionSimple(ctx, prompt)
}
