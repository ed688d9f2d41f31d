package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider 使用令牌桶限制对上游的调用频率。
type RateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider 包装 provider。rps <= 0 时不限速，直接返回原 provider。
func NewRateLimitedProvider(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed 等待令牌后调用底层 provider。
func (p *RateLimitedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.Embed(ctx, texts)
}

// EmbedSingle 等待令牌后调用底层 provider。
func (p *RateLimitedProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.EmbedSingle(ctx, text)
}

// Chat 等待令牌后调用底层 provider。
func (p *RateLimitedProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.Provider.Chat(ctx, messages)
}

// Generate 等待令牌后调用底层 provider。
func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.Provider.Generate(ctx, prompt, systemPrompt)
}
