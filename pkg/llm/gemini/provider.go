// Package gemini 提供 Google Gemini 供应商实现。
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/llm"
	"github.com/kart-io/bookrag/pkg/utils/httpclient"
)

const ProviderName = "gemini"

// batchEmbedContents 单次请求的最大文本数。
const maxBatchSize = 100

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Gemini 供应商配置。
type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	APIKey     string        `json:"-" mapstructure:"api_key"`
	EmbedModel string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。默认不重试。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		EmbedModel: "text-embedding-004",
		ChatModel:  "gemini-1.5-flash",
		Timeout:    60 * time.Second,
	}
}

// Provider Gemini 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Gemini 供应商。缺少 api_key 时返回配置错误。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}

	return NewProviderWithConfig(cfg)
}

// NewProviderWithConfig 使用结构化配置创建 Gemini 供应商。
func NewProviderWithConfig(cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.ErrConfiguration.WithMessage("gemini api key is not configured (set GEMINI_API_KEY)")
	}
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入，超过单批上限时分批请求。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := modelPath(p.config.EmbedModel)
	url := fmt.Sprintf("%s/%s:batchEmbedContents", p.config.BaseURL, model)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))

		req := batchEmbedRequest{Requests: make([]embedContentRequest, 0, end-start)}
		for _, text := range texts[start:end] {
			req.Requests = append(req.Requests, embedContentRequest{
				Model:   model,
				Content: content{Parts: []part{{Text: text}}},
			})
		}

		var resp batchEmbedResponse
		if err := p.client.DoJSON(ctx, http.MethodPost, url, p.header(), req, &resp); err != nil {
			return nil, fmt.Errorf("gemini embed 请求失败: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini 返回 %d 个向量，期望 %d 个", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			result = append(result, e.Values)
		}
	}

	return result, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("gemini 未返回向量嵌入")
	}
	return embeddings[0], nil
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Chat 进行多轮对话。system 消息转为 systemInstruction，assistant 角色映射为 model。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	system, rest := llm.SplitMessages(messages)

	req := generateRequest{Contents: make([]content, 0, len(rest))}
	for _, m := range rest {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	url := fmt.Sprintf("%s/%s:generateContent", p.config.BaseURL, modelPath(p.config.ChatModel))

	var resp generateResponse
	if err := p.client.DoJSON(ctx, http.MethodPost, url, p.header(), req, &resp); err != nil {
		return "", fmt.Errorf("gemini generate 请求失败: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini 拒绝了请求: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini 未返回候选结果")
	}

	var sb strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	return sb.String(), nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	return p.Chat(ctx, llm.GenerateMessages(prompt, systemPrompt))
}

// header 通过请求头传递 API key，避免 key 出现在 URL 与日志中。
func (p *Provider) header() http.Header {
	h := http.Header{}
	h.Set("x-goog-api-key", p.config.APIKey)
	return h
}

func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

var _ llm.Provider = (*Provider)(nil)
