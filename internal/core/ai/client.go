package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/arpheno/mealprep/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// Client OpenAI 相容的 chat completions 客戶端
type Client struct {
	config *config.OpenAIConfig
	client *resty.Client
}

// NewClient 創建 AI 客戶端
func NewClient(cfg *config.OpenAIConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetTimeout(cfg.Timeout)

	return &Client{
		config: cfg,
		client: client,
	}
}

// Chat 送出 system + user 兩則訊息，回傳第一個 choice 的內容
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	req := map[string]interface{}{
		"model": c.config.Model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		// 溫度壓低，營養數值要穩定
		"temperature": 0.3,
		"max_tokens":  c.config.MaxTokens,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send chat request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("chat API returned error: %s", resp.String())
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}
	return result.Choices[0].Message.Content, nil
}
