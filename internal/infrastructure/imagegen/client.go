// Package imagegen 提供基于 Gemini 的图像生成客户端
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/genai"

	"aipen-studio-api/internal/config"
)

// Client 图像生成客户端，输出 data URI 形式的 PNG
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient 创建图像生成客户端
func NewClient(ctx context.Context, cfg *config.ImageConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("image api key is not set")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:  genaiClient,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// GenerateImage 按提示词与宽高比生成一张图片
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspectRatio,
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("image generation request failed: %w", err)
	}

	// 响应里文本和图片部件混排，取第一张图片
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				encoded := base64.StdEncoding.EncodeToString(part.InlineData.Data)
				return "data:image/png;base64," + encoded, nil
			}
		}
	}

	return "", fmt.Errorf("model returned no image data")
}
