package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

type anthropicProvider struct {
	key       string
	transport *transport
}

func (p *anthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Call(ctx context.Context, systemInstruction, userQuery, model string) (Response, error) {
	if p.key == "" {
		return Response{}, fmt.Errorf("anthropic provider: missing API key")
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	var result anthropicResponse
	req := p.transport.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", p.key).
		SetHeader("anthropic-version", anthropicVersion).
		SetBody(anthropicRequest{
			Model:     model,
			MaxTokens: 4096,
			System:    systemInstruction,
			Messages:  []chatMessage{{Role: "user", Content: userQuery}},
		}).
		SetResult(&result)

	resp, err := p.transport.do(ctx, "POST", anthropicBaseURL+"/messages", req)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic provider: %w", err)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return Response{}, fmt.Errorf("anthropic provider: empty response")
	}

	return Response{Text: sb.String(), RawResponse: resp.String()}, nil
}
