package llm

import (
	"context"
	"fmt"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	deepSeekBaseURL = "https://api.deepseek.com"
)

// openAIProvider covers both OpenAI and DeepSeek, which share the
// chat-completions request shape and differ only in base URL and defaults.
type openAIProvider struct {
	name      string
	baseURL   string
	key       string
	transport *transport
}

func (p *openAIProvider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) defaultModel() string {
	if p.name == "deepseek" {
		return "deepseek-chat"
	}
	return "gpt-4o-mini"
}

func (p *openAIProvider) Call(ctx context.Context, systemInstruction, userQuery, model string) (Response, error) {
	if p.key == "" {
		return Response{}, fmt.Errorf("%s provider: missing API key", p.name)
	}
	if model == "" {
		model = p.defaultModel()
	}

	messages := make([]chatMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userQuery})

	var result chatResponse
	req := p.transport.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.key).
		SetBody(chatRequest{Model: model, Messages: messages}).
		SetResult(&result)

	resp, err := p.transport.do(ctx, "POST", p.baseURL+"/chat/completions", req)
	if err != nil {
		return Response{}, fmt.Errorf("%s provider: %w", p.name, err)
	}

	if len(result.Choices) == 0 {
		return Response{}, fmt.Errorf("%s provider: empty response", p.name)
	}

	return Response{Text: result.Choices[0].Message.Content, RawResponse: resp.String()}, nil
}
