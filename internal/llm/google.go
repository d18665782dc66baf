package llm

import (
	"context"
	"fmt"
	"strings"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type googleProvider struct {
	key       string
	transport *transport
}

func (p *googleProvider) Name() string { return "google" }

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleRequest struct {
	SystemInstruction *googleContent  `json:"system_instruction,omitempty"`
	Contents          []googleContent `json:"contents"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

func (p *googleProvider) Call(ctx context.Context, systemInstruction, userQuery, model string) (Response, error) {
	if p.key == "" {
		return Response{}, fmt.Errorf("google provider: missing API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	body := googleRequest{
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: userQuery}}},
		},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &googleContent{Parts: []googlePart{{Text: systemInstruction}}}
	}

	var result googleResponse
	req := p.transport.client.R().
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", p.key).
		SetBody(body).
		SetResult(&result)

	url := fmt.Sprintf("%s/models/%s:generateContent", googleBaseURL, model)
	resp, err := p.transport.do(ctx, "POST", url, req)
	if err != nil {
		return Response{}, fmt.Errorf("google provider: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("google provider: empty response")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return Response{Text: sb.String(), RawResponse: resp.String()}, nil
}
