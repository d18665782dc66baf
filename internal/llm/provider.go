// Package llm holds the HTTP clients for the supported model providers.
// Each provider exposes the same Call contract; the registry resolves the
// provider named on the agent record, defaulting to google.
package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"hyperliquid-agent-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Response is the provider-agnostic result of one model call.
type Response struct {
	Text        string
	RawResponse string
}

// Provider is a single LLM backend.
type Provider interface {
	// Name returns the provider's registry key.
	Name() string

	// Call sends one system-instruction + user-query exchange to the model
	// and returns its text. A network or provider error is fatal for the
	// calling run and carries the provider's status text.
	Call(ctx context.Context, systemInstruction, userQuery, model string) (Response, error)
}

// Registry resolves providers by name.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry builds the provider set from configuration. Providers without
// an API key are still registered; they fail at call time with a clear error
// rather than silently disappearing from the registry.
func NewRegistry(cfg *config.LLM, logger *zap.Logger) *Registry {
	transport := newTransport(cfg, logger)

	providers := map[string]Provider{}
	for _, p := range []Provider{
		&googleProvider{key: cfg.GoogleAPIKey, transport: transport},
		&openAIProvider{name: "openai", baseURL: openAIBaseURL, key: cfg.OpenAIAPIKey, transport: transport},
		&anthropicProvider{key: cfg.AnthropicAPIKey, transport: transport},
		&openAIProvider{name: "deepseek", baseURL: deepSeekBaseURL, key: cfg.DeepSeekAPIKey, transport: transport},
	} {
		providers[p.Name()] = p
	}

	defaultName := strings.ToLower(cfg.DefaultProvider)
	if _, ok := providers[defaultName]; !ok {
		defaultName = "google"
	}

	return &Registry{providers: providers, defaultName: defaultName}
}

// Resolve returns the provider for name, falling back to the default for an
// empty or unknown name.
func (r *Registry) Resolve(name string) Provider {
	if p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return r.providers[r.defaultName]
}

// transport is the shared resty client with rate limiting and retry.
type transport struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

func newTransport(cfg *config.LLM, logger *zap.Logger) *transport {
	return &transport{
		client:  resty.New().SetTimeout(90 * time.Second),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// do executes the request with rate limiting and retry on 429/5xx, the same
// posture as the exchange client.
func (t *transport) do(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.SetContext(ctx).Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := true
		if resp != nil {
			code := resp.StatusCode()
			shouldRetry = code == http.StatusTooManyRequests || code >= 500
		}
		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		retryAfter := time.Duration(math.Pow(2, float64(i))) * time.Second
		t.logger.Warn("LLM request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
