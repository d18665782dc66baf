package assessment

import (
	"context"
	"time"

	"hyperliquid-agent-bot-go/internal/llmparse"
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteExecutor forwards decisions to another instance's trade endpoint
// instead of holding an exchange client itself. It lets a read-only
// deployment run assessments while a single writer owns order submission.
type RemoteExecutor struct {
	client *resty.Client
	logger *zap.Logger
}

// NewRemoteExecutor creates an executor posting to baseURL. serviceKey is
// sent as a bearer token when non-empty.
func NewRemoteExecutor(baseURL, serviceKey string, logger *zap.Logger) *RemoteExecutor {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	if serviceKey != "" {
		client.SetAuthToken(serviceKey)
	}
	return &RemoteExecutor{client: client, logger: logger}
}

type remoteTradeRequest struct {
	AgentID  string               `json:"agent_id"`
	Action   llmparse.TradeAction `json:"action"`
	Simulate bool                 `json:"simulate"`
}

type remoteTradeResponse struct {
	Success      bool          `json:"success"`
	TradeResults []TradeResult `json:"trade_results"`
	Error        string        `json:"error"`
}

// Execute posts one decision and returns the remote result.
func (e *RemoteExecutor) Execute(ctx context.Context, agent *models.Agent, d Decision, simulate bool) TradeResult {
	result := TradeResult{Action: d.Action.Action, Asset: d.Action.Asset, Simulated: simulate}

	var body remoteTradeResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(remoteTradeRequest{AgentID: agent.ID, Action: d.Action, Simulate: simulate}).
		SetResult(&body).
		SetError(&body).
		Post("/execute_hyperliquid_trade")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if resp.IsError() || !body.Success {
		result.Error = body.Error
		if result.Error == "" {
			result.Error = resp.Status()
		}
		return result
	}

	if len(body.TradeResults) == 0 {
		// The remote reconciler dropped the decision, usually a close with
		// no matching position on its side of the ledger.
		e.logger.Warn("Remote executor returned no result",
			zap.String("agent", agent.ID),
			zap.String("asset", d.Action.Asset))
		result.Error = "remote returned no trade result"
		return result
	}
	return body.TradeResults[0]
}
