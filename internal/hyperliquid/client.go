// Package hyperliquid talks to the Hyperliquid perpetuals API and maps
// reconciled trade decisions into exchange-ready order payloads.
package hyperliquid

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/numeric"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	mainnetBaseURL = "https://api.hyperliquid.xyz"
	testnetBaseURL = "https://api.hyperliquid-testnet.xyz"
)

// Client is a client for the Hyperliquid info and exchange endpoints.
// Reads follow the process-wide network selection; order submission picks
// the network per call so each agent routes to the network it is flagged
// for.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter

	mainnetURL string
	testnetURL string
}

// NewClient creates a new Hyperliquid API client.
func NewClient(cfg *config.Exchange, logger *zap.Logger) *Client {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Hyperliquid Testnet")
	} else {
		url = mainnetBaseURL
		logger.Info("Using Hyperliquid Production API")
	}

	return &Client{
		client:     resty.New().SetBaseURL(url).SetTimeout(30 * time.Second),
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		mainnetURL: mainnetBaseURL,
		testnetURL: testnetBaseURL,
	}
}

// doRequest handles the actual request execution with rate limiting and
// retry logic.
func (c *Client) doRequest(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("url", url))
		resp, err = req.SetContext(ctx).Execute("POST", url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := true
		var retryAfter time.Duration
		if resp != nil {
			code := resp.StatusCode()
			if code == http.StatusTooManyRequests {
				if seconds, aErr := strconv.Atoi(resp.Header().Get("Retry-After")); aErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if code < 500 {
				shouldRetry = false
			}
		}
		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}
		c.logger.Warn("Request failed, retrying...",
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

// assetInfo and assetCtx mirror the two halves of the metaAndAssetCtxs
// response: static universe metadata and the live per-asset context.
type assetInfo struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
}

type assetCtx struct {
	MidPx        string `json:"midPx"`
	MarkPx       string `json:"markPx"`
	PrevDayPx    string `json:"prevDayPx"`
	Funding      string `json:"funding"`
	OpenInterest string `json:"openInterest"`
	DayNtlVlm    string `json:"dayNtlVlm"`
}

// MetaAndAssetCtxs fetches the full asset universe with live context. The
// asset id is the index of the asset in the universe array.
func (c *Client) MetaAndAssetCtxs(ctx context.Context) ([]AssetMeta, error) {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"type": "metaAndAssetCtxs"})

	resp, err := c.doRequest(ctx, "/info", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset metadata: %w", err)
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || len(payload) < 2 {
		return nil, fmt.Errorf("unexpected metaAndAssetCtxs response shape")
	}

	var meta struct {
		Universe []assetInfo `json:"universe"`
	}
	if err := json.Unmarshal(payload[0], &meta); err != nil {
		return nil, fmt.Errorf("failed to decode asset universe: %w", err)
	}

	var ctxs []assetCtx
	if err := json.Unmarshal(payload[1], &ctxs); err != nil {
		return nil, fmt.Errorf("failed to decode asset contexts: %w", err)
	}

	assets := make([]AssetMeta, 0, len(meta.Universe))
	for i, info := range meta.Universe {
		asset := AssetMeta{
			Ticker:      info.Name,
			AssetID:     i,
			SzDecimals:  info.SzDecimals,
			MaxLeverage: info.MaxLeverage,
		}
		if i < len(ctxs) {
			asset.MidPx = parseFloat(ctxs[i].MidPx)
			asset.FundingRate = parseFloat(ctxs[i].Funding)
			asset.OpenInterest = parseFloat(ctxs[i].OpenInterest)
			asset.DayVolume = parseFloat(ctxs[i].DayNtlVlm)
			asset.PrevDayPx = parseFloat(ctxs[i].PrevDayPx)
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

// CandleSnapshot fetches recent OHLCV bars for one coin.
func (c *Client) CandleSnapshot(ctx context.Context, coin, interval string, limit int) ([]Candle, error) {
	end := time.Now().UnixMilli()
	start := end - int64(limit)*intervalMillis(interval)

	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"type": "candleSnapshot",
			"req": map[string]any{
				"coin":      coin,
				"interval":  interval,
				"startTime": start,
				"endTime":   end,
			},
		})

	resp, err := c.doRequest(ctx, "/info", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", coin, err)
	}

	var candles []Candle
	if err := json.Unmarshal(resp.Body(), &candles); err != nil {
		return nil, fmt.Errorf("failed to decode candles for %s: %w", coin, err)
	}
	return candles, nil
}

// ClearinghouseState fetches the open positions of one wallet address.
func (c *Client) ClearinghouseState(ctx context.Context, address string) ([]Position, error) {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"type": "clearinghouseState", "user": address})

	resp, err := c.doRequest(ctx, "/info", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get clearinghouse state: %w", err)
	}

	var state struct {
		AssetPositions []struct {
			Position struct {
				Coin     string `json:"coin"`
				Szi      string `json:"szi"`
				EntryPx  string `json:"entryPx"`
				Leverage struct {
					Value float64 `json:"value"`
				} `json:"leverage"`
				LiquidationPx  string `json:"liquidationPx"`
				MarginUsed     string `json:"marginUsed"`
				PositionValue  string `json:"positionValue"`
				UnrealizedPnl  string `json:"unrealizedPnl"`
				ReturnOnEquity string `json:"returnOnEquity"`
			} `json:"position"`
		} `json:"assetPositions"`
	}
	if err := json.Unmarshal(resp.Body(), &state); err != nil {
		return nil, fmt.Errorf("failed to decode clearinghouse state: %w", err)
	}

	positions := make([]Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		p := ap.Position
		positions = append(positions, Position{
			Coin:           p.Coin,
			Szi:            parseFloat(p.Szi),
			EntryPx:        parseFloat(p.EntryPx),
			Leverage:       p.Leverage.Value,
			LiquidationPx:  parseFloat(p.LiquidationPx),
			MarginUsed:     parseFloat(p.MarginUsed),
			PositionValue:  parseFloat(p.PositionValue),
			UnrealizedPnl:  parseFloat(p.UnrealizedPnl),
			ReturnOnEquity: parseFloat(p.ReturnOnEquity),
		})
	}
	return positions, nil
}

// Order submits a single signed order. The payload produced by the mapper is
// sent verbatim; the wallet key signs the serialized action. The testnet
// flag selects the network for this order regardless of the process-wide
// configuration, since agents carry their own network flag.
func (c *Client) Order(ctx context.Context, order OrderRequest, walletKey string, testnet bool) (OrderResult, error) {
	action := map[string]any{
		"type":     "order",
		"orders":   []OrderRequest{order},
		"grouping": "na",
	}

	serialized, err := json.Marshal(action)
	if err != nil {
		return OrderResult{}, fmt.Errorf("failed to serialize order action: %w", err)
	}

	nonce := time.Now().UnixMilli()
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"action":    json.RawMessage(serialized),
			"nonce":     nonce,
			"signature": signAction(serialized, nonce, walletKey),
		})

	url := c.mainnetURL + "/exchange"
	if testnet {
		url = c.testnetURL + "/exchange"
	}

	resp, err := c.doRequest(ctx, url, req)
	if err != nil {
		c.logger.Error("Failed to submit order after multiple attempts",
			zap.Error(err),
			zap.Int("asset", order.Asset),
			zap.Bool("testnet", testnet),
		)
		return OrderResult{}, fmt.Errorf("failed to submit order: %w", err)
	}

	var result struct {
		Status   string          `json:"status"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return OrderResult{}, fmt.Errorf("failed to decode order response: %w", err)
	}

	out := OrderResult{Status: result.Status, Response: string(result.Response)}
	c.logger.Info("Successfully submitted order",
		zap.Int("asset", order.Asset),
		zap.Bool("buy", order.IsBuy),
		zap.Bool("testnet", testnet),
		zap.String("status", out.Status),
	)
	return out, nil
}

// signAction creates a HMAC-SHA256 signature over the serialized action and
// nonce.
func signAction(action []byte, nonce int64, walletKey string) string {
	h := hmac.New(sha256.New, []byte(walletKey))
	h.Write(action)
	h.Write([]byte(strconv.FormatInt(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

func intervalMillis(interval string) int64 {
	if d, err := time.ParseDuration(interval); err == nil {
		return d.Milliseconds()
	}
	// Exchange intervals like "1d" that ParseDuration rejects.
	if len(interval) > 1 && interval[len(interval)-1] == 'd' {
		if days, err := strconv.Atoi(interval[:len(interval)-1]); err == nil {
			return int64(days) * 24 * time.Hour.Milliseconds()
		}
	}
	return time.Hour.Milliseconds()
}

// parseFloat converts the exchange's decimal strings into the same
// fixed-point domain the storage layer enforces. Unparsable strings become
// 0, matching the sanitizer's fail-open posture.
func parseFloat(s string) float64 {
	return numeric.SanitizeString(s, numeric.Options{AllowNegative: true})
}
