package hyperliquid

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AssetCache holds the asset-metadata map between runs. It is owned by the
// composition root and refreshed explicitly; a lookup miss triggers one
// refresh before failing, so a newly listed asset resolves without a
// restart.
type AssetCache struct {
	client *Client
	logger *zap.Logger

	mu     sync.RWMutex
	assets map[string]AssetMeta
}

// NewAssetCache creates an empty cache around the given client.
func NewAssetCache(client *Client, logger *zap.Logger) *AssetCache {
	return &AssetCache{
		client: client,
		logger: logger,
		assets: make(map[string]AssetMeta),
	}
}

// Refresh replaces the cached universe with a fresh fetch.
func (c *AssetCache) Refresh(ctx context.Context) error {
	assets, err := c.client.MetaAndAssetCtxs(ctx)
	if err != nil {
		return fmt.Errorf("asset cache refresh: %w", err)
	}

	next := make(map[string]AssetMeta, len(assets))
	for _, a := range assets {
		next[strings.ToUpper(a.Ticker)] = a
	}

	c.mu.Lock()
	c.assets = next
	c.mu.Unlock()

	c.logger.Debug("Asset cache refreshed", zap.Int("count", len(next)))
	return nil
}

// Lookup resolves one asset's metadata, refreshing once on a miss.
func (c *AssetCache) Lookup(ctx context.Context, symbol string) (AssetMeta, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.RLock()
	asset, ok := c.assets[key]
	c.mu.RUnlock()
	if ok {
		return asset, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return AssetMeta{}, err
	}

	c.mu.RLock()
	asset, ok = c.assets[key]
	c.mu.RUnlock()
	if !ok {
		return AssetMeta{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return asset, nil
}

// Snapshot returns the cached universe as market-asset views for prompts.
func (c *AssetCache) Snapshot() []MarketAsset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]MarketAsset, 0, len(c.assets))
	for _, a := range c.assets {
		change := 0.0
		if a.PrevDayPx > 0 {
			change = (a.MidPx - a.PrevDayPx) / a.PrevDayPx * 100
		}
		out = append(out, MarketAsset{
			Symbol:       a.Ticker,
			Price:        a.MidPx,
			Change24h:    change,
			FundingRate:  a.FundingRate,
			Volume24h:    a.DayVolume,
			OpenInterest: a.OpenInterest,
		})
	}
	return out
}
