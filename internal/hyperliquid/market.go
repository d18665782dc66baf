package hyperliquid

import "context"

// Market bundles the cached asset universe with candle access so callers
// have a single read surface for market state.
type Market struct {
	*AssetCache
	client *Client
}

// NewMarket creates a market view over the given client and cache.
func NewMarket(client *Client, cache *AssetCache) *Market {
	return &Market{AssetCache: cache, client: client}
}

// Candles fetches recent candle history for one coin.
func (m *Market) Candles(ctx context.Context, coin, interval string, limit int) ([]Candle, error) {
	return m.client.CandleSnapshot(ctx, coin, interval, limit)
}

// Positions fetches the exchange-reported open positions of one wallet.
func (m *Market) Positions(ctx context.Context, address string) ([]Position, error) {
	return m.client.ClearinghouseState(ctx, address)
}
