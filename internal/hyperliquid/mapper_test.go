package hyperliquid

import (
	"testing"

	"hyperliquid-agent-bot-go/internal/llmparse"

	"github.com/stretchr/testify/assert"
)

func TestToOrderOpenLongLimit(t *testing.T) {
	asset := AssetMeta{Ticker: "WIF", AssetID: 141, SzDecimals: 0, MidPx: 0.52}
	action := llmparse.TradeAction{
		Action: llmparse.ActionOpenLong,
		Asset:  "WIF",
		Entry:  0.5,
	}

	order, err := ToOrder(asset, action, nil, MapOpts{DefaultTradeAmount: 100})
	assert.NoError(t, err)
	assert.Equal(t, 141, order.Asset)
	assert.True(t, order.IsBuy)
	assert.Equal(t, "0.5", order.Price)
	assert.Equal(t, "200", order.Size)
	assert.False(t, order.ReduceOnly)
	assert.Equal(t, TifGtc, order.Type.Limit.Tif)
}

func TestToOrderOpenShortMarketUsesMid(t *testing.T) {
	asset := AssetMeta{Ticker: "ETH", AssetID: 4, SzDecimals: 4, MidPx: 2500}
	action := llmparse.TradeAction{Action: llmparse.ActionOpenShort, Asset: "ETH", Size: 250}

	order, err := ToOrder(asset, action, nil, MapOpts{DefaultTradeAmount: 100})
	assert.NoError(t, err)
	assert.False(t, order.IsBuy)
	assert.Equal(t, "2500", order.Price)
	assert.Equal(t, "0.1", order.Size)
	assert.Equal(t, TifIoc, order.Type.Limit.Tif)
}

func TestToOrderCloseLong(t *testing.T) {
	asset := AssetMeta{Ticker: "BTC", AssetID: 0, SzDecimals: 5, MidPx: 60000}
	action := llmparse.TradeAction{Action: llmparse.ActionCloseLong, Asset: "BTC"}
	pos := &Position{Coin: "BTC", Szi: 1.0, EntryPx: 58000}

	order, err := ToOrder(asset, action, pos, MapOpts{})
	assert.NoError(t, err)
	assert.False(t, order.IsBuy)
	assert.Equal(t, "0", order.Price)
	assert.Equal(t, "1", order.Size)
	assert.True(t, order.ReduceOnly)
	assert.Equal(t, TifIoc, order.Type.Limit.Tif)
}

func TestToOrderCloseShortBuysBack(t *testing.T) {
	asset := AssetMeta{Ticker: "SOL", AssetID: 5, SzDecimals: 2, MidPx: 150}
	action := llmparse.TradeAction{Action: llmparse.ActionCloseShort, Asset: "SOL"}
	pos := &Position{Coin: "SOL", Szi: -2.5, EntryPx: 160}

	order, err := ToOrder(asset, action, pos, MapOpts{})
	assert.NoError(t, err)
	assert.True(t, order.IsBuy)
	assert.Equal(t, "2.5", order.Size)
	assert.True(t, order.ReduceOnly)
}

func TestToOrderCloseWithExitLimit(t *testing.T) {
	asset := AssetMeta{Ticker: "ETH", AssetID: 4, SzDecimals: 4, MidPx: 2500}
	action := llmparse.TradeAction{Action: llmparse.ActionCloseLong, Asset: "ETH", Entry: 2600.123456}
	pos := &Position{Coin: "ETH", Szi: 0.5}

	order, err := ToOrder(asset, action, pos, MapOpts{})
	assert.NoError(t, err)
	// 6 - 4 size decimals leaves 2 price decimals.
	assert.Equal(t, "2600.12", order.Price)
	assert.Equal(t, TifIoc, order.Type.Limit.Tif)
}

func TestToOrderCloseWithoutPosition(t *testing.T) {
	asset := AssetMeta{Ticker: "BTC", AssetID: 0, SzDecimals: 5}
	action := llmparse.TradeAction{Action: llmparse.ActionCloseLong, Asset: "BTC"}

	_, err := ToOrder(asset, action, nil, MapOpts{})
	assert.Error(t, err)
}

func TestToOrderUnsupportedAction(t *testing.T) {
	asset := AssetMeta{Ticker: "BTC", AssetID: 0}
	action := llmparse.TradeAction{Action: llmparse.ActionNoAction}

	_, err := ToOrder(asset, action, nil, MapOpts{})
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestToOrderSizeQuantization(t *testing.T) {
	asset := AssetMeta{Ticker: "BTC", AssetID: 0, SzDecimals: 3, MidPx: 60000}
	action := llmparse.TradeAction{Action: llmparse.ActionOpenLong, Asset: "BTC"}

	order, err := ToOrder(asset, action, nil, MapOpts{DefaultTradeAmount: 100})
	assert.NoError(t, err)
	// 100 / 60000 = 0.001666... rounds to 3 places.
	assert.Equal(t, "0.002", order.Size)
}
