package hyperliquid

import (
	"errors"
	"fmt"
	"strings"

	"hyperliquid-agent-bot-go/internal/llmparse"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedAction marks a trade-action type the mapper cannot express.
// This is a programmer error, not a data error, and stays fatal.
var ErrUnsupportedAction = errors.New("unsupported trade action type")

// Perp prices carry at most 6 decimal places before size precision is
// subtracted.
const maxPriceDecimals = 6

// MapOpts carries the mapper inputs that come from configuration rather
// than from the model's action.
type MapOpts struct {
	// DefaultTradeAmount is the USD notional used when the action does not
	// specify a size.
	DefaultTradeAmount float64
}

// ToOrder converts one reconciled trade decision plus live asset metadata
// into an exchange-ready order payload. It is a pure transform: no account
// or network state is touched.
//
// For OPEN actions pos may be nil. For CLOSE actions pos must be the
// position being closed; its signed size decides the order side (closing a
// short buys back) and quantity.
func ToOrder(asset AssetMeta, action llmparse.TradeAction, pos *Position, opts MapOpts) (OrderRequest, error) {
	switch {
	case action.Action.IsOpen():
		return openOrder(asset, action, opts)
	case action.Action.IsClose():
		return closeOrder(asset, action, pos)
	default:
		return OrderRequest{}, fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Action)
	}
}

func openOrder(asset AssetMeta, action llmparse.TradeAction, opts MapOpts) (OrderRequest, error) {
	amount := action.Size
	if amount <= 0 {
		amount = opts.DefaultTradeAmount
	}
	if amount <= 0 {
		return OrderRequest{}, fmt.Errorf("open %s: no trade amount available", asset.Ticker)
	}

	// An explicit entry price rests on the book; otherwise the mid price
	// models a market-ish immediate fill.
	limitPrice := action.Entry
	tif := TifGtc
	if limitPrice <= 0 {
		limitPrice = asset.MidPx
		tif = TifIoc
	}
	if limitPrice <= 0 {
		return OrderRequest{}, fmt.Errorf("open %s: no usable price", asset.Ticker)
	}

	return OrderRequest{
		Asset:      asset.AssetID,
		IsBuy:      action.Action == llmparse.ActionOpenLong,
		Price:      px(asset, limitPrice),
		Size:       sz(asset, amount/limitPrice),
		ReduceOnly: false,
		Type:       OrderType{Limit: &LimitOrderType{Tif: tif}},
	}, nil
}

func closeOrder(asset AssetMeta, action llmparse.TradeAction, pos *Position) (OrderRequest, error) {
	if pos == nil || pos.Szi == 0 {
		return OrderRequest{}, fmt.Errorf("close %s: no position to close", asset.Ticker)
	}

	// Price "0" crosses the book unless an explicit exit limit is given.
	price := "0"
	if action.Entry > 0 {
		price = px(asset, action.Entry)
	}

	size := pos.Szi
	if size < 0 {
		size = -size
	}

	return OrderRequest{
		Asset: asset.AssetID,
		// Closing a short requires buying back.
		IsBuy:      pos.Szi < 0,
		Price:      price,
		Size:       sz(asset, size),
		ReduceOnly: true,
		Type:       OrderType{Limit: &LimitOrderType{Tif: TifIoc}},
	}, nil
}

// px quantizes a price to the asset's tick precision and renders it as a
// canonical decimal string with no trailing zeros.
func px(asset AssetMeta, price float64) string {
	places := maxPriceDecimals - asset.SzDecimals
	if places < 0 {
		places = 0
	}
	return canonical(decimal.NewFromFloat(price).Round(int32(places)))
}

// sz quantizes an underlying-asset quantity to the asset's lot precision.
func sz(asset AssetMeta, quantity float64) string {
	return canonical(decimal.NewFromFloat(quantity).Round(int32(asset.SzDecimals)))
}

func canonical(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
