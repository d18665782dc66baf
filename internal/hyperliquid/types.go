package hyperliquid

// Time-in-force values understood by the exchange.
const (
	TifGtc = "Gtc"
	TifIoc = "Ioc"
)

// AssetMeta is the per-asset trading metadata fetched fresh each run. It is
// only ever used to round and quantize order fields.
type AssetMeta struct {
	Ticker       string  `json:"ticker"`
	AssetID      int     `json:"assetId"`
	SzDecimals   int     `json:"szDecimals"`
	MaxLeverage  int     `json:"maxLeverage"`
	MidPx        float64 `json:"midPx"`
	FundingRate  float64 `json:"fundingRate"`
	OpenInterest float64 `json:"openInterest"`
	DayVolume    float64 `json:"dayVolume"`
	PrevDayPx    float64 `json:"prevDayPx"`
}

// MarketAsset is the market-state view passed into prompts and snapshots.
type MarketAsset struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Change24h    float64 `json:"change_24h,omitempty"`
	FundingRate  float64 `json:"funding_rate,omitempty"`
	Volume24h    float64 `json:"volume_24h,omitempty"`
	OpenInterest float64 `json:"open_interest,omitempty"`
}

// Position is the exchange-reported position mirror. Szi is signed:
// positive is long, negative is short.
type Position struct {
	Coin           string  `json:"coin"`
	Szi            float64 `json:"szi"`
	EntryPx        float64 `json:"entryPx"`
	Leverage       float64 `json:"leverage"`
	LiquidationPx  float64 `json:"liquidationPx"`
	MarginUsed     float64 `json:"marginUsed"`
	PositionValue  float64 `json:"positionValue"`
	UnrealizedPnl  float64 `json:"unrealizedPnl"`
	ReturnOnEquity float64 `json:"returnOnEquity"`
}

// Candle is one OHLCV bar from the exchange's candle snapshot endpoint.
type Candle struct {
	Time   int64  `json:"t"`
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Close  string `json:"c"`
	Volume string `json:"v"`
}

// LimitOrderType carries the time-in-force of a limit order.
type LimitOrderType struct {
	Tif string `json:"tif"`
}

// OrderType selects the order kind. Only limit orders are emitted; a
// market-ish fill is modeled as Ioc at the mid price.
type OrderType struct {
	Limit *LimitOrderType `json:"limit,omitempty"`
}

// OrderRequest is the exchange wire format for one order. Field names match
// the exchange API and must not change.
type OrderRequest struct {
	Asset      int       `json:"a"`
	IsBuy      bool      `json:"b"`
	Price      string    `json:"p"`
	Size       string    `json:"s"`
	ReduceOnly bool      `json:"r"`
	Type       OrderType `json:"t"`
}

// OrderResult is the exchange's response to an order submission.
type OrderResult struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}
