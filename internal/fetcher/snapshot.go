package fetcher

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote holds the per-currency numeric fields of a ticker response. Fields
// are pointers because the provider omits values it has no data for.
type Quote struct {
	Price            *decimal.Decimal `json:"price"`
	Volume24h        *decimal.Decimal `json:"volume_24h"`
	MarketCap        *decimal.Decimal `json:"market_cap"`
	PercentChange1h  *decimal.Decimal `json:"percent_change_1h"`
	PercentChange24h *decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  *decimal.Decimal `json:"percent_change_7d"`
}

// Snapshot is one validated market observation. It is immutable once built;
// LastUpdated is the provider-assigned timestamp used for de-duplication.
type Snapshot struct {
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Rank          int       `json:"rank"`
	LastUpdated   int64     `json:"last_updated"`
	QuoteCurrency string    `json:"quote_currency"`
	Quote         Quote     `json:"quote"`
	FetchedAt     time.Time `json:"fetched_at"`
}
