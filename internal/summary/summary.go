package summary

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cmctracker/internal/fetcher"
)

var (
	// ErrInsufficientData indicates fewer than two archived snapshots.
	ErrInsufficientData = errors.New("summary: need at least two snapshots")
	// ErrMissingQuote indicates a first or last snapshot without price or
	// market cap data.
	ErrMissingQuote = errors.New("summary: snapshot missing quote data")
	// ErrZeroBaseline indicates a zero first value, which would make the
	// percent computation undefined.
	ErrZeroBaseline = errors.New("summary: first snapshot value is zero")
)

// Delta is the first-vs-last change over one tracking session. It is derived
// once at session end and never written back into the archive.
type Delta struct {
	PriceFirst       decimal.Decimal `json:"price_first"`
	PriceLast        decimal.Decimal `json:"price_last"`
	PriceDiff        decimal.Decimal `json:"price_difference"`
	PricePctDiff     decimal.Decimal `json:"price_percent_difference"`
	MarketCapFirst   decimal.Decimal `json:"marketcap_first"`
	MarketCapLast    decimal.Decimal `json:"marketcap_last"`
	MarketCapDiff    decimal.Decimal `json:"marketcap_difference"`
	MarketCapPctDiff decimal.Decimal `json:"marketcap_percent_difference"`
	RankFirst        int             `json:"rank_first"`
	RankLast         int             `json:"rank_last"`
	RankDiff         int             `json:"rank_difference"`
	TimestampFirst   time.Time       `json:"timestamp_first"`
	TimestampLast    time.Time       `json:"timestamp_last"`
	DurationMinutes  float64         `json:"duration_minutes"`
	DurationString   string          `json:"duration_string"`
}

// Compute derives the session delta from the archived sequence. It reads only
// the first and last element, so interior snapshots never affect the result.
func Compute(snaps []fetcher.Snapshot) (Delta, error) {
	if len(snaps) < 2 {
		return Delta{}, ErrInsufficientData
	}

	first := snaps[0]
	last := snaps[len(snaps)-1]

	if first.Quote.Price == nil || last.Quote.Price == nil {
		return Delta{}, fmt.Errorf("%w: price", ErrMissingQuote)
	}
	if first.Quote.MarketCap == nil || last.Quote.MarketCap == nil {
		return Delta{}, fmt.Errorf("%w: market cap", ErrMissingQuote)
	}
	if first.Quote.Price.IsZero() {
		return Delta{}, fmt.Errorf("%w: price", ErrZeroBaseline)
	}
	if first.Quote.MarketCap.IsZero() {
		return Delta{}, fmt.Errorf("%w: market cap", ErrZeroBaseline)
	}

	hundred := decimal.NewFromInt(100)

	priceDiff := last.Quote.Price.Sub(*first.Quote.Price)
	pricePct := priceDiff.Div(*first.Quote.Price).Mul(hundred)

	capDiff := last.Quote.MarketCap.Sub(*first.Quote.MarketCap)
	capPct := capDiff.Div(*first.Quote.MarketCap).Mul(hundred)

	minutes := last.FetchedAt.Sub(first.FetchedAt).Minutes()

	return Delta{
		PriceFirst:       *first.Quote.Price,
		PriceLast:        *last.Quote.Price,
		PriceDiff:        priceDiff,
		PricePctDiff:     pricePct,
		MarketCapFirst:   *first.Quote.MarketCap,
		MarketCapLast:    *last.Quote.MarketCap,
		MarketCapDiff:    capDiff,
		MarketCapPctDiff: capPct,
		RankFirst:        first.Rank,
		RankLast:         last.Rank,
		RankDiff:         last.Rank - first.Rank,
		TimestampFirst:   first.FetchedAt,
		TimestampLast:    last.FetchedAt,
		DurationMinutes:  minutes,
		DurationString:   durationString(minutes),
	}, nil
}

// durationString renders elapsed minutes as "Nhours M.MMminutes". Hours are
// pluralised except when exactly 1; minutes except when exactly 1.
func durationString(minutes float64) string {
	hours := int(minutes / 60)
	remainder := minutes - float64(hours)*60

	s := fmt.Sprintf("%dhour", hours)
	if hours == 0 || hours > 1 {
		s += "s"
	}

	s += fmt.Sprintf(" %.2fminute", remainder)
	if remainder != 1 {
		s += "s"
	}

	return s
}
