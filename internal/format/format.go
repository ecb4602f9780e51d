package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cmctracker/internal/fetcher"
	"cmctracker/internal/summary"
)

// ReferenceCurrency is the quote currency rendered with a symbol prefix
// instead of a trailing currency code.
const ReferenceCurrency = "USD"

const headerTimeLayout = "01-02-06 15:04:05"

// FieldKind classifies a quote field for formatting. Kinds are assigned once
// in the field table below, so the renderer never inspects label text.
type FieldKind int

const (
	FieldPrice FieldKind = iota
	FieldVolume
	FieldMarketCap
	FieldPercent
)

type quoteField struct {
	key   string
	kind  FieldKind
	value func(fetcher.Quote) *decimal.Decimal
}

var quoteFields = []quoteField{
	{"price", FieldPrice, func(q fetcher.Quote) *decimal.Decimal { return q.Price }},
	{"volume_24h", FieldVolume, func(q fetcher.Quote) *decimal.Decimal { return q.Volume24h }},
	{"market_cap", FieldMarketCap, func(q fetcher.Quote) *decimal.Decimal { return q.MarketCap }},
	{"percent_change_1h", FieldPercent, func(q fetcher.Quote) *decimal.Decimal { return q.PercentChange1h }},
	{"percent_change_24h", FieldPercent, func(q fetcher.Quote) *decimal.Decimal { return q.PercentChange24h }},
	{"percent_change_7d", FieldPercent, func(q fetcher.Quote) *decimal.Decimal { return q.PercentChange7d }},
}

// Formatter renders snapshots and session deltas as Slack-flavoured text for
// one market.
type Formatter struct {
	market string
	trade  string
	quote  string
	logger zerolog.Logger
}

// New constructs a formatter for the given market pair.
func New(market, trade, quote string, logger zerolog.Logger) *Formatter {
	return &Formatter{
		market: market,
		trade:  trade,
		quote:  quote,
		logger: logger.With().Str("component", "formatter").Logger(),
	}
}

func (f *Formatter) isReference() bool {
	return f.quote == ReferenceCurrency
}

func (f *Formatter) header(ts time.Time) string {
	return "*_" + ts.Format(headerTimeLayout) + " - " + f.market + "_*\n"
}

// QuoteMessage renders one snapshot as a status alert.
func (f *Formatter) QuoteMessage(snap fetcher.Snapshot) string {
	b := strings.Builder{}
	b.WriteString(f.header(snap.FetchedAt))

	for _, field := range quoteFields {
		value := field.value(snap.Quote)
		if value == nil {
			f.logger.Debug().Str("field", field.key).Msg("quote field absent; skipping")
			continue
		}

		line := "*" + fieldLabel(field.key) + ":* "

		switch field.kind {
		case FieldVolume, FieldMarketCap:
			if f.isReference() {
				line += "$" + value.StringFixed(2)
			} else {
				line += value.StringFixed(2) + " " + f.quote
			}
		case FieldPrice:
			if f.isReference() {
				line += "$"
				if value.LessThan(decimal.NewFromInt(1)) {
					line += value.StringFixed(4)
				} else {
					line += value.StringFixed(2)
				}
			} else {
				line += value.StringFixed(8) + " " + f.quote
			}
		case FieldPercent:
			line += value.StringFixed(2) + "%"
		default:
			f.logger.Warn().Str("field", field.key).Msg("unknown quote field kind; skipping")
			continue
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// FinalMessage renders a session delta as the end-of-tracking alert.
func (f *Formatter) FinalMessage(d summary.Delta) string {
	b := strings.Builder{}
	b.WriteString(f.header(time.Now()))

	b.WriteString("*Tracking Duration:* " + d.DurationString + "\n")

	b.WriteString("*Price Change:* ")
	if f.isReference() {
		b.WriteString(d.PriceFirst.StringFixed(2) + " --> $" + d.PriceLast.StringFixed(2) + " _(")
		b.WriteString(signedFixed(d.PriceDiff, 2) + " || ")
	} else {
		b.WriteString(d.PriceFirst.StringFixed(8) + " --> " + d.PriceLast.StringFixed(8) + " " + f.quote + "/" + f.trade + " _(")
		b.WriteString(signedFixed(d.PriceDiff, 8) + " || ")
	}
	b.WriteString(signedFixed(d.PricePctDiff, 2) + "%)_\n")

	b.WriteString("*Market Cap Change:* ")
	if f.isReference() {
		b.WriteString(d.MarketCapFirst.StringFixed(2) + " --> $" + d.MarketCapLast.StringFixed(2) + " _(")
	} else {
		b.WriteString(d.MarketCapFirst.StringFixed(2) + " --> " + d.MarketCapLast.StringFixed(2) + " " + f.quote + " _(")
	}
	b.WriteString(signedFixed(d.MarketCapDiff, 2) + " || ")
	b.WriteString(signedFixed(d.MarketCapPctDiff, 2) + "%)_\n")

	b.WriteString(fmt.Sprintf("*Rank Change:* #%d --> #%d _(", d.RankFirst, d.RankLast))
	if d.RankDiff == 0 {
		b.WriteString("No Change")
	} else if d.RankDiff > 0 {
		b.WriteString(fmt.Sprintf("+%d", d.RankDiff))
	} else {
		b.WriteString(fmt.Sprintf("%d", d.RankDiff))
	}
	b.WriteString(")_")

	return b.String()
}

// signedFixed renders v with an explicit leading sign, omitted when zero.
// Negative values keep the minus with the magnitude shown as absolute.
func signedFixed(v decimal.Decimal, places int32) string {
	switch v.Sign() {
	case 1:
		return "+" + v.StringFixed(places)
	case -1:
		return "-" + v.Abs().StringFixed(places)
	default:
		return v.StringFixed(places)
	}
}

// fieldLabel derives a display label from an underscore-delimited key. Words
// beginning with a digit are wrapped in parentheses instead of capitalised,
// so "volume_24h" becomes "Volume (24h)".
func fieldLabel(key string) string {
	words := strings.Split(key, "_")
	parts := make([]string, 0, len(words))

	for _, word := range words {
		if word == "" {
			continue
		}
		if word[0] >= '0' && word[0] <= '9' {
			parts = append(parts, "("+word+")")
		} else {
			parts = append(parts, strings.ToUpper(word[:1])+word[1:])
		}
	}

	return strings.Join(parts, " ")
}
