package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.coinmarketcap.com/v2"

// Options parameterise the CoinMarketCap ticker client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches ticker snapshots from the CoinMarketCap API. It caches only
// the endpoint binding, so one instance is safe to share across sessions.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a ticker client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "cmc_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Validate performs the two pre-session calls: the trade product alone, then
// the trade product converted into the quote product. Either call failing
// refuses the session.
func (c *Client) Validate(ctx context.Context, trade, quote string) error {
	if trade == "" || quote == "" {
		return errors.New("trade and quote products required")
	}

	if res := c.fetch(ctx, trade, ""); res.Kind != ResultOk {
		return fmt.Errorf("validate trade product %s: %w", trade, resultError(res))
	}

	res := c.fetch(ctx, trade, quote)
	if res.Kind != ResultOk {
		return fmt.Errorf("validate quote conversion %s/%s: %w", trade, quote, resultError(res))
	}
	if res.Snapshot.Quote.Price == nil {
		return fmt.Errorf("no valid price data for %s in %s", trade, quote)
	}
	return nil
}

// FetchTicker retrieves one converted snapshot and returns a tagged result.
func (c *Client) FetchTicker(ctx context.Context, trade, quote string) Result {
	if trade == "" || quote == "" {
		return transient(errors.New("trade and quote products required"))
	}
	return c.fetch(ctx, trade, quote)
}

func (c *Client) fetch(ctx context.Context, trade, convert string) Result {
	endpoint := fmt.Sprintf("%s/ticker/%s/", c.baseURL, trade)
	if convert != "" {
		endpoint += "?convert=" + convert
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transient(fmt.Errorf("create ticker request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "cmctracker/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return transient(fmt.Errorf("send ticker request: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return transient(fmt.Errorf("read ticker response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return transient(parseHTTPError(resp.StatusCode, payload))
	}

	var ticker tickerResponse
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return transient(fmt.Errorf("decode ticker response: %w", err))
	}

	if ticker.Metadata.Error != nil && *ticker.Metadata.Error != "" {
		return inBandError(*ticker.Metadata.Error)
	}

	snap := Snapshot{
		Name:          ticker.Data.Name,
		Symbol:        ticker.Data.Symbol,
		Rank:          ticker.Data.Rank,
		LastUpdated:   ticker.Data.LastUpdated,
		QuoteCurrency: convert,
		FetchedAt:     time.Unix(ticker.Metadata.Timestamp, 0),
	}
	if ticker.Metadata.Timestamp == 0 {
		snap.FetchedAt = time.Now()
	}

	if convert != "" {
		q, found := ticker.Data.Quotes[convert]
		if !found {
			return transient(fmt.Errorf("quote currency %s missing from response", convert))
		}
		snap.Quote = q
	}

	return ok(snap)
}

func resultError(res Result) error {
	switch res.Kind {
	case ResultInBandError:
		return fmt.Errorf("provider error: %s", res.Reason)
	case ResultTransient:
		return res.Err
	default:
		return nil
	}
}

type tickerResponse struct {
	Data struct {
		Name        string           `json:"name"`
		Symbol      string           `json:"symbol"`
		Rank        int              `json:"rank"`
		LastUpdated int64            `json:"last_updated"`
		Quotes      map[string]Quote `json:"quotes"`
	} `json:"data"`
	Metadata struct {
		Timestamp int64   `json:"timestamp"`
		Error     *string `json:"error"`
	} `json:"metadata"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("cmc api error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("cmc api error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("cmc api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("cmc api error (%d)", status)
}
