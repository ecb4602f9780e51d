package heartbeat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Monitor pushes periodic liveness pings to an external endpoint. A disabled
// monitor is a no-op, so callers never need to nil-check.
type Monitor struct {
	enabled bool
	pingURL string
	client  *http.Client
	logger  zerolog.Logger
}

// New constructs a heartbeat monitor. An empty pingURL or enabled=false
// yields a no-op monitor.
func New(pingURL string, enabled bool, timeout time.Duration, logger zerolog.Logger) *Monitor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Monitor{
		enabled: enabled && pingURL != "",
		pingURL: strings.TrimRight(pingURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "heartbeat").Logger(),
	}
}

// Enable marks the start of the monitored session.
func (m *Monitor) Enable(ctx context.Context) {
	if !m.enabled {
		return
	}
	m.logger.Info().Msg("enabling heartbeat")
	m.push(ctx, m.pingURL+"/start", "")
}

// Disable marks the end of the monitored session.
func (m *Monitor) Disable(ctx context.Context) {
	if !m.enabled {
		return
	}
	m.logger.Info().Msg("disabling heartbeat")
	m.push(ctx, m.pingURL, "session complete")
}

// Ping reports liveness with a short label. Failures are logged and never
// affect the caller.
func (m *Monitor) Ping(ctx context.Context, label string) {
	if !m.enabled {
		return
	}
	m.push(ctx, m.pingURL, label)
}

func (m *Monitor) push(ctx context.Context, endpoint, label string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(label))
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to create heartbeat request")
		return
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn().Err(err).Msg("heartbeat ping failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn().Int("status", resp.StatusCode).Msg("heartbeat endpoint rejected ping")
	}
}
