package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message carries one chat alert.
type Message struct {
	ChannelID string
	Text      string
	ThreadID  string
	Broadcast bool
}

// Notifier delivers alert messages. Notify returns the message identifier so
// follow-ups can reply in the same thread.
type Notifier interface {
	Notify(ctx context.Context, msg Message) (string, error)
	ResolveChannel(ctx context.Context, name string) (string, error)
}

// SlackNotifier pushes messages via the Slack Web API.
type SlackNotifier struct {
	token   string
	botUser string
	botIcon string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewSlackNotifier constructs a Slack notifier.
func NewSlackNotifier(token, botUser, botIcon, baseURL string, timeout time.Duration, logger zerolog.Logger) *SlackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}

	return &SlackNotifier{
		token:   token,
		botUser: botUser,
		botIcon: botIcon,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_slack").Logger(),
	}
}

// Notify calls chat.postMessage and returns the posted message timestamp.
func (n *SlackNotifier) Notify(ctx context.Context, msg Message) (string, error) {
	payload := map[string]any{
		"channel":  msg.ChannelID,
		"text":     msg.Text,
		"username": n.botUser,
	}
	if n.botIcon != "" {
		payload["icon_url"] = n.botIcon
	}
	if msg.ThreadID != "" {
		payload["thread_ts"] = msg.ThreadID
		payload["reply_broadcast"] = msg.Broadcast
	}

	var result struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error"`
	}
	if err := n.call(ctx, "chat.postMessage", payload, &result); err != nil {
		return "", err
	}
	if !result.OK {
		return "", fmt.Errorf("slack returned ok=false: %s", result.Error)
	}

	n.logger.Info().Str("channel", msg.ChannelID).Str("ts", result.TS).Msg("alert delivered")
	return result.TS, nil
}

// ResolveChannel looks up a channel id by name via conversations.list.
func (n *SlackNotifier) ResolveChannel(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("channel name required")
	}

	endpoint := fmt.Sprintf("%s/conversations.list?%s", n.baseURL, url.Values{
		"types": []string{"public_channel,private_channel"},
		"limit": []string{"1000"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create channel list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send channel list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("slack channel list status %d", resp.StatusCode)
	}

	var result struct {
		OK       bool   `json:"ok"`
		Error    string `json:"error"`
		Channels []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode channel list: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("slack returned ok=false: %s", result.Error)
	}

	for _, ch := range result.Channels {
		if ch.Name == name {
			n.logger.Info().Str("channel", name).Str("channel_id", ch.ID).Msg("resolved alert channel")
			return ch.ID, nil
		}
	}

	return "", fmt.Errorf("no channel named %q found", name)
}

func (n *SlackNotifier) call(ctx context.Context, method string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	endpoint := n.baseURL + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	return nil
}

var _ Notifier = (*SlackNotifier)(nil)
