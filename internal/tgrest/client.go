package tgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"onepiece-admin/internal/config"
)

// DeliveryError reports a failed command delivery. The database write the
// command was announcing has already been committed by the time delivery is
// attempted, so the caller must surface this to the admin rather than retry.
type DeliveryError struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery of %s command failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("delivery of %s command failed: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Client posts commands to the bot's command endpoint.
type Client struct {
	endpoint   string
	botID      string
	httpClient *http.Client
}

// NewClient creates a new command channel client.
func NewClient(cfg *config.TgRestConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		botID:      cfg.BotID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send serializes the command and posts it to the bot endpoint. A non-2xx
// response or transport failure returns a *DeliveryError; nothing is retried.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	body, err := encode(cmd, c.botID)
	if err != nil {
		return fmt.Errorf("failed to encode %s command: %w", cmd.Kind(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Kind: cmd.Kind(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{Kind: cmd.Kind(), StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	log.Debug().Str("kind", string(cmd.Kind())).Msg("Command delivered")
	return nil
}

// encode flattens the command fields with the envelope fields the bot uses to
// identify and route the payload.
func encode(cmd Command, botID string) ([]byte, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["bot_id"] = botID
	fields["object_type"] = string(cmd.Kind())

	return json.Marshal(fields)
}
