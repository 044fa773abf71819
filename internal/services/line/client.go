package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

const (
	replyPath = "/reply"
	pushPath  = "/push"

	// bytes of an error response kept in the returned error
	bodySnippetLimit = 512
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends text messages through the LINE Messaging API.
type Client struct {
	accessToken string
	apiURL      string
	client      HTTPClient
	logger      zerolog.Logger
}

// NewClient builds a messaging client. apiURL is the message API root,
// e.g. https://api.line.me/v2/bot/message.
func NewClient(accessToken, apiURL string, httpClient HTTPClient, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "LineClient").Logger()
	return &Client{
		accessToken: accessToken,
		apiURL:      strings.TrimRight(apiURL, "/"),
		client:      httpClient,
		logger:      logger,
	}
}

// Reply answers an inbound event identified by replyToken. qr may be nil.
func (c *Client) Reply(ctx context.Context, replyToken, text string, qr *models.QuickReply) error {
	payload := models.ReplyRequest{
		ReplyToken: replyToken,
		Messages:   []models.TextMessage{models.NewTextMessage(text, qr)},
	}
	return c.post(ctx, replyPath, payload)
}

// Push sends an unsolicited message to a subscriber.
func (c *Client) Push(ctx context.Context, to, text string) error {
	payload := models.PushRequest{
		To:       to,
		Messages: []models.TextMessage{models.NewTextMessage(text, nil)},
	}
	return c.post(ctx, pushPath, payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Ctx(ctx).Str("path", path).Msg("messaging API request failed")
		return fmt.Errorf("line %s: %w", path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().Err(cerr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLimit))
		c.logger.Error().Ctx(ctx).
			Str("path", path).
			Int("status_code", resp.StatusCode).
			Bytes("body", snippet).
			Msg("messaging API returned error status")
		return fmt.Errorf("line %s: status %d: %s", path, resp.StatusCode, snippet)
	}

	c.logger.Debug().Ctx(ctx).
		Str("path", path).
		Dur("duration", time.Since(start)).
		Msg("message delivered")
	return nil
}
