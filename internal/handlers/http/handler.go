package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-line-bot/internal/conversation"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

const (
	timeoutDuration = 10 * time.Second

	// request bodies are capped at 1 MiB
	maxBodyBytes = 1 << 20
)

type eventHandler interface {
	Handle(ctx context.Context, ev models.InboundEvent) (conversation.Outcome, error)
}

type Handler struct {
	engine        eventHandler
	channelSecret string
	logger        zerolog.Logger
	m             *metrics.Metrics
}

// NewHandler builds the webhook handler. Signature checks are skipped when
// channelSecret is empty.
func NewHandler(engine eventHandler, channelSecret string, logger zerolog.Logger, m *metrics.Metrics) *Handler {
	logger = logger.With().Str("component", "WebhookHandler").Logger()
	return &Handler{engine: engine, channelSecret: channelSecret, logger: logger, m: m}
}

// Webhook
// @Summary Receive chat events
// @Description Processes message events posted by the chat platform and replies to each one.
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Line-Signature header string false "Base64 HMAC-SHA256 of the body"
// @Param payload body models.WebhookPayload true "Webhook events"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn().Ctx(c.Request.Context()).Int64("limit", tooLarge.Limit).Msg("rejected oversized webhook body")
			h.m.BusinessError("body_too_large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request Entity Too Large"})
			return
		}
		h.fail(c, err, "failed to read body")
		return
	}

	if h.channelSecret != "" {
		if err := VerifySignature(h.channelSecret, body, c.GetHeader(SignatureHeader)); err != nil {
			h.logger.Warn().Ctx(c.Request.Context()).Msg("rejected webhook with bad signature")
			h.m.BusinessError("invalid_signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.fail(c, err, "failed to decode webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	for i, ev := range payload.Events {
		outcome, err := h.engine.Handle(ctx, ev.Inbound())
		if err != nil {
			h.logger.Error().Err(err).Ctx(ctx).
				Int("event_index", i).
				Str("outcome", outcome.String()).
				Msg("event processing failed, aborting batch")
			h.m.TechnicalError("webhook_event_error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Success"})
}

// Healthz
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	h.logger.Error().Err(err).Ctx(c.Request.Context()).Msg(msg)
	h.m.TechnicalError("webhook_decode_error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}
