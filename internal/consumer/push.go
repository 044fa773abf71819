package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/pkg/messaging"
)

var errNoRecipient = errors.New("push event has no recipient")

type pusher interface {
	Push(ctx context.Context, to, text string) error
}

type subscriptionDeleter interface {
	Delete(ctx context.Context, subscriberID string, date dates.Date) error
}

// Consumer delivers queued push events and emits logs & metrics.
type Consumer struct {
	pusher  pusher
	repo    subscriptionDeleter
	timeout time.Duration
	logger  zerolog.Logger
	m       *metrics.Metrics
}

func NewConsumer(
	p pusher,
	repo subscriptionDeleter,
	timeout time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Consumer {
	logger = logger.With().Str("component", "Consumer").Logger()
	return &Consumer{
		pusher:  p,
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		m:       m,
	}
}

// ReceivePush handles PushEvent messages. Malformed or undeliverable
// messages are discarded; an undelivered subscription stays stored and is
// picked up again by the next notifier run.
func (c *Consumer) ReceivePush(d rabbitmq.Delivery) rabbitmq.Action {
	const eventType = messaging.PushRoutingKey

	evt, date, err := decodePush(d.Body)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("payload", string(d.Body)).
			Msg("malformed push event")
		c.m.ConsumerMessagesTotal.WithLabelValues(eventType, "malformed").Inc()
		return rabbitmq.NackDiscard
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.pusher.Push(ctx, evt.To, evt.Text); err != nil {
		c.logger.Error().
			Err(err).
			Str("to", evt.To).
			Msg("failed to push message")
		c.m.ConsumerMessagesTotal.WithLabelValues(eventType, "error").Inc()
		c.m.NotificationsTotal.WithLabelValues("failed").Inc()
		return rabbitmq.NackDiscard
	}
	c.m.NotificationsTotal.WithLabelValues("sent").Inc()

	if date != nil {
		if err := c.repo.Delete(ctx, evt.To, *date); err != nil {
			// the push went out; ack regardless
			c.logger.Error().
				Err(err).
				Str("to", evt.To).
				Str("date", evt.Date).
				Msg("failed to delete delivered subscription")
			c.m.TechnicalError("db_delete_error")
		}
	}

	c.logger.Info().Str("to", evt.To).Msg("push delivered")
	c.m.ConsumerMessagesTotal.WithLabelValues(eventType, "ok").Inc()
	return rabbitmq.Ack
}

func decodePush(body []byte) (messaging.PushEvent, *dates.Date, error) {
	var evt messaging.PushEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return evt, nil, err
	}
	if evt.To == "" {
		return evt, nil, errNoRecipient
	}
	if evt.Date == "" {
		return evt, nil, nil
	}
	date, err := dates.Parse(evt.Date)
	if err != nil {
		return evt, nil, err
	}
	return evt, &date, nil
}
