package producers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"

	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
	"github.com/Nazarious-ucu/weather-line-bot/pkg/messaging"
)

type publisher interface {
	PublishWithContext(
		ctx context.Context,
		data []byte,
		routingKeys []string,
		optionFuncs ...func(*rabbitmq.PublishOptions),
	) error
}

// Producer queues push messages instead of calling the messaging API directly.
type Producer struct {
	prod publisher
	log  zerolog.Logger
	m    *metrics.Metrics
}

func NewProducer(prod publisher, logger zerolog.Logger, m *metrics.Metrics) *Producer {
	logger = logger.With().Str("component", "Producer").Logger()
	return &Producer{
		prod: prod,
		log:  logger,
		m:    m,
	}
}

func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.prod.PublishWithContext(
		ctx,
		body,
		[]string{routingKey},
		rabbitmq.WithPublishOptionsContentType("application/json"),
		rabbitmq.WithPublishOptionsMandatory,
		rabbitmq.WithPublishOptionsPersistentDelivery,
		rabbitmq.WithPublishOptionsExchange(messaging.ExchangeName),
	)
	p.m.RecordRabbitPublish(routingKey, err)
	if err != nil {
		p.log.Error().Err(err).Ctx(ctx).Str("routing_key", routingKey).Msg("failed to publish message")
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.log.Debug().Ctx(ctx).Str("routing_key", routingKey).Msg("message published")
	return nil
}

// Push satisfies the notifier's pusher by enqueueing a PushEvent.
func (p *Producer) Push(ctx context.Context, to, text string) error {
	body, err := json.Marshal(messaging.PushEvent{To: to, Text: text})
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}
	return p.Publish(ctx, messaging.PushRoutingKey, body)
}

// Enqueue queues the notification for sub. The consumer deletes the
// subscription once the push is delivered.
func (p *Producer) Enqueue(ctx context.Context, sub models.Subscription, text string) error {
	body, err := json.Marshal(messaging.PushEvent{
		To:   sub.SubscriberID,
		Text: text,
		Date: sub.Date.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}
	return p.Publish(ctx, messaging.PushRoutingKey, body)
}
