package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerClient guards a provider with a circuit breaker. A missing forecast
// is a valid answer and never counts towards tripping.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Forecast(
	ctx context.Context, city string, date dates.Date,
) (models.WeatherReport, error) {
	return b.execute(func() (models.WeatherReport, error) {
		return b.wrapped.Forecast(ctx, city, date)
	})
}

func (b *BreakerClient) Current(ctx context.Context, city string) (models.WeatherReport, error) {
	return b.execute(func() (models.WeatherReport, error) {
		return b.wrapped.Current(ctx, city)
	})
}

func (b *BreakerClient) execute(fn func() (models.WeatherReport, error)) (models.WeatherReport, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.WeatherReport{}, err
		}
		return models.WeatherReport{},
			fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	res, ok := result.(models.WeatherReport)
	if !ok {
		return models.WeatherReport{},
			fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}
