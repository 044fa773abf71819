package decorators

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

type weatherGetterService interface {
	Forecast(ctx context.Context, city string, date dates.Date) (models.WeatherReport, error)
	Current(ctx context.Context, city string) (models.WeatherReport, error)
}

type cacheClient[T any] interface {
	Set(ctx context.Context, key string, value T) error
	Get(ctx context.Context, key string) (T, error)
}

// CachedService serves repeated lookups from cache. Errors, including
// "not found", are never cached and cache failures fall through to inner.
type CachedService struct {
	inner  weatherGetterService
	cache  cacheClient[models.WeatherReport]
	logger zerolog.Logger
}

func NewCachedService(
	inner weatherGetterService,
	cache cacheClient[models.WeatherReport],
	logger zerolog.Logger,
) *CachedService {
	logger = logger.With().Str("component", "CachedWeatherService").Logger()
	return &CachedService{inner: inner, cache: cache, logger: logger}
}

func (s *CachedService) Forecast(
	ctx context.Context, city string, date dates.Date,
) (models.WeatherReport, error) {
	key := fmt.Sprintf("weather:forecast:%s:%s", city, date)
	return s.cached(ctx, key, func() (models.WeatherReport, error) {
		return s.inner.Forecast(ctx, city, date)
	})
}

func (s *CachedService) Current(ctx context.Context, city string) (models.WeatherReport, error) {
	key := fmt.Sprintf("weather:current:%s", city)
	return s.cached(ctx, key, func() (models.WeatherReport, error) {
		return s.inner.Current(ctx, city)
	})
}

func (s *CachedService) cached(
	ctx context.Context,
	key string,
	load func() (models.WeatherReport, error),
) (models.WeatherReport, error) {
	report, err := s.cache.Get(ctx, key)
	if err == nil {
		s.logger.Info().Ctx(ctx).Str("key", key).Msg("cache hit")
		return report, nil
	}
	s.logger.Debug().Ctx(ctx).Str("key", key).Err(err).Msg("cache miss")

	report, err = load()
	if err != nil {
		return models.WeatherReport{}, err
	}

	if err := s.cache.Set(ctx, key, report); err != nil {
		s.logger.Error().Ctx(ctx).
			Str("key", key).
			Err(err).
			Msg("cache set failed")
	}

	return report, nil
}
