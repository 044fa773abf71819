package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

const (
	units    = "metric"
	language = "ja"

	// dt_txt is "YYYY-MM-DD HH:MM:SS"
	forecastTimeLayout = "2006-01-02 15:04:05"
)

var errEmptyConditions = errors.New("response has no weather conditions")

type mainBlock struct {
	Temp json.Number `json:"temp"`
}

// temperature parses temp and reports whether it was sent as an integer literal.
func (b mainBlock) temperature() (float64, bool, error) {
	v, err := b.Temp.Float64()
	if err != nil {
		return 0, false, fmt.Errorf("temperature %q: %w", b.Temp, err)
	}
	return v, !strings.ContainsAny(b.Temp.String(), ".eE"), nil
}

type conditionBlock struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type currentResponse struct {
	Main    mainBlock        `json:"main"`
	Weather []conditionBlock `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		DtTxt   string           `json:"dt_txt"`
		Main    mainBlock        `json:"main"`
		Weather []conditionBlock `json:"weather"`
	} `json:"list"`
}

// ClientOpenWeatherMap fetches forecasts and current conditions from OpenWeatherMap.
type ClientOpenWeatherMap struct {
	APIKey string
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

// NewClientOpenWeatherMap constructs a new OpenWeatherMap client. apiURL is the
// API root, e.g. https://api.openweathermap.org/data/2.5.
func NewClientOpenWeatherMap(apiKey, apiURL string,
	httpClient HTTPClient, logger zerolog.Logger,
) *ClientOpenWeatherMap {
	logger = logger.With().Str("component", "ClientOpenWeatherMap").Logger()
	return &ClientOpenWeatherMap{
		APIKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
		client: httpClient,
		logger: logger,
	}
}

// Forecast returns the first 3-hour forecast entry that falls on date.
func (s *ClientOpenWeatherMap) Forecast(
	ctx context.Context, city string, date dates.Date,
) (models.WeatherReport, error) {
	start := time.Now()

	var raw forecastResponse
	if err := s.get(ctx, "forecast", city, &raw); err != nil {
		return models.WeatherReport{}, err
	}

	for _, entry := range raw.List {
		at, err := time.Parse(forecastTimeLayout, entry.DtTxt)
		if err != nil {
			s.logger.Warn().Ctx(ctx).
				Str("city", city).
				Str("dt_txt", entry.DtTxt).
				Msg("skipping forecast entry with malformed timestamp")
			continue
		}
		if dates.FromTime(at) != date {
			continue
		}
		if len(entry.Weather) == 0 {
			return models.WeatherReport{}, fmt.Errorf("forecast for %s on %s: %w", city, date, errEmptyConditions)
		}
		temp, whole, err := entry.Main.temperature()
		if err != nil {
			return models.WeatherReport{}, fmt.Errorf("forecast for %s on %s: %w", city, date, err)
		}

		s.logger.Info().Ctx(ctx).
			Str("city", city).
			Str("date", date.String()).
			Dur("duration", time.Since(start)).
			Msg("forecast entry found")
		return models.WeatherReport{
			City:             city,
			Date:             date.String(),
			Description:      entry.Weather[0].Description,
			Temperature:      temp,
			WholeTemperature: whole,
		}, nil
	}

	s.logger.Info().Ctx(ctx).
		Str("city", city).
		Str("date", date.String()).
		Int("entries", len(raw.List)).
		Msg("no forecast entry for date")
	return models.WeatherReport{}, fmt.Errorf("forecast for %s on %s: %w", city, date, ErrNotFound)
}

// Current returns the present conditions for city.
func (s *ClientOpenWeatherMap) Current(ctx context.Context, city string) (models.WeatherReport, error) {
	start := time.Now()

	var raw currentResponse
	if err := s.get(ctx, "weather", city, &raw); err != nil {
		return models.WeatherReport{}, err
	}
	if len(raw.Weather) == 0 {
		return models.WeatherReport{}, fmt.Errorf("current weather for %s: %w", city, errEmptyConditions)
	}
	temp, whole, err := raw.Main.temperature()
	if err != nil {
		return models.WeatherReport{}, fmt.Errorf("current weather for %s: %w", city, err)
	}

	s.logger.Info().Ctx(ctx).
		Str("city", city).
		Dur("duration", time.Since(start)).
		Msg("successfully fetched current weather")
	return models.WeatherReport{
		City:             city,
		Description:      raw.Weather[0].Description,
		Temperature:      temp,
		WholeTemperature: whole,
	}, nil
}

func (s *ClientOpenWeatherMap) get(ctx context.Context, endpoint, city string, out any) error {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", s.APIKey)
	q.Set("units", units)
	q.Set("lang", language)
	reqURL := s.apiURL + "/" + endpoint + "?" + q.Encode()

	s.logger.Debug().Ctx(ctx).
		Str("city", city).
		Str("endpoint", endpoint).
		Msg("starting OpenWeatherMap request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("city", city).
			Msg("failed to create HTTP request")
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("city", city).
			Str("endpoint", endpoint).
			Msg("error sending HTTP request to OpenWeatherMap")
		return fmt.Errorf("openweathermap %s: %w", endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Error().Err(cerr).Str("city", city).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error().Ctx(ctx).
			Str("city", city).
			Str("endpoint", endpoint).
			Str("status", resp.Status).
			Msg("OpenWeatherMap API returned non-200 status")
		return fmt.Errorf("openweathermap %s: status %s", endpoint, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("city", city).
			Msg("failed to decode OpenWeatherMap response")
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
