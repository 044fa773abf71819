package weather

import (
	"context"
	"net/http"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

// ErrNotFound is returned when the provider has no entry for the requested date.
var ErrNotFound = models.ErrWeatherNotFound

type client interface {
	Forecast(ctx context.Context, city string, date dates.Date) (models.WeatherReport, error)
	Current(ctx context.Context, city string) (models.WeatherReport, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
