package weather_test

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, ok := args.Get(0).(*http.Response)
	if !ok {
		return nil, args.Error(1)
	}
	return resp, args.Error(1)
}

type mockWrapped struct {
	mock.Mock
}

func (m *mockWrapped) Forecast(ctx context.Context, city string, date dates.Date) (models.WeatherReport, error) {
	args := m.Called(ctx, city, date)
	data, ok := args.Get(0).(models.WeatherReport)
	if !ok {
		return models.WeatherReport{}, args.Error(1)
	}
	return data, args.Error(1)
}

func (m *mockWrapped) Current(ctx context.Context, city string) (models.WeatherReport, error) {
	args := m.Called(ctx, city)
	data, ok := args.Get(0).(models.WeatherReport)
	if !ok {
		return models.WeatherReport{}, args.Error(1)
	}
	return data, args.Error(1)
}
