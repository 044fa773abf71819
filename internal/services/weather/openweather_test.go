package weather_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/weather"
)

const forecastBody = `{
  "list": [
    {"dt_txt": "2024-05-09 21:00:00", "main": {"temp": 17.2}, "weather": [{"main": "Clouds", "description": "曇りがち"}]},
    {"dt_txt": "2024-05-10 00:00:00", "main": {"temp": 18.5}, "weather": [{"main": "Clear", "description": "晴天"}]},
    {"dt_txt": "2024-05-10 03:00:00", "main": {"temp": 22.0}, "weather": [{"main": "Rain", "description": "小雨"}]}
  ]
}`

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newClient(m *mockHTTPClient) *weather.ClientOpenWeatherMap {
	return weather.NewClientOpenWeatherMap("secret-key", "https://owm.test/data/2.5/", m, zerolog.Nop())
}

func TestForecast_FirstEntryForDate(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	m.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		q := req.URL.Query()
		return req.Method == http.MethodGet &&
			req.URL.Host == "owm.test" &&
			req.URL.Path == "/data/2.5/forecast" &&
			q.Get("q") == "Tokyo" &&
			q.Get("appid") == "secret-key" &&
			q.Get("units") == "metric" &&
			q.Get("lang") == "ja"
	})).Return(response(http.StatusOK, forecastBody), nil).Once()

	report, err := newClient(m).Forecast(context.Background(), "Tokyo", dates.MustParse("2024-05-10"))
	require.NoError(t, err)
	assert.Equal(t, models.WeatherReport{
		City: "Tokyo", Date: "2024-05-10", Description: "晴天", Temperature: 18.5,
	}, report)
}

func TestForecast_NoEntryForDate(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK, forecastBody), nil).Once()

	_, err := newClient(m).Forecast(context.Background(), "Tokyo", dates.MustParse("2024-05-20"))
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestForecast_Non200(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusUnauthorized, `{"cod":401}`), nil).Once()

	_, err := newClient(m).Forecast(context.Background(), "Tokyo", dates.MustParse("2024-05-10"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, weather.ErrNotFound)
	assert.Contains(t, err.Error(), "status")
}

func TestForecast_TransportError(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	boom := errors.New("connection refused")
	m.On("Do", mock.Anything).Return(nil, boom).Once()

	_, err := newClient(m).Forecast(context.Background(), "Tokyo", dates.MustParse("2024-05-10"))
	assert.ErrorIs(t, err, boom)
}

func TestCurrent_Success(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.Path == "/data/2.5/weather" && req.URL.Query().Get("q") == "Osaka"
	})).Return(response(http.StatusOK,
		`{"main": {"temp": 25.3}, "weather": [{"main": "Clear", "description": "快晴"}]}`), nil).Once()

	report, err := newClient(m).Current(context.Background(), "Osaka")
	require.NoError(t, err)
	assert.Equal(t, models.WeatherReport{City: "Osaka", Description: "快晴", Temperature: 25.3}, report)
}

func TestCurrent_KeepsIntegerTemperature(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK,
		`{"main": {"temp": 20}, "weather": [{"main": "Clear", "description": "快晴"}]}`), nil).Once()

	report, err := newClient(m).Current(context.Background(), "Osaka")
	require.NoError(t, err)
	assert.True(t, report.WholeTemperature)
	assert.Equal(t, "20", report.TemperatureText())
}

func TestForecast_DecimalTemperatureKeepsFraction(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK, `{"list": [
    {"dt_txt": "2024-05-10 03:00:00", "main": {"temp": 22.0}, "weather": [{"main": "Rain", "description": "小雨"}]}
]}`), nil).Once()

	report, err := newClient(m).Forecast(context.Background(), "Tokyo", dates.MustParse("2024-05-10"))
	require.NoError(t, err)
	assert.False(t, report.WholeTemperature)
	assert.Equal(t, "22.0", report.TemperatureText())
}

func TestCurrent_MissingTemperature(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK,
		`{"main": {}, "weather": [{"main": "Clear", "description": "快晴"}]}`), nil).Once()

	_, err := newClient(m).Current(context.Background(), "Osaka")
	assert.Error(t, err)
}

func TestCurrent_EmptyConditions(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK, `{"main": {"temp": 1}, "weather": []}`), nil).Once()

	_, err := newClient(m).Current(context.Background(), "Osaka")
	assert.Error(t, err)
}

func TestCurrent_BadJSON(t *testing.T) {
	m := &mockHTTPClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	m.On("Do", mock.Anything).Return(response(http.StatusOK, `{`), nil).Once()

	_, err := newClient(m).Current(context.Background(), "Osaka")
	assert.Error(t, err)
}
