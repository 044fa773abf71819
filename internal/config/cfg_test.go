package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-line-bot/internal/config"
)

func setRequired(t *testing.T) {
	t.Setenv("LINE_ACCESS_TOKEN", "line-token")
	t.Setenv("OPEN_WEATHER_MAP_API_KEY", "owm-key")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "line-token", cfg.Line.AccessToken)
	assert.Equal(t, "https://api.line.me/v2/bot/message", cfg.Line.APIURL)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5", cfg.OpenWeatherMap.URL)
	assert.Equal(t, "subscriptions.db", cfg.DB.Source)
	assert.Equal(t, 4, cfg.Notifier.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Notifier.ItemTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.False(t, cfg.RabbitMQ.Enabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestNewConfig_MissingRequired(t *testing.T) {
	setRequired(t)
	// t.Setenv restores the original value on cleanup
	require.NoError(t, os.Unsetenv("LINE_ACCESS_TOKEN"))

	_, err := config.NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_BadTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := config.NewConfig()
	assert.Error(t, err)
}

func TestRabbitMQ_Address(t *testing.T) {
	setRequired(t)
	t.Setenv("RABBITMQ_HOST", "mq")
	t.Setenv("RABBITMQ_USER", "bot")
	t.Setenv("RABBITMQ_PASSWORD", "pw")

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	assert.True(t, cfg.RabbitMQ.Enabled())
	assert.Equal(t, "amqp://bot:pw@mq:5672/", cfg.RabbitMQ.Address())
}
