package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Host        string `envconfig:"WEBHOOK_SERVER_HOST" default:"0.0.0.0"`
	Port        string `envconfig:"WEBHOOK_SERVER_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"WEBHOOK_SERVER_TIMEOUT" default:"10"`
}

type Line struct {
	AccessToken   string `envconfig:"LINE_ACCESS_TOKEN" required:"true"`
	ChannelSecret string `envconfig:"LINE_CHANNEL_SECRET"`
	APIURL        string `envconfig:"LINE_API_URL" default:"https://api.line.me/v2/bot/message"`
}

type OpenWeatherMap struct {
	APIKey string `envconfig:"OPEN_WEATHER_MAP_API_KEY" required:"true"`
	URL    string `envconfig:"OPEN_WEATHER_MAP_URL" default:"https://api.openweathermap.org/data/2.5"`
}

type Db struct {
	Dialect string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source  string `envconfig:"DB_NAME" default:"subscriptions.db"`
}

type Breaker struct {
	TimeInterval int    `envconfig:"BREAKER_INTERVAL" default:"30"`
	TimeTimeOut  int    `envconfig:"BREAKER_TIMEOUT" default:"10"`
	RepeatNumber uint32 `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

// Redis caching is disabled when Addr is empty.
type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	LiveTime int    `envconfig:"REDIS_LIVE_TIME" default:"10"`
}

// RabbitMQ push queueing is disabled when Host is empty.
type RabbitMQ struct {
	Host string `envconfig:"RABBITMQ_HOST"`
	Port string `envconfig:"RABBITMQ_PORT" default:"5672"`
	User string `envconfig:"RABBITMQ_USER" default:"guest"`
	Pass string `envconfig:"RABBITMQ_PASSWORD" default:"guest"`
}

type Notifier struct {
	Schedule    string        `envconfig:"NOTIFIER_SCHEDULE"`
	Concurrency int           `envconfig:"NOTIFIER_CONCURRENCY" default:"4"`
	ItemTimeout time.Duration `envconfig:"NOTIFIER_ITEM_TIMEOUT" default:"30s"`
}

type Config struct {
	Server         Server
	Line           Line
	OpenWeatherMap OpenWeatherMap
	DB             Db
	Breaker        Breaker
	Redis          Redis
	RabbitMQ       RabbitMQ
	Notifier       Notifier

	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"10s"`
	Timezone          string        `envconfig:"TIMEZONE" default:"Asia/Tokyo"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"debug"`
	LogsPath          string        `envconfig:"LOGS_PATH" default:"./logs/weather-line-bot.log"`
	HTTPLogsPath      string        `envconfig:"HTTP_LOGS_PATH" default:"./logs/http.log"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Location resolves Timezone, the zone "tomorrow" is computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (r *RabbitMQ) Address() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Pass, r.Host, r.Port)
}

func (r *RabbitMQ) Enabled() bool {
	return r.Host != ""
}
