// Command pusher delivers queued push messages to the messaging API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Nazarious-ucu/weather-line-bot/internal/app"
	"github.com/Nazarious-ucu/weather-line-bot/internal/config"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "pusher", cfg.LogLevel)
	if err != nil {
		log.Panicf("failed to create logger: %v", err)
	}

	fileLogger, err := logger.NewFileLogger(cfg.HTTPLogsPath)
	if err != nil {
		log.Panicf("failed to create http logger: %v", err)
	}
	defer func() { _ = fileLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(*cfg, l, metrics.NewMetrics("weather_line_bot"), fileLogger)
	if err := application.RunPusher(ctx); err != nil {
		l.Error().Err(err).Msg("pusher stopped with error")
		log.Panic(err)
	}
}
