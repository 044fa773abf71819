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

// @title Weather LINE Bot
// @version 1.0
// @description Webhook receiving chat events for the weather notification bot
// @host localhost:8080
// @BasePath /
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "webhook", cfg.LogLevel)
	if err != nil {
		log.Panicf("failed to create logger: %v", err)
	}

	fileLogger, err := logger.NewFileLogger(cfg.HTTPLogsPath)
	if err != nil {
		log.Panicf("failed to create http logger: %v", err)
	}
	defer func() { _ = fileLogger.Sync() }()

	application := app.New(*cfg, l, metrics.NewMetrics("weather_line_bot"), fileLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		l.Error().Err(err).Msg("application stopped with error")
		log.Panic(err)
	}
}
