// Command notify runs the daily notification job once and exits.
// It exits non-zero when the subscription lookup fails.
package main

import (
	"context"
	"log"
	"os"
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

	l, err := logger.NewLogger(cfg.LogsPath, "notify", cfg.LogLevel)
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
	res, err := application.RunNotifier(ctx)
	if err != nil {
		l.Error().Err(err).Msg("notification run failed")
		stop()
		os.Exit(1)
	}

	l.Info().
		Str("date", res.Date.String()).
		Int("matched", res.Matched).
		Int("sent", res.Sent).
		Int("queued", res.Queued).
		Int("failed", res.Failed).
		Msg("notification run finished")
}
