package app

import (
	"context"
	"errors"

	"github.com/Nazarious-ucu/weather-line-bot/internal/consumer"
	"github.com/Nazarious-ucu/weather-line-bot/internal/repository/sqlite"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/line"
)

var errQueueDisabled = errors.New("push queue disabled: RABBITMQ_HOST is not set")

// RunPusher drains the push queue into the messaging API until ctx is
// cancelled, removing each subscription once its push is delivered.
func (a *App) RunPusher(ctx context.Context) error {
	if !a.cfg.RabbitMQ.Enabled() {
		return errQueueDisabled
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			a.l.Error().Err(err).Msg("DB close error")
		}
	}()
	repo := sqlite.NewSubscriptionRepository(db, a.l, a.m)

	conn, err := a.setupConn()
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}()

	pushConsumer, err := a.setupPushConsumer(conn)
	if err != nil {
		a.l.Error().Err(err).Msg("Failed to create push consumer")
		return err
	}

	lineClient := line.NewClient(a.cfg.Line.AccessToken, a.cfg.Line.APIURL, a.newHTTPClient(), a.l)
	handler := consumer.NewConsumer(lineClient, repo, a.cfg.HTTPClientTimeout, a.l, a.m)

	errCh := make(chan error, 1)
	go func() {
		errCh <- pushConsumer.Run(handler.ReceivePush)
	}()
	a.l.Info().Msg("Push consumer running")

	select {
	case <-ctx.Done():
		a.l.Info().Msg("Shutdown signal received")
		pushConsumer.Close()
		return nil
	case err := <-errCh:
		pushConsumer.Close()
		return err
	}
}
