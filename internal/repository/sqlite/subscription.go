package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
	"github.com/rs/zerolog"
)

// SubscriptionRepository stores pending notifications keyed by (subscriber, date).
type SubscriptionRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

// NewSubscriptionRepository constructs a repository with logger context and metrics collector.
func NewSubscriptionRepository(
	db *sql.DB,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *SubscriptionRepository {
	logger = logger.With().Str("component", "SubscriptionRepository").Logger()
	return &SubscriptionRepository{DB: db, log: logger, m: m}
}

// Upsert inserts sub or replaces the city of an existing (subscriber, date) record.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub models.Subscription) error {
	start := time.Now()
	now := start.UTC()

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscriptions (subscriber_id, date, city, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(subscriber_id, date) DO UPDATE SET
		     city = excluded.city,
		     updated_at = excluded.updated_at`,
		sub.SubscriberID, sub.Date.String(), sub.City, now, now,
	)
	dur := time.Since(start)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("subscriber_id", sub.SubscriberID).
			Str("date", sub.Date.String()).
			Dur("duration", dur).
			Msg("failed to upsert subscription")
		r.m.TechnicalError("db_upsert_error")
		return fmt.Errorf("upsert subscription: %w", err)
	}

	r.m.SubscriptionsStored.Inc()
	r.log.Info().Ctx(ctx).
		Str("subscriber_id", sub.SubscriberID).
		Str("city", sub.City).
		Str("date", sub.Date.String()).
		Dur("duration", dur).
		Msg("subscription stored")
	return nil
}

// FindByDate returns every subscription whose date equals date.
func (r *SubscriptionRepository) FindByDate(
	ctx context.Context, date dates.Date,
) ([]models.Subscription, error) {
	start := time.Now()
	r.log.Debug().Ctx(ctx).Str("date", date.String()).Msg("querying subscriptions by date")

	rows, err := r.DB.QueryContext(ctx, `
		SELECT subscriber_id, date, city
		FROM subscriptions
		WHERE date = ?
		ORDER BY created_at, subscriber_id`, date.String(),
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("date", date.String()).
			Msg("failed to query subscriptions by date")
		r.m.TechnicalError("db_query_error")
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to close rows after query")
			r.m.TechnicalError("db_rows_close_error")
		}
	}(rows)

	var subs []models.Subscription
	for rows.Next() {
		var (
			sub     models.Subscription
			rawDate string
		)
		if err := rows.Scan(&sub.SubscriberID, &rawDate, &sub.City); err != nil {
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to scan subscription row")
			r.m.TechnicalError("db_scan_error")
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Date, err = dates.Parse(rawDate)
		if err != nil {
			r.log.Error().Err(err).Ctx(ctx).Str("date", rawDate).Msg("stored date is corrupt")
			r.m.TechnicalError("db_scan_error")
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("row iteration error")
		r.m.TechnicalError("db_rows_error")
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	r.log.Info().Ctx(ctx).
		Str("date", date.String()).
		Int("count", len(subs)).
		Dur("duration", time.Since(start)).
		Msg("retrieved subscriptions")
	return subs, nil
}

// Delete removes the (subscriberID, date) record. Missing records are not an error.
func (r *SubscriptionRepository) Delete(ctx context.Context, subscriberID string, date dates.Date) error {
	start := time.Now()

	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE subscriber_id = ? AND date = ?",
		subscriberID, date.String(),
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("subscriber_id", subscriberID).
			Str("date", date.String()).
			Msg("failed to delete subscription")
		r.m.TechnicalError("db_delete_error")
		return fmt.Errorf("delete subscription: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		r.m.TechnicalError("db_rows_error")
		return fmt.Errorf("delete subscription: %w", err)
	}

	r.log.Debug().Ctx(ctx).
		Str("subscriber_id", subscriberID).
		Str("date", date.String()).
		Int64("deleted", count).
		Dur("duration", time.Since(start)).
		Msg("subscription deleted")
	return nil
}
