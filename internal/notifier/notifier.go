package notifier

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

const (
	jobName = "daily_weather"

	msgPush = "%sの%sの天気は: %s, 気温: %s°C"

	defaultConcurrency = 4
	defaultItemTimeout = 30 * time.Second
)

type subscriptionRepository interface {
	FindByDate(ctx context.Context, date dates.Date) ([]models.Subscription, error)
	Delete(ctx context.Context, subscriberID string, date dates.Date) error
}

type weatherGetter interface {
	Current(ctx context.Context, city string) (models.WeatherReport, error)
}

type pusher interface {
	Push(ctx context.Context, to, text string) error
}

// queue is a pusher that hands delivery to a consumer, which removes the
// subscription itself once the push lands.
type queue interface {
	Enqueue(ctx context.Context, sub models.Subscription, text string) error
}

// Result summarises one notification run. Queued counts subscriptions handed
// to the push queue; their delivery is reported by the consumer.
type Result struct {
	Date    dates.Date
	Matched int
	Sent    int
	Queued  int
	Failed  int
}

type Config struct {
	// Schedule is a standard 5-field cron spec; empty disables Start.
	Schedule    string
	Concurrency int
	ItemTimeout time.Duration
	Location    *time.Location
}

// Notifier pushes current weather to everyone subscribed for tomorrow.
type Notifier struct {
	repo           subscriptionRepository
	weatherService weatherGetter
	pusher         pusher
	logger         zerolog.Logger
	clock          clockwork.Clock
	cron           *cron.Cron
	cancel         context.CancelFunc
	m              *metrics.Metrics
	cfg            Config
}

// New constructs a Notifier with structured logging and metrics.
func New(
	repo subscriptionRepository,
	ws weatherGetter,
	p pusher,
	clock clockwork.Clock,
	cfg Config,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Notifier {
	logger = logger.With().Str("component", "Notifier").Logger()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaultItemTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Notifier{
		repo:           repo,
		weatherService: ws,
		pusher:         p,
		logger:         logger,
		clock:          clock,
		cron:           cron.New(cron.WithLocation(cfg.Location)),
		m:              m,
		cfg:            cfg,
	}
}

// Start schedules Run on cfg.Schedule. It is a no-op without a schedule.
func (n *Notifier) Start(ctx context.Context) error {
	if n.cfg.Schedule == "" {
		n.logger.Info().Msg("no schedule configured, notifier waits for an external trigger")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	_, err := n.cron.AddFunc(n.cfg.Schedule, func() {
		if _, err := n.Run(ctx, n.clock.Now()); err != nil {
			n.logger.Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		cancel()
		n.logger.Error().Err(err).Str("schedule", n.cfg.Schedule).Msg("failed to schedule notifier job")
		n.m.TechnicalError("cron_schedule_error")
		return fmt.Errorf("schedule %q: %w", n.cfg.Schedule, err)
	}

	n.cron.Start()
	n.logger.Info().Str("schedule", n.cfg.Schedule).Msg("Weather notifier started")
	return nil
}

// Stop cancels the running job, if any, and waits for it to finish.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	stopCtx := n.cron.Stop()
	<-stopCtx.Done()
	n.logger.Info().Msg("All cron jobs finished, notifier stopped")
}

// Run notifies every subscription dated the day after now (in the configured
// location). Per-subscription failures are counted, never returned; only a
// failed lookup aborts the run.
func (n *Notifier) Run(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	target := dates.Tomorrow(now.In(n.cfg.Location))
	res := Result{Date: target}

	n.m.CronRuns.WithLabelValues(jobName).Inc()
	defer func() {
		n.m.CronRunDuration.WithLabelValues(jobName).Observe(time.Since(start).Seconds())
	}()

	subs, err := n.repo.FindByDate(ctx, target)
	if err != nil {
		n.logger.Error().Err(err).Str("date", target.String()).Msg("error fetching due subscriptions")
		n.m.TechnicalError("fetch_due_subs")
		return res, fmt.Errorf("find subscriptions for %s: %w", target, err)
	}
	res.Matched = len(subs)
	n.logger.Info().Str("date", target.String()).Int("count", len(subs)).Msg("fetched due subscriptions")

	_, queued := n.pusher.(queue)
	outcome := "sent"
	if queued {
		outcome = "queued"
	}

	var done, failed atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(n.cfg.Concurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := n.SendOne(ctx, sub); err != nil {
				failed.Add(1)
				n.m.NotificationsTotal.WithLabelValues("failed").Inc()
				n.logger.Error().Err(err).
					Str("subscriber_id", sub.SubscriberID).
					Str("city", sub.City).
					Msg("error sending update")
				return nil
			}
			done.Add(1)
			n.m.NotificationsTotal.WithLabelValues(outcome).Inc()
			return nil
		})
	}
	_ = g.Wait()

	if queued {
		res.Queued = int(done.Load())
	} else {
		res.Sent = int(done.Load())
	}
	res.Failed = int(failed.Load())

	n.logger.Info().
		Str("date", target.String()).
		Int("matched", res.Matched).
		Int("sent", res.Sent).
		Int("queued", res.Queued).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("completed notification run")
	return res, nil
}

// SendOne fetches current weather for sub.City, pushes it and removes the
// subscription. With a queue the subscription is only enqueued and stays
// stored until the consumer delivers it.
func (n *Notifier) SendOne(ctx context.Context, sub models.Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.ItemTimeout)
	defer cancel()

	report, err := n.weatherService.Current(ctx, sub.City)
	if err != nil {
		n.m.TechnicalError("weather_fetch_error")
		return fmt.Errorf("weather for %s: %w", sub.City, err)
	}

	text := fmt.Sprintf(msgPush, sub.Date, sub.City, report.Description, report.TemperatureText())
	if q, ok := n.pusher.(queue); ok {
		if err := q.Enqueue(ctx, sub, text); err != nil {
			n.m.TechnicalError("enqueue_error")
			return fmt.Errorf("enqueue push to %s: %w", sub.SubscriberID, err)
		}
		return nil
	}

	if err := n.pusher.Push(ctx, sub.SubscriberID, text); err != nil {
		n.m.TechnicalError("push_error")
		return fmt.Errorf("push to %s: %w", sub.SubscriberID, err)
	}

	if err := n.repo.Delete(ctx, sub.SubscriberID, sub.Date); err != nil {
		n.m.TechnicalError("db_delete_error")
		return fmt.Errorf("delete delivered subscription: %w", err)
	}

	n.logger.Debug().Ctx(ctx).
		Str("subscriber_id", sub.SubscriberID).
		Str("city", sub.City).
		Msg("SendOne completed successfully")
	return nil
}
