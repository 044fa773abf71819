// Package conversation turns one inbound chat message into exactly one reply,
// fetching weather or storing a subscription along the way.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	"github.com/Nazarious-ucu/weather-line-bot/internal/intent"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

// DateMenuSize is the number of upcoming dates offered after a city is picked.
const DateMenuSize = 10

const (
	msgCitySelected = "%sを選択しました。次に日付を選択してください。"
	msgWeather      = "%sの%sの天気:\n天気: %s\n温度: %s°C"
	msgNoWeather    = "%sの%sの天気情報が見つかりませんでした。"
	msgSubscribed   = "%sの天気情報を%sの1日前に通知します。"
	msgChooseCity   = "天気を知りたい都市を選択してください。"
)

// Outcome tells which branch handled an event.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDateMenu
	OutcomeWeatherReport
	OutcomeSubscribed
	OutcomeCityMenu
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDateMenu:
		return "date_menu"
	case OutcomeWeatherReport:
		return "weather_report"
	case OutcomeSubscribed:
		return "subscribed"
	case OutcomeCityMenu:
		return "city_menu"
	default:
		return "ignored"
	}
}

type resolver interface {
	Resolve(text string) intent.Intent
	Cities() []string
}

type forecaster interface {
	Forecast(ctx context.Context, city string, date dates.Date) (models.WeatherReport, error)
}

type subscriptionStore interface {
	Upsert(ctx context.Context, sub models.Subscription) error
}

type replier interface {
	Reply(ctx context.Context, replyToken, text string, qr *models.QuickReply) error
}

type Engine struct {
	resolver resolver
	weather  forecaster
	store    subscriptionStore
	replies  replier
	clock    clockwork.Clock
	loc      *time.Location
	logger   zerolog.Logger
	m        *metrics.Metrics
}

// New builds an Engine. "Tomorrow" is evaluated from clock in loc.
func New(
	r resolver,
	w forecaster,
	s subscriptionStore,
	rp replier,
	clock clockwork.Clock,
	loc *time.Location,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With().Str("component", "ConversationEngine").Logger()
	return &Engine{
		resolver: r,
		weather:  w,
		store:    s,
		replies:  rp,
		clock:    clock,
		loc:      loc,
		logger:   logger,
		m:        m,
	}
}

// Handle processes one event. Non-text events are ignored without a reply;
// every other event gets exactly one reply.
func (e *Engine) Handle(ctx context.Context, ev models.InboundEvent) (Outcome, error) {
	if !ev.IsText() {
		e.logger.Debug().Ctx(ctx).
			Str("event_type", ev.EventType).
			Str("message_type", ev.MessageType).
			Msg("ignoring non-text event")
		e.record(OutcomeIgnored)
		return OutcomeIgnored, nil
	}

	in := e.resolver.Resolve(ev.Text)
	e.logger.Debug().Ctx(ctx).
		Str("subscriber_id", ev.SubscriberID).
		Str("intent", in.Kind.String()).
		Msg("resolved intent")

	var (
		outcome Outcome
		err     error
	)
	switch in.Kind {
	case intent.CitySelected:
		outcome, err = e.offerDates(ctx, ev, in.City)
	case intent.CityDatePair:
		outcome, err = e.handlePair(ctx, ev, in)
	default:
		outcome, err = e.offerCities(ctx, ev)
	}
	if err != nil {
		return outcome, err
	}

	e.record(outcome)
	return outcome, nil
}

func (e *Engine) offerDates(ctx context.Context, ev models.InboundEvent, city string) (Outcome, error) {
	tomorrow := e.tomorrow()
	qr := &models.QuickReply{}
	for i := 0; i < DateMenuSize; i++ {
		d := tomorrow.AddDays(i).String()
		qr.Add(d, city+":"+d)
	}

	text := fmt.Sprintf(msgCitySelected, city)
	if err := e.reply(ctx, ev, text, qr); err != nil {
		return OutcomeDateMenu, err
	}
	return OutcomeDateMenu, nil
}

func (e *Engine) handlePair(ctx context.Context, ev models.InboundEvent, in intent.Intent) (Outcome, error) {
	if in.Date == e.tomorrow() {
		return e.reportWeather(ctx, ev, in.City, in.Date)
	}

	sub := models.Subscription{SubscriberID: ev.SubscriberID, Date: in.Date, City: in.City}
	if err := e.store.Upsert(ctx, sub); err != nil {
		e.logger.Error().Err(err).Ctx(ctx).
			Str("subscriber_id", ev.SubscriberID).
			Msg("failed to store subscription")
		return OutcomeSubscribed, fmt.Errorf("store subscription: %w", err)
	}

	text := fmt.Sprintf(msgSubscribed, in.City, in.Date)
	if err := e.reply(ctx, ev, text, nil); err != nil {
		return OutcomeSubscribed, err
	}
	return OutcomeSubscribed, nil
}

func (e *Engine) reportWeather(ctx context.Context, ev models.InboundEvent, city string, date dates.Date) (Outcome, error) {
	var text string

	report, err := e.weather.Forecast(ctx, city, date)
	switch {
	case errors.Is(err, models.ErrWeatherNotFound):
		text = fmt.Sprintf(msgNoWeather, city, date)
	case err != nil:
		e.logger.Error().Err(err).Ctx(ctx).
			Str("city", city).
			Str("date", date.String()).
			Msg("weather lookup failed")
		e.m.TechnicalError("weather_fetch_error")
		return OutcomeWeatherReport, fmt.Errorf("forecast %s: %w", city, err)
	default:
		text = fmt.Sprintf(msgWeather, city, date, report.Description, report.TemperatureText())
	}

	if err := e.reply(ctx, ev, text, nil); err != nil {
		return OutcomeWeatherReport, err
	}
	return OutcomeWeatherReport, nil
}

func (e *Engine) offerCities(ctx context.Context, ev models.InboundEvent) (Outcome, error) {
	qr := &models.QuickReply{}
	for _, c := range e.resolver.Cities() {
		qr.Add(c, c)
	}
	if err := e.reply(ctx, ev, msgChooseCity, qr); err != nil {
		return OutcomeCityMenu, err
	}
	return OutcomeCityMenu, nil
}

func (e *Engine) reply(ctx context.Context, ev models.InboundEvent, text string, qr *models.QuickReply) error {
	if err := e.replies.Reply(ctx, ev.ReplyToken, text, qr); err != nil {
		e.logger.Error().Err(err).Ctx(ctx).
			Str("subscriber_id", ev.SubscriberID).
			Msg("failed to send reply")
		e.m.TechnicalError("reply_error")
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (e *Engine) tomorrow() dates.Date {
	return dates.Tomorrow(e.clock.Now().In(e.loc))
}

func (e *Engine) record(o Outcome) {
	e.m.WebhookEvents.WithLabelValues(o.String()).Inc()
}
