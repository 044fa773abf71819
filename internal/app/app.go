package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"github.com/wagslane/go-rabbitmq"
	"go.uber.org/zap"

	_ "github.com/Nazarious-ucu/weather-line-bot/docs"
	"github.com/Nazarious-ucu/weather-line-bot/internal/config"
	"github.com/Nazarious-ucu/weather-line-bot/internal/conversation"
	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
	http2 "github.com/Nazarious-ucu/weather-line-bot/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-line-bot/internal/intent"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
	"github.com/Nazarious-ucu/weather-line-bot/internal/notifier"
	"github.com/Nazarious-ucu/weather-line-bot/internal/producers"
	"github.com/Nazarious-ucu/weather-line-bot/internal/repository/sqlite"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/cache"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/line"
	httplog "github.com/Nazarious-ucu/weather-line-bot/internal/services/logger"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/weather"
	"github.com/Nazarious-ucu/weather-line-bot/internal/services/weather/decorators"
	"github.com/Nazarious-ucu/weather-line-bot/migrations"

	_ "modernc.org/sqlite"
)

const (
	timeoutDuration = 5 * time.Second
	busyTimeoutMs   = 5000
)

type weatherService interface {
	Forecast(ctx context.Context, city string, date dates.Date) (models.WeatherReport, error)
	Current(ctx context.Context, city string) (models.WeatherReport, error)
}

type pusher interface {
	Push(ctx context.Context, to, text string) error
}

type ServiceContainer struct {
	WeatherService weatherService
	LineClient     *line.Client
	SubRepository  *sqlite.SubscriptionRepository
	Engine         *conversation.Engine
	Notificator    *notifier.Notifier
	Pusher         pusher

	Router     *gin.Engine
	Srv        *http.Server
	Db         *sql.DB
	redis      *redis.Client
	rabbitConn *rabbitmq.Conn
	publisher  *rabbitmq.Publisher
}

type App struct {
	cfg        config.Config
	l          zerolog.Logger
	m          *metrics.Metrics
	fileLogger *zap.Logger
	clock      clockwork.Clock
}

type Option func(*App)

// WithClock replaces the wall clock used for "tomorrow".
func WithClock(clock clockwork.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// New builds the application. fileLogger may be nil to skip HTTP round-trip logging.
func New(cfg config.Config, logger zerolog.Logger, m *metrics.Metrics, fileLogger *zap.Logger, opts ...Option) *App {
	logger = logger.With().Str("service", "weather-line-bot").Logger()
	a := &App{cfg: cfg, l: logger, m: m, fileLogger: fileLogger, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start serves the webhook until ctx is cancelled. The notifier runs in-process
// only when a schedule is configured.
func (a *App) Start(ctx context.Context) error {
	srvContainer, err := a.Init(ctx)
	if err != nil {
		return err
	}
	a.Routes(srvContainer)

	if err := srvContainer.Notificator.Start(ctx); err != nil {
		_ = a.Stop(srvContainer)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
		if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.l.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.l.Error().Err(err).Msg("HTTP server error")
			_ = a.Stop(srvContainer)
			return err
		}
	}
	return a.Stop(srvContainer)
}

// RunNotifier performs a single notification run for an external daily trigger.
func (a *App) RunNotifier(ctx context.Context) (notifier.Result, error) {
	srvContainer, err := a.Init(ctx)
	if err != nil {
		return notifier.Result{}, err
	}
	defer func() { _ = a.Stop(srvContainer) }()

	return srvContainer.Notificator.Run(ctx, a.clock.Now())
}

// Routes mounts the webhook, ops and docs endpoints on the container's router.
func (a *App) Routes(srvContainer ServiceContainer) {
	h := http2.NewHandler(srvContainer.Engine, a.cfg.Line.ChannelSecret, a.l, a.m)

	srvContainer.Router.Use(gin.Recovery(), http2.RequestLogger(a.l), a.m.HTTPMiddleware())
	srvContainer.Router.POST("/webhook", h.Webhook)
	srvContainer.Router.GET("/healthz", h.Healthz)
	srvContainer.Router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	srvContainer.Router.GET("/metrics", gin.WrapH(a.m.Handler()))
}

func (a *App) Stop(srvContainer ServiceContainer) error {
	a.l.Info().Msg("Stopping application")

	srvContainer.Notificator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	}

	if srvContainer.publisher != nil {
		srvContainer.publisher.Close()
	}
	if srvContainer.rabbitConn != nil {
		if err := srvContainer.rabbitConn.Close(); err != nil {
			a.l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}
	if srvContainer.redis != nil {
		if err := srvContainer.redis.Close(); err != nil {
			a.l.Error().Err(err).Msg("Redis close error")
		}
	}

	if err := srvContainer.Db.Close(); err != nil {
		a.l.Error().Err(err).Msg("Database close error")
	} else {
		a.l.Info().Msg("Database closed")
	}

	a.l.Info().Msg("Application shutdown complete")
	return nil
}

// Init opens the store and builds every service; callers own the result and
// release it with Stop.
func (a *App) Init(ctx context.Context) (ServiceContainer, error) {
	a.l.Info().Msg("Initializing application")

	loc, err := a.cfg.Location()
	if err != nil {
		return ServiceContainer{}, err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return ServiceContainer{}, err
	}

	router := gin.New()
	httpSrv := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	httpClient := a.newHTTPClient()
	repo := sqlite.NewSubscriptionRepository(db, a.l, a.m)
	lineClient := line.NewClient(a.cfg.Line.AccessToken, a.cfg.Line.APIURL, httpClient, a.l)

	container := ServiceContainer{
		LineClient:    lineClient,
		SubRepository: repo,
		Router:        router,
		Srv:           httpSrv,
		Db:            db,
		Pusher:        lineClient,
	}

	container.WeatherService, container.redis = a.newWeatherService(ctx, httpClient)

	if a.cfg.RabbitMQ.Enabled() {
		conn, err := a.setupConn()
		if err != nil {
			_ = db.Close()
			return ServiceContainer{}, err
		}
		publisher, err := a.setupPublisher(conn)
		if err != nil {
			_ = conn.Close()
			_ = db.Close()
			return ServiceContainer{}, err
		}
		container.rabbitConn = conn
		container.publisher = publisher
		container.Pusher = producers.NewProducer(publisher, a.l, a.m)
	}

	container.Engine = conversation.New(
		intent.NewResolver(models.SupportedCities),
		container.WeatherService,
		repo,
		lineClient,
		a.clock,
		loc,
		a.l,
		a.m,
	)

	container.Notificator = notifier.New(
		repo,
		container.WeatherService,
		container.Pusher,
		a.clock,
		notifier.Config{
			Schedule:    a.cfg.Notifier.Schedule,
			Concurrency: a.cfg.Notifier.Concurrency,
			ItemTimeout: a.cfg.Notifier.ItemTimeout,
			Location:    loc,
		},
		a.l,
		a.m,
	)

	return container, nil
}

func (a *App) newHTTPClient() *http.Client {
	client := &http.Client{Timeout: a.cfg.HTTPClientTimeout}
	if a.fileLogger != nil {
		client.Transport = httplog.NewRoundTripper(a.fileLogger)
	}
	return client
}

// newWeatherService chains provider, circuit breaker and, with Redis
// configured, a cache.
func (a *App) newWeatherService(ctx context.Context, httpClient *http.Client) (weatherService, *redis.Client) {
	provider := weather.NewClientOpenWeatherMap(
		a.cfg.OpenWeatherMap.APIKey, a.cfg.OpenWeatherMap.URL, httpClient, a.l)

	breaker := weather.NewBreakerClient("OpenWeatherMap", weather.BreakerConfig{
		TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
		TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
		RepeatNumber: a.cfg.Breaker.RepeatNumber,
	}, provider)

	if a.cfg.Redis.Addr == "" {
		return breaker, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.l.Warn().Err(err).Str("addr", a.cfg.Redis.Addr).Msg("Redis unreachable, cache disabled")
		_ = rdb.Close()
		return breaker, nil
	}

	redisCache := cache.NewRedisClient[models.WeatherReport](
		rdb, a.l, time.Duration(a.cfg.Redis.LiveTime)*time.Minute)
	collector := metrics.NewPromCollector("weather_line_bot", a.m.Registerer())
	return decorators.NewCachedService(
		breaker, cache.NewMetricsDecorator[models.WeatherReport](redisCache, collector), a.l,
	), rdb
}

// openDB opens the configured database, migrates it and registers its stats.
func (a *App) openDB(ctx context.Context) (*sql.DB, error) {
	dbCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	db, err := CreateSqliteDb(dbCtx, a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		a.l.Error().Err(err).Msg("DB open error")
		return nil, err
	}
	if err := InitSqliteDb(db, a.cfg.DB.Dialect); err != nil {
		a.l.Error().Err(err).Msg("DB migration error")
		_ = db.Close()
		return nil, err
	}
	a.m.RegisterDB(db, a.cfg.DB.Source)
	return db, nil
}

func CreateSqliteDb(ctx context.Context, dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(%d)", name, busyTimeoutMs)
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}
	// one writer at a time; concurrent notifier deletes queue here
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// InitSqliteDb applies the embedded migrations.
func InitSqliteDb(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.Up(db, ".")
}
