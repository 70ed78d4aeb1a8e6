package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/notify"
	"github.com/niksmo/storefront/internal/adapter/redis"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/schema"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const limiterCleanupInterval = time.Minute

type serdes struct {
	notification schema.Serde
	metricEvent  schema.Serde
	emailStats   schema.Serde
}

type repositories struct {
	catalog storage.CatalogRepository
	orders  storage.OrderRepository
	users   storage.UserRepository
	metrics storage.EmailMetricRepository
	carts   redis.CartStore
}

type producers struct {
	notifications kafka.NotificationProducer
	metrics       kafka.MetricProducer
}

type coreService struct {
	catalog       service.CatalogService
	orders        service.OrderService
	carts         service.CartService
	users         service.UserService
	notifications service.NotificationService
}

type App struct {
	ctx  context.Context
	cfg  config.Config
	conn kafka.ConnConfig

	sqlDB storage.SQLDB
	rdb   *goredis.Client

	serdes       serdes
	repositories repositories
	producers    producers
	service      coreService

	statsProc     *kafka.EmailStatsProcessor
	statsView     *kafka.EmailStatsView
	notifConsumer kafka.NotificationConsumer

	limiter    *httphandler.IPRateLimiter
	httpServer httphandler.HTTPServer

	stopWorkers context.CancelFunc
	workers     *errgroup.Group
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	app.initBrokerConn()
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	sqlDB, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB.DSN, storage.PoolConfig{
		MaxOpenConns:    app.cfg.SQLDB.MaxOpenConns,
		MaxIdleConns:    app.cfg.SQLDB.MaxIdleConns,
		ConnMaxLifetime: app.cfg.SQLDB.ConnMaxLifetime,
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqlDB = sqlDB

	rdb, err := redis.NewClient(
		app.ctx, app.cfg.Redis.Addr, app.cfg.Redis.Password, app.cfg.Redis.DB,
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.rdb = rdb

	app.repositories = repositories{
		catalog: storage.NewCatalogRepository(sqlDB),
		orders:  storage.NewOrderRepository(sqlDB),
		users:   storage.NewUserRepository(sqlDB),
		metrics: storage.NewEmailMetricRepository(sqlDB),
		carts:   redis.NewCartStore(rdb, app.cfg.Redis.CartTTL),
	}
}

func (app *App) initBrokerConn() {
	const op = "App.initBrokerConn"

	b := app.cfg.Broker
	app.conn = kafka.ConnConfig{
		SeedBrokers: b.SeedBrokers,
		User:        b.SASL.User,
		Pass:        b.SASL.Pass,
	}
	if b.TLS.Enabled() {
		tlsConfig, err := adapter.MakeTLSConfig(b.TLS.CA, b.TLS.Cert, b.TLS.Key)
		if err != nil {
			app.fallDown(op, err)
		}
		app.conn.TLSConfig = tlsConfig
	}
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	ctx := app.ctx
	topics := app.cfg.Broker.Topics
	statsGroup := app.cfg.Broker.Consumers.EmailStatsGroup

	schemaCreater, err := schema.NewSchemaCreater(app.cfg.Broker.SchemaRegistryURLs...)
	if err != nil {
		app.fallDown(op, err)
	}

	notificationSerde, err := schema.NewSerdeNotificationV1(
		ctx,
		schema.SubjectOpt(schema.Subject(topics.Notifications)),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	metricEventSerde, err := schema.NewSerdeEmailMetricEventV1(
		ctx,
		schema.SubjectOpt(schema.Subject(topics.EmailMetricEvents)),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	statsTable := string(goka.GroupTable(goka.Group(statsGroup)))
	emailStatsSerde, err := schema.NewSerdeEmailStatsV1(
		ctx,
		schema.SubjectOpt(schema.Subject(statsTable)),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes = serdes{
		notification: notificationSerde,
		metricEvent:  metricEventSerde,
		emailStats:   emailStatsSerde,
	}
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"

	ctx := app.ctx
	topics := app.cfg.Broker.Topics
	statsGroup := app.cfg.Broker.Consumers.EmailStatsGroup

	notificationProducer, err := kafka.NewNotificationProducer(
		kafka.ProducerClientOpt(ctx, app.conn, topics.Notifications),
		kafka.ProducerEncoderOpt(app.serdes.notification),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	metricProducer, err := kafka.NewMetricProducer(
		kafka.ProducerClientOpt(ctx, app.conn, topics.EmailMetricEvents),
		kafka.ProducerEncoderOpt(app.serdes.metricEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	statsProc, err := kafka.NewEmailStatsProc(
		app.conn,
		topics.EmailMetricEvents,
		statsGroup,
		app.serdes.metricEvent,
		app.serdes.emailStats,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	statsView, err := kafka.NewEmailStatsView(app.conn, statsGroup, app.serdes.emailStats)
	if err != nil {
		app.fallDown(op, err)
	}

	app.producers = producers{
		notifications: notificationProducer,
		metrics:       metricProducer,
	}
	app.statsProc = statsProc
	app.statsView = statsView
}

func (app *App) dispatchers() map[domain.Channel]port.Dispatcher {
	const op = "App.dispatchers"

	n := app.cfg.Notify
	if n.LogMode() {
		ds := map[domain.Channel]port.Dispatcher{
			domain.ChannelEmail: notify.NewLogDispatcher(domain.ChannelEmail),
		}
		if n.WhatsApp.Enabled {
			ds[domain.ChannelWhatsApp] = notify.NewLogDispatcher(domain.ChannelWhatsApp)
		}
		return ds
	}

	email, err := notify.NewEmailDispatcher(notify.SMTPConfig{
		Host:     n.SMTP.Host,
		Port:     n.SMTP.Port,
		User:     n.SMTP.User,
		Password: n.SMTP.Password,
		From:     n.SMTP.From,
	})
	if err != nil {
		app.fallDown(op, err)
	}

	ds := map[domain.Channel]port.Dispatcher{domain.ChannelEmail: email}
	if n.WhatsApp.Enabled {
		ds[domain.ChannelWhatsApp] = notify.NewWhatsAppDispatcher(notify.WhatsAppConfig{
			APIURL:        n.WhatsApp.APIURL,
			PhoneNumberID: n.WhatsApp.PhoneNumberID,
			Token:         n.WhatsApp.Token,
			Timeout:       n.WhatsApp.Timeout,
		})
	}
	return ds
}

func (app *App) initCoreService() {
	r := app.repositories
	pricing := domain.Pricing{
		TaxRate:          app.cfg.Pricing.TaxRate,
		ShippingAmount:   app.cfg.Pricing.Shipping,
		FreeShippingFrom: app.cfg.Pricing.FreeShippingFrom,
	}

	app.service = coreService{
		catalog: service.NewCatalogService(r.catalog),
		orders: service.NewOrderService(
			r.orders, r.users, r.carts, app.producers.notifications, pricing,
		),
		carts: service.NewCartService(r.carts, r.catalog),
		users: service.NewUserService(r.users),
		notifications: service.NewNotificationService(
			app.dispatchers(),
			r.metrics,
			app.producers.metrics,
			r.orders,
			app.statsView,
			app.cfg.Notify.MaxAttempts,
		),
	}
}

func (app *App) initInboundAdapters() {
	const op = "App.initInboundAdapters"

	b := app.cfg.Broker
	consumer, err := kafka.NewNotificationConsumer(
		kafka.ConsumerClientOpt(app.conn, b.Topics.Notifications, b.Consumers.NotificationGroup),
		kafka.ConsumerDecoderOpt(app.serdes.notification),
		kafka.NotificationHandlerOpt(app.service.notifications),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.notifConsumer = consumer

	auth, err := httphandler.NewAuthenticator(httphandler.AuthConfig{
		Secret:       app.cfg.Auth.JWTSecret,
		PublicKeyPEM: app.cfg.Auth.JWTPublicKey,
		Issuer:       app.cfg.Auth.JWTIssuer,
	}, app.service.users)
	if err != nil {
		app.fallDown(op, err)
	}

	verifier, err := httphandler.NewSvixVerifier(app.cfg.Auth.WebhookSecret)
	if err != nil {
		app.fallDown(op, err)
	}

	app.limiter = httphandler.NewIPRateLimiter(httphandler.RateConfig{
		RPS:   app.cfg.HTTP.CheckoutRPS,
		Burst: app.cfg.HTTP.CheckoutBurst,
	})

	s := app.service
	router := httphandler.NewRouter(httphandler.Services{
		CatalogReader:  s.catalog,
		CatalogManager: s.catalog,
		OrderPlacer:    s.orders,
		OrderReader:    s.orders,
		OrderManager:   s.orders,
		Carts:          s.carts,
		UserSyncer:     s.users,
		UserManager:    s.users,
		EmailMetrics:   s.notifications,
	}, auth, app.limiter, verifier)

	app.httpServer = httphandler.NewHTTPServer(httphandler.ServerConfig{
		Addr:              app.cfg.HTTP.Addr,
		HandlerTimeout:    app.cfg.HTTP.HandlerTimeout,
		ReadHeaderTimeout: app.cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       app.cfg.HTTP.IdleTimeout,
	}, router)
}

// Run starts the background workers and the http server. stopFn is
// called when any of them stops unexpectedly.
func (app *App) Run(stopFn context.CancelFunc) {
	ctx, cancel := context.WithCancel(app.ctx)
	app.stopWorkers = cancel

	g, ctx := errgroup.WithContext(ctx)
	app.workers = g

	var wg sync.WaitGroup
	wg.Add(1)
	go app.statsProc.Run(ctx, stopFn, &wg)
	wg.Wait()

	g.Go(func() error {
		app.statsView.Run(ctx)
		return nil
	})
	g.Go(func() error {
		app.notifConsumer.Run(ctx)
		return nil
	})
	g.Go(func() error {
		app.limiter.Cleanup(ctx, limiterCleanupInterval)
		return nil
	})

	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	const op = "App.Close"
	log := slog.With("op", op)

	log.Info("application is closing...")

	app.httpServer.Close(ctx)

	if app.stopWorkers != nil {
		app.stopWorkers()
		done := make(chan error, 1)
		go func() { done <- app.workers.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				log.Error("worker failed", "err", err)
			}
		case <-ctx.Done():
			log.Warn("workers did not stop in time", "err", ctx.Err())
		}
	}

	app.notifConsumer.Close()
	app.statsProc.Close()
	app.producers.notifications.Close()
	app.producers.metrics.Close()

	if err := app.rdb.Close(); err != nil {
		log.Error("failed to close redis client", "err", err)
	}
	app.sqlDB.Close()

	log.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
