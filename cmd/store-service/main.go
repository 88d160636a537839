package main

import (
	"context"
	"flag"
	"net/http"

	"go.opentelemetry.io/otel"

	"shopcore/internal/pkg/bootstrap"
	"shopcore/internal/pkg/cache"
	"shopcore/internal/pkg/config"
	"shopcore/internal/pkg/logger"
	"shopcore/internal/pkg/mq"
	"shopcore/internal/pkg/tracing"
	"shopcore/internal/push"
	"shopcore/internal/store/application"
	"shopcore/internal/store/infrastructure"
	"shopcore/internal/store/infrastructure/adapter"
	"shopcore/internal/store/interfaces"
	"shopcore/internal/store/port"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)

	tp, err := tracing.InitTracerProvider(cfg.Service.Name, cfg.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("init tracer provider")
	}
	tracer := otel.Tracer(cfg.Service.Name)

	db, err := infrastructure.OpenMySQL(cfg.MySQL.DSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("open database")
	}
	store := infrastructure.NewGormStore(db)

	badge := cache.New(cfg.Redis.Addr)

	notifier := adapter.NewNotificationKafkaAdapter(
		mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic))
	events := adapter.NewEventBusKafkaAdapter(
		mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic))

	hub := push.NewHub()
	go hub.Run()

	ledger := application.NewInventoryLedger()
	orders := application.NewOrderService(store, ledger, notifier,
		[]port.EventBus{events, hub}, badge, cfg.Order.ShippingFee, tracer)
	carts := application.NewCartService(store, badge, tracer)

	handler := interfaces.NewStoreHandler(orders, carts)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		RegisterHandlers: func(mux *http.ServeMux) {
			handler.RegisterRoutes(mux)
			mux.HandleFunc("/ws", hub.ServeWS)
		},
		Cleanup: []func(ctx context.Context) error{
			func(ctx context.Context) error { return tp.Shutdown(ctx) },
			func(ctx context.Context) error { return notifier.Close() },
			func(ctx context.Context) error { return events.Close() },
			func(ctx context.Context) error { return badge.Close() },
		},
	})
}
