package main

import (
	"context"
	"encoding/json"
	"flag"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopcore/internal/pkg/config"
	"shopcore/internal/pkg/logger"
	"shopcore/internal/pkg/mq"
	"shopcore/internal/pkg/tracing"
)

const consumerGroupID = "notification-worker"

type mailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// The worker drains the notifications topic and hands each message to the
// mail provider. Delivery is decoupled from the order transaction: a
// failure here never affects a committed order.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("load config")
	}
	logger.Init("notification-worker", cfg.Service.LogLevel)

	tp, err := tracing.InitTracerProvider("notification-worker", cfg.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("init tracer provider")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.L().Error().Err(err).Msg("tracer shutdown")
		}
	}()
	tracer := otel.Tracer("notification-worker")

	reader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, consumerGroupID)
	defer reader.Close()

	logger.L().Info().
		Str("topic", cfg.Kafka.NotificationsTopic).
		Msg("notification worker consuming")

	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			logger.L().Error().Err(err).Msg("read message")
			continue
		}
		process(tracer, msg)
	}
}

func process(tracer trace.Tracer, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(context.Background(), msg.Headers)
	ctx, span := tracer.Start(ctx, "notification.Deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		))
	defer span.End()

	var mail mailMessage
	if err := json.Unmarshal(msg.Value, &mail); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unmarshal notification")
		logger.Ctx(ctx).Error().Err(err).Msg("bad notification payload")
		return
	}

	// Mail provider integration goes through here; the engine only needs
	// the contract that delivery is attempted after commit.
	logger.Ctx(ctx).Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Msg("delivering notification")
}
