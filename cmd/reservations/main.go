package main

import (
	"context"

	lotHandler "campuspark/internal/lots/handler"
	lotRepository "campuspark/internal/lots/repository"
	lotService "campuspark/internal/lots/service"
	"campuspark/internal/payments/audit"
	"campuspark/internal/payments/consumer"
	paymentHandler "campuspark/internal/payments/handler"
	paymentService "campuspark/internal/payments/service"
	"campuspark/internal/reservations/events"
	reservationHandler "campuspark/internal/reservations/handler"
	reservationRepository "campuspark/internal/reservations/repository"
	"campuspark/internal/reservations/pricing"
	reservationService "campuspark/internal/reservations/service"
	"campuspark/internal/reservations/validator"
	"campuspark/pkg/app"
	"campuspark/pkg/auth"
	"campuspark/pkg/cache"
	"campuspark/pkg/config"
	"campuspark/pkg/kafka"
	kafka_config "campuspark/pkg/kafka/config"
	kafka_middleware "campuspark/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	cfg.SetPostgres()

	cfg.Log.Info("Starting Reservations service")

	serverApp := app.NewApplication(cfg)
	health := app.NewHealthHandler(cfg.Log)
	registerHealthChecks(cfg, health)

	metrics := kafka_middleware.NewMetrics()
	health.WithEventMetrics(metrics)

	var kafkaCfg *kafka_config.Config
	var producer kafka.Publisher
	if cfg.KafkaEnabled {
		var err error
		kafkaCfg, err = kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		p, err := kafka.NewProducer(kafkaCfg, cfg.ReservationEventsTopic, cfg.ReservationEventsDLQ, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			p.Use(metrics.ProducerMiddleware())
			p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		}
		producer = p
		serverApp.AddWorker("reservation-events-producer", closer{p})
	}

	spotCache := cache.NewSpotCache(cfg.Client.Redis, cfg.SpotCacheTTL, cfg.Log)
	lotRepo := lotRepository.NewMongoLotRepository(cfg)
	lots := lotService.NewLotService(lotRepo, spotCache, cfg)

	reservationValidator := validator.NewReservationValidator(cfg.MaxEventSpots, cfg.Log)
	reservations := reservationService.NewReservationService(
		reservationRepository.NewMongoReservationRepository(cfg),
		reservationRepository.NewLockRepository(cfg),
		lotRepo,
		reservationValidator,
		pricing.NewEngine(cfg.RateCentsPerHour),
		events.NewPublisher(producer, cfg.Log),
		spotCache,
		cfg,
	)

	var auditRepo audit.Repository
	if cfg.Client.Postgres != nil {
		auditRepo = audit.NewRepository(cfg.Client.Postgres)
	}
	payments := paymentService.NewPaymentService(reservations, auditRepo, reservationValidator, cfg)

	if cfg.KafkaEnabled {
		paymentConsumer, err := kafka.NewConsumer(
			kafkaCfg,
			cfg.PaymentConfirmedTopic,
			cfg.PaymentConsumerGroupID,
			cfg.PaymentConfirmedDLQ,
			consumer.NewPaymentConsumer(payments, cfg.Log).Handle,
			cfg.Log,
		)
		if err != nil {
			cfg.Log.Fatal("Failed to create payment consumer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			paymentConsumer.Use(metrics.ConsumerMiddleware())
			paymentConsumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		}
		serverApp.AddWorker("payment-consumer", paymentConsumer)
	}

	serverApp.SetApp(
		health,
		lotHandler.NewLotHandler(lots, cfg.Log),
		reservationHandler.NewReservationHandler(reservations, auth.NewService(cfg.JWTSecret), cfg.Log),
		paymentHandler.NewPaymentHandler(payments, cfg.Log),
	)
	serverApp.Run()
}

func registerHealthChecks(cfg *config.Config, health *app.HealthHandler) {
	health.AddCheck("mongo", func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	}, true)

	if cfg.Client.Redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}, false)
	}

	if cfg.Client.Postgres != nil {
		health.AddCheck("postgres", func(ctx context.Context) error {
			return cfg.Client.Postgres.PingContext(ctx)
		}, false)
	}
}

// closer lets the producer ride the worker lifecycle so it is flushed and
// closed after the HTTP server drains.
type closer struct {
	producer *kafka.Producer
}

func (c closer) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (c closer) Close() error {
	return c.producer.Close()
}
