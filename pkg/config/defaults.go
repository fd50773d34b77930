package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "campuspark"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB      = 0
	DefaultSpotCacheTTL = 30 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMinLeadTime            = 10 * time.Minute
	DefaultRateCentsPerHour       = 250
	DefaultMaxReservationDuration = 7 * 24 * time.Hour
	DefaultMaxEventSpots          = 200
	DefaultAllowRegularApproval   = false

	DefaultKafkaEnabled           = false
	DefaultReservationEventsTopic = "parking.reservations"
	DefaultReservationEventsDLQ   = "dlq.parking.reservations"
	DefaultPaymentConfirmedTopic  = "parking.payments.confirmed"
	DefaultPaymentConfirmedDLQ    = "dlq.parking.payments.confirmed"
	DefaultPaymentConsumerGroupID = "campuspark-payments"

	DefaultPageSize    = 10
	MaxPaginationLimit = 100
)
