package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvSpotCacheTTL  = "SPOT_CACHE_TTL"

	EnvPaymentAuditDSN = "PAYMENT_AUDIT_DSN"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret            = "JWT_SECRET"
	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMinLeadTime            = "RESERVATION_MIN_LEAD_TIME"
	EnvRateCentsPerHour       = "RESERVATION_RATE_CENTS_PER_HOUR"
	EnvMaxReservationDuration = "RESERVATION_MAX_DURATION"
	EnvMaxEventSpots          = "EVENT_MAX_SPOTS"
	EnvAllowRegularApproval   = "ALLOW_REGULAR_APPROVAL"

	EnvKafkaEnabled           = "KAFKA_ENABLED"
	EnvReservationEventsTopic = "KAFKA_RESERVATION_EVENTS_TOPIC"
	EnvReservationEventsDLQ   = "KAFKA_RESERVATION_EVENTS_DLQ"
	EnvPaymentConfirmedTopic  = "KAFKA_PAYMENT_CONFIRMED_TOPIC"
	EnvPaymentConfirmedDLQ    = "KAFKA_PAYMENT_CONFIRMED_DLQ"
	EnvPaymentConsumerGroupID = "KAFKA_PAYMENT_CONSUMER_GROUP"
)
