package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"campuspark/pkg/client"
	"campuspark/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SpotCacheTTL  time.Duration

	PaymentAuditDSN string

	Port string

	JWTSecret            string
	PaymentWebhookSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MinLeadTime            time.Duration
	RateCentsPerHour       int
	MaxReservationDuration time.Duration
	MaxEventSpots          int
	AllowRegularApproval   bool

	KafkaEnabled           bool
	ReservationEventsTopic string
	ReservationEventsDLQ   string
	PaymentConfirmedTopic  string
	PaymentConfirmedDLQ    string
	PaymentConsumerGroupID string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),
		SpotCacheTTL:  getEnvDuration(EnvSpotCacheTTL, DefaultSpotCacheTTL),

		PaymentAuditDSN: getEnvStr(EnvPaymentAuditDSN, ""),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:            getEnvStr(EnvJWTSecret, ""),
		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		MinLeadTime:            getEnvDuration(EnvMinLeadTime, DefaultMinLeadTime),
		RateCentsPerHour:       getEnvNum(EnvRateCentsPerHour, DefaultRateCentsPerHour),
		MaxReservationDuration: getEnvDuration(EnvMaxReservationDuration, DefaultMaxReservationDuration),
		MaxEventSpots:          getEnvNum(EnvMaxEventSpots, DefaultMaxEventSpots),
		AllowRegularApproval:   getEnvBool(EnvAllowRegularApproval, DefaultAllowRegularApproval),

		KafkaEnabled:           getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		ReservationEventsTopic: getEnvStr(EnvReservationEventsTopic, DefaultReservationEventsTopic),
		ReservationEventsDLQ:   getEnvStr(EnvReservationEventsDLQ, DefaultReservationEventsDLQ),
		PaymentConfirmedTopic:  getEnvStr(EnvPaymentConfirmedTopic, DefaultPaymentConfirmedTopic),
		PaymentConfirmedDLQ:    getEnvStr(EnvPaymentConfirmedDLQ, DefaultPaymentConfirmedDLQ),
		PaymentConsumerGroupID: getEnvStr(EnvPaymentConsumerGroupID, DefaultPaymentConsumerGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the spot cache when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, spot cache disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

// SetPostgres connects the payment audit store when PAYMENT_AUDIT_DSN is configured.
func (cfg *Config) SetPostgres() {
	if cfg.PaymentAuditDSN == "" {
		cfg.Log.Info("Payment audit DSN not configured, audit trail disabled")
		return
	}
	cfg.Client.SetPostgres(cfg.Log, cfg.PaymentAuditDSN)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.PaymentAuditDSN != "" && !strings.HasPrefix(cfg.PaymentAuditDSN, "postgres") {
		errors = append(errors, "PaymentAuditDSN must be a postgres:// or postgresql:// URL")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"SpotCacheTTL", cfg.SpotCacheTTL},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"MaxReservationDuration", cfg.MaxReservationDuration},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.MinLeadTime < 0 {
		errors = append(errors, fmt.Sprintf("MinLeadTime cannot be negative, got: %s", cfg.MinLeadTime))
	}
	if cfg.RateCentsPerHour < 0 {
		errors = append(errors, fmt.Sprintf("RateCentsPerHour cannot be negative, got: %d", cfg.RateCentsPerHour))
	}
	if cfg.MaxEventSpots <= 0 {
		errors = append(errors, fmt.Sprintf("MaxEventSpots must be positive, got: %d", cfg.MaxEventSpots))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.KafkaEnabled {
		if cfg.ReservationEventsTopic == "" {
			errors = append(errors, "ReservationEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PaymentConfirmedTopic == "" {
			errors = append(errors, "PaymentConfirmedTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PaymentConsumerGroupID == "" {
			errors = append(errors, "PaymentConsumerGroupID cannot be empty when Kafka is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"spot_cache_ttl", cfg.SpotCacheTTL,
		"payment_audit_enabled", cfg.PaymentAuditDSN != "",
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"min_lead_time", cfg.MinLeadTime,
		"rate_cents_per_hour", cfg.RateCentsPerHour,
		"max_reservation_duration", cfg.MaxReservationDuration,
		"max_event_spots", cfg.MaxEventSpots,
		"allow_regular_approval", cfg.AllowRegularApproval,
		"kafka_enabled", cfg.KafkaEnabled,
		"reservation_events_topic", cfg.ReservationEventsTopic,
		"payment_confirmed_topic", cfg.PaymentConfirmedTopic,
	)
}

var credentialRegex = regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
