package constants

import "time"

const (
	UsernameMinLength    = 3
	UsernameMaxLength    = 32
	PasswordMinLength    = 8
	PasswordMaxLength    = 72
	EmailMaxLength       = 254
	DisplayNameMaxLength = 64
	RequestIDMaxLength   = 128

	DefaultVerificationTokenTTL = 6 * time.Hour
	DefaultVerificationURL      = "http://localhost:5000/v1/verifications/{{.Token}}"

	DefaultExchange     = "margarine.users.topic"
	DefaultPrefetch     = 10
	DefaultMetricsPort  = "9090"
	DefaultSMTPPort     = 587
	DefaultSMTPFrom     = "no-reply@margarine.local"
	DefaultDatabaseName = "margarine"
	AccountsCollection  = "users"

	TokenKeyPrefix = "verifications:"

	MemoryTokenSweepInterval = 1 * time.Hour

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = 1 * time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	AMQPDialMaxAttempts = 10
	AMQPDialRetryDelay  = 2 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second
	HealthTimeout   = 2 * time.Second

	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerTimeout   = 5 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
