package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
)

var ErrMissingRequiredEnv = commonerrors.ErrMissingRequiredEnv

type AMQPConfig struct {
	URL                string
	Exchange           string
	Prefetch           int
	DeadLetterExchange string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled is false when no SMTP host is configured; verification links are
// then only logged.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type WorkerConfig struct {
	AMQP                    AMQPConfig
	DatastoreURL            string
	TokenStoreURL           string
	VerificationTokenTTL    time.Duration
	VerificationURL         string
	SMTP                    SMTPConfig
	MetricsPort             string
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type PublisherConfig struct {
	AMQP AMQPConfig
}

func LoadWorkerConfig() (WorkerConfig, error) {
	amqpCfg, err := loadAMQPConfig()
	if err != nil {
		return WorkerConfig{}, err
	}

	datastoreURL, err := mustEnv("DATASTORE_URL")
	if err != nil {
		return WorkerConfig{}, err
	}
	if _, err := DatastoreKind(datastoreURL); err != nil {
		return WorkerConfig{}, err
	}

	tokenStoreURL, err := mustEnv("TOKEN_STORE_URL")
	if err != nil {
		return WorkerConfig{}, err
	}

	ttl := getDurationEnv("VERIFICATION_TOKEN_TTL", constants.DefaultVerificationTokenTTL)
	if ttl <= 0 {
		return WorkerConfig{}, fmt.Errorf("VERIFICATION_TOKEN_TTL must be positive, got %v", ttl)
	}

	return WorkerConfig{
		AMQP:                 amqpCfg,
		DatastoreURL:         datastoreURL,
		TokenStoreURL:        tokenStoreURL,
		VerificationTokenTTL: ttl,
		VerificationURL:      getEnv("VERIFICATION_URL", constants.DefaultVerificationURL),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", constants.DefaultSMTPPort),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", constants.DefaultSMTPFrom),
		},
		MetricsPort:             getEnv("METRICS_PORT", constants.DefaultMetricsPort),
		CircuitBreakerThreshold: int32(getIntEnv("CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
		CircuitBreakerTimeout:   getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
		CircuitBreakerReset:     getDurationEnv("CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset),
	}, nil
}

func LoadPublisherConfig() (PublisherConfig, error) {
	amqpCfg, err := loadAMQPConfig()
	if err != nil {
		return PublisherConfig{}, err
	}
	return PublisherConfig{AMQP: amqpCfg}, nil
}

func loadAMQPConfig() (AMQPConfig, error) {
	amqpURL, err := mustEnv("AMQP_URL")
	if err != nil {
		return AMQPConfig{}, err
	}

	prefetch := getIntEnv("AMQP_PREFETCH", constants.DefaultPrefetch)
	if prefetch < 1 {
		prefetch = constants.DefaultPrefetch
	}

	return AMQPConfig{
		URL:                amqpURL,
		Exchange:           getEnv("AMQP_EXCHANGE", constants.DefaultExchange),
		Prefetch:           prefetch,
		DeadLetterExchange: getEnv("AMQP_DEAD_LETTER_EXCHANGE", ""),
	}, nil
}

type StoreKind string

const (
	StoreMongo    StoreKind = "mongodb"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
	StoreMemory   StoreKind = "memory"
)

func DatastoreKind(raw string) (StoreKind, error) {
	switch scheme(raw) {
	case "mongodb", "mongodb+srv":
		return StoreMongo, nil
	case "postgres", "postgresql":
		return StorePostgres, nil
	default:
		return "", fmt.Errorf("unsupported DATASTORE_URL scheme in %q", raw)
	}
}

func TokenStoreKind(raw string) (StoreKind, error) {
	switch scheme(raw) {
	case "redis", "rediss":
		return StoreRedis, nil
	case "memory":
		return StoreMemory, nil
	default:
		return "", fmt.Errorf("unsupported TOKEN_STORE_URL scheme in %q", raw)
	}
}

func scheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
