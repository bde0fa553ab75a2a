// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// JWTSigningKey verifies bearer tokens issued by the account system.
	JWTSigningKey string

	// AdminAPIKeyHash is a bcrypt hash of the admin API key guarding the
	// support/reset endpoints. Empty disables the admin surface.
	AdminAPIKeyHash string

	// FetchTimeout bounds remote lookups during a credit fetch. On expiry the
	// ledger degrades to free-tier limits rather than failing the request.
	FetchTimeout time.Duration
}

// Redis captures connection settings for the key-value store backing
// rate-limit windows and guest credit flags. Empty URL selects the in-memory
// store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres captures the DSN for the authoritative usage database. Empty DSN
// selects in-memory stores (dev/test mode).
type Postgres struct {
	DSN string
}

// Kafka captures the optional audit event sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the top-level runtime configuration.
type Config struct {
	Server   Server
	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("CREDITGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	fetchTimeout := 10 * time.Second
	if v := os.Getenv("CREDIT_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			fetchTimeout = d
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "creditgate.audit"
	}

	return Config{
		Server: Server{
			Addr:            addr,
			JWTSigningKey:   jwtSigningKey,
			AdminAPIKeyHash: os.Getenv("ADMIN_API_KEY_HASH"),
			FetchTimeout:    fetchTimeout,
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: Kafka{
			Brokers: brokers,
			Topic:   topic,
		},
	}
}
