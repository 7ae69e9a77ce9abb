// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"github.com/okian/convrelay/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AuditPolicy controls request/response auditing: always, never, debug.
	AuditPolicy string `koanf:"audit_policy"`

	// AuditTopic names the Kafka topic for the analytical audit sink.
	AuditTopic string `koanf:"audit_topic"`

	// KafkaBrokers lists broker addresses for the analytical audit sink.
	// Empty disables the sink; audit records still go to the log sink.
	KafkaBrokers []string `koanf:"kafka_brokers"`

	// RedisURL points the credential cache at a Redis instance. Empty
	// keeps the cache in process memory.
	RedisURL string `koanf:"redis_url"`

	// RedisTTLSeconds bounds how long a cached credential survives in
	// Redis. Kept below the hour-long upstream token lifetime.
	RedisTTLSeconds int `koanf:"redis_ttl_seconds"`

	// Conversion holds the static per-deployment conversion settings that
	// merge with each incoming event during resolution.
	Conversion model.ConfigSet `koanf:"conversion"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		AuditPolicy:     "debug",
		AuditTopic:      "conversion-audit",
		RedisTTLSeconds: 3300,
		Conversion: model.ConfigSet{
			HashAllIdentifiers: true,
		},
	}
}
