// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// 秘密鍵。SecretKeyCiphertext が設定されている場合はKMSで復号した値を優先する。
	SecretKey           string `env:"SAFELINK_SECRET_KEY"`
	SecretKeyCiphertext string `env:"SAFELINK_SECRET_KEY_CIPHERTEXT"`
	KMSKeyName          string `env:"KMS_KEY_NAME"`
	LinkTimeout         int64  `env:"SAFELINK_TIMEOUT" envDefault:"10"`

	MigrationsDir string `env:"MIGRATIONS_DIR"`

	GoogleCloudProject string  `env:"GOOGLE_CLOUD_PROJECT"`
	OtelEnabled        bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OtelServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"safelink-service"`
	OtelSamplingRate   float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LinkTimeout <= 0 {
		return fmt.Errorf("SAFELINK_TIMEOUT must be positive, got %d", c.LinkTimeout)
	}
	if c.SecretKeyCiphertext != "" && c.KMSKeyName == "" {
		return fmt.Errorf("KMS_KEY_NAME is required when SAFELINK_SECRET_KEY_CIPHERTEXT is set")
	}
	if c.OtelSamplingRate < 0 || c.OtelSamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be between 0 and 1, got %v", c.OtelSamplingRate)
	}
	return nil
}
