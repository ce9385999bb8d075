// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Transcripts   TranscriptConfig
	Webhook       WebhookConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Bridge        BridgeConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name      string `env:"SERVICE_NAME" envDefault:"transcript-restream-service"`
	Principal string `env:"SERVICE_PRINCIPAL" envDefault:"svc-restream"`
	Env       string `env:"ENV" envDefault:"production"`
	HTTPPort  int    `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort  string `env:"GRPC_PORT" envDefault:"50051"`
	// PublicWSBaseURL is advertised to live-push consumers; /ws/{id} is appended.
	PublicWSBaseURL string `env:"PUBLIC_WS_BASE_URL"`
}

type TranscriptConfig struct {
	Dir         string `env:"TRANSCRIPT_DIR" envDefault:"transcript"`
	DefaultFile string `env:"TRANSCRIPT_DEFAULT_FILE" envDefault:"intake_call_test.csv"`
}

type WebhookConfig struct {
	URLProd string        `env:"WEBHOOK_URL_PROD"`
	URLTest string        `env:"WEBHOOK_URL_TEST"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
}

type SessionConfig struct {
	// PendingTTL retires live-push sessions nobody connected to; 0 keeps them forever.
	PendingTTL time.Duration `env:"SESSION_PENDING_TTL" envDefault:"0s"`
}

type KafkaConfig struct {
	Enabled      bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	TopicRecords string   `env:"KAFKA_TOPIC_RECORDS" envDefault:"transcript.replay.record"`
	TopicBridge  string   `env:"KAFKA_TOPIC_BRIDGE" envDefault:"transcript.bridge.event"`
	Principal    string   `env:"KAFKA_PRINCIPAL"`
}

type BridgeConfig struct {
	Source       string `env:"BRIDGE_SOURCE" envDefault:"websocket"`
	URL          string `env:"BRIDGE_URL" envDefault:"wss://api.fireflies.ai"`
	APIToken     string `env:"BRIDGE_API_TOKEN"`
	TranscriptID string `env:"BRIDGE_TRANSCRIPT_ID"`
	WebhookURL   string `env:"BRIDGE_WEBHOOK_URL"`
	// AcceptBareEvents forwards untyped frames that are themselves valid events.
	AcceptBareEvents bool `env:"BRIDGE_ACCEPT_BARE_EVENTS" envDefault:"false"`
}

type ObservabilityConfig struct {
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	MetricsAddr  string `env:"METRICS_ADDR" envDefault:":9090"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Bridge source kinds.
const (
	BridgeSourceWebsocket = "websocket"
	BridgeSourceSimulated = "simulated"
)

// Load parses the environment, applies fallbacks and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}
	if cfg.Bridge.WebhookURL == "" {
		cfg.Bridge.WebhookURL = cfg.Webhook.URLProd
	}
	if cfg.Service.PublicWSBaseURL == "" {
		cfg.Service.PublicWSBaseURL = fmt.Sprintf("ws://0.0.0.0:%d", cfg.Service.HTTPPort)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules.
func (c *Config) Validate() error {
	if c.Service.HTTPPort <= 0 || c.Service.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.Service.HTTPPort)
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %v", c.Webhook.Timeout)
	}
	if c.Session.PendingTTL < 0 {
		return fmt.Errorf("SESSION_PENDING_TTL must not be negative, got %v", c.Session.PendingTTL)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	switch c.Bridge.Source {
	case BridgeSourceWebsocket, BridgeSourceSimulated:
	default:
		return fmt.Errorf("BRIDGE_SOURCE must be %q or %q, got %q", BridgeSourceWebsocket, BridgeSourceSimulated, c.Bridge.Source)
	}
	return nil
}

// ValidateBridge checks the settings the bridge command needs on top of Validate.
func (c *Config) ValidateBridge() error {
	if c.Bridge.WebhookURL == "" {
		return errors.New("BRIDGE_WEBHOOK_URL (or WEBHOOK_URL_PROD) is required")
	}
	if c.Bridge.Source == BridgeSourceWebsocket {
		if c.Bridge.APIToken == "" {
			return errors.New("BRIDGE_API_TOKEN is required for the websocket source")
		}
		if c.Bridge.TranscriptID == "" {
			return errors.New("BRIDGE_TRANSCRIPT_ID is required for the websocket source")
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in the dev environment.
func (c *Config) IsDevelopment() bool {
	return c.Service.Env == "dev" || c.Service.Env == "development"
}

// WebhookURL picks the production or test webhook endpoint.
func (c *Config) WebhookURL(useTest bool) (url, environment string) {
	if useTest {
		return c.Webhook.URLTest, "test"
	}
	return c.Webhook.URLProd, "production"
}
