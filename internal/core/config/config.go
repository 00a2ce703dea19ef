// Package config provides configuration management for alertkeeper.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by alertkeeper.
const EnvPrefix = "AK"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Rules    RulesConfig
	Handlers HandlersConfig
	History  HistoryConfig
}

// ServerConfig holds the HTTP API and health probe settings.
type ServerConfig struct {
	Host            string
	Port            int
	GRPCHealthPort  int // 0 disables the gRPC health server
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig tunes dispatch.
type EngineConfig struct {
	DispatchParallelism int // 0 or 1 dispatches sequentially
}

// RulesConfig selects rule sources.
type RulesConfig struct {
	Path                string // file or directory of YAML rule files; empty disables
	Watch               bool
	Debounce            time.Duration
	DisableBuiltin      bool
	HeatwaveTemperature int
	HeatwaveHumidity    int
}

// HandlersConfig enables output handlers.
type HandlersConfig struct {
	Log     bool
	Console bool
	Kafka   KafkaConfig
	Webhook WebhookConfig
}

// KafkaConfig configures the Kafka handler. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// WebhookConfig configures the webhook handler. Empty URL disables it.
// KeyID selects which HMAC secret signs the requests.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	KeyID   string
}

// HistoryConfig configures alert history persistence. Empty DBURL disables it.
type HistoryConfig struct {
	DBURL         string
	Retention     time.Duration
	PruneSchedule string // cron spec; empty disables pruning
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			GRPCHealthPort:  8081,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Rules: RulesConfig{
			Debounce:            100 * time.Millisecond,
			HeatwaveTemperature: 100,
			HeatwaveHumidity:    60,
		},
		Handlers: HandlersConfig{
			Log: true,
			Kafka: KafkaConfig{
				Topic:        "alerts",
				WriteTimeout: 10 * time.Second,
			},
			Webhook: WebhookConfig{
				Timeout: 5 * time.Second,
			},
		},
		History: HistoryConfig{
			Retention:     30 * 24 * time.Hour,
			PruneSchedule: "0 3 * * *",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports AK_HMAC_SECRET (single) and AK_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s_HMAC_SECRET and %s_HMAC_SECRET_* for conflicts)", secretID, EnvPrefix, EnvPrefix)
		}
		secrets[secretID] = decoded
		return nil
	}

	single := EnvPrefix + "_HMAC_SECRET"
	if val := os.Getenv(single); val != "" {
		if err := add(single, val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation.
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_HMAC_SECRET_%d", EnvPrefix, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars.
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
