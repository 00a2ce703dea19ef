package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration using a fresh viper instance.
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.New(), configPath)
}

// Load reads configuration into v and decodes it.
// CLI flags bound to v > environment > config file > defaults.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v, DefaultConfig())

	// AK_SERVER_PORT -> server.port
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			GRPCHealthPort:  v.GetInt("server.grpc_health_port"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Engine: EngineConfig{
			DispatchParallelism: v.GetInt("engine.dispatch_parallelism"),
		},
		Rules: RulesConfig{
			Path:                v.GetString("rules.path"),
			Watch:               v.GetBool("rules.watch"),
			Debounce:            v.GetDuration("rules.debounce"),
			DisableBuiltin:      v.GetBool("rules.disable_builtin"),
			HeatwaveTemperature: v.GetInt("rules.heatwave_temperature"),
			HeatwaveHumidity:    v.GetInt("rules.heatwave_humidity"),
		},
		Handlers: HandlersConfig{
			Log:     v.GetBool("handlers.log"),
			Console: v.GetBool("handlers.console"),
			Kafka: KafkaConfig{
				Brokers:      v.GetStringSlice("handlers.kafka.brokers"),
				Topic:        v.GetString("handlers.kafka.topic"),
				WriteTimeout: v.GetDuration("handlers.kafka.write_timeout"),
			},
			Webhook: WebhookConfig{
				URL:     v.GetString("handlers.webhook.url"),
				Timeout: v.GetDuration("handlers.webhook.timeout"),
				KeyID:   v.GetString("handlers.webhook.key_id"),
			},
		},
		History: HistoryConfig{
			DBURL:         v.GetString("history.db_url"),
			Retention:     v.GetDuration("history.retention"),
			PruneSchedule: v.GetString("history.prune_schedule"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.grpc_health_port", d.Server.GRPCHealthPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("engine.dispatch_parallelism", d.Engine.DispatchParallelism)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("rules.watch", d.Rules.Watch)
	v.SetDefault("rules.debounce", d.Rules.Debounce)
	v.SetDefault("rules.disable_builtin", d.Rules.DisableBuiltin)
	v.SetDefault("rules.heatwave_temperature", d.Rules.HeatwaveTemperature)
	v.SetDefault("rules.heatwave_humidity", d.Rules.HeatwaveHumidity)
	v.SetDefault("handlers.log", d.Handlers.Log)
	v.SetDefault("handlers.console", d.Handlers.Console)
	v.SetDefault("handlers.kafka.brokers", d.Handlers.Kafka.Brokers)
	v.SetDefault("handlers.kafka.topic", d.Handlers.Kafka.Topic)
	v.SetDefault("handlers.kafka.write_timeout", d.Handlers.Kafka.WriteTimeout)
	v.SetDefault("handlers.webhook.url", d.Handlers.Webhook.URL)
	v.SetDefault("handlers.webhook.timeout", d.Handlers.Webhook.Timeout)
	v.SetDefault("handlers.webhook.key_id", d.Handlers.Webhook.KeyID)
	v.SetDefault("history.db_url", d.History.DBURL)
	v.SetDefault("history.retention", d.History.Retention)
	v.SetDefault("history.prune_schedule", d.History.PruneSchedule)
}

// validateConfig checks port ranges, positive durations and the prune schedule.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.GRPCHealthPort < 0 || cfg.Server.GRPCHealthPort > 65535 {
		return fmt.Errorf("server.grpc_health_port must be between 0 and 65535, got %d", cfg.Server.GRPCHealthPort)
	}
	if cfg.Server.GRPCHealthPort != 0 && cfg.Server.GRPCHealthPort == cfg.Server.Port {
		return fmt.Errorf("server.grpc_health_port must differ from server.port")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Engine.DispatchParallelism < 0 {
		return fmt.Errorf("engine.dispatch_parallelism must not be negative, got %d", cfg.Engine.DispatchParallelism)
	}
	if cfg.Rules.Watch && cfg.Rules.Path == "" {
		return fmt.Errorf("rules.watch requires rules.path")
	}
	if cfg.Rules.Debounce < 0 {
		return fmt.Errorf("rules.debounce must not be negative, got %v", cfg.Rules.Debounce)
	}
	if cfg.Handlers.Webhook.URL != "" && cfg.Handlers.Webhook.Timeout <= 0 {
		return fmt.Errorf("handlers.webhook.timeout must be positive, got %v", cfg.Handlers.Webhook.Timeout)
	}
	if len(cfg.Handlers.Kafka.Brokers) > 0 && cfg.Handlers.Kafka.Topic == "" {
		return fmt.Errorf("handlers.kafka.topic is required when brokers are set")
	}
	if cfg.History.DBURL != "" && cfg.History.PruneSchedule != "" {
		if cfg.History.Retention <= 0 {
			return fmt.Errorf("history.retention must be positive, got %v", cfg.History.Retention)
		}
		if _, err := cron.ParseStandard(cfg.History.PruneSchedule); err != nil {
			return fmt.Errorf("history.prune_schedule: %w", err)
		}
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
// InConfig only inspects the file, so AK_HMAC_SECRET itself is not flagged.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") || v.InConfig("handlers.webhook.secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
	}
	return nil
}
