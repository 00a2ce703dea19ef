package cmd

import (
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/solatis/alertkeeper/internal/core/config"
	"github.com/solatis/alertkeeper/internal/core/db"
	"github.com/solatis/alertkeeper/internal/dispatch"
	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/handlers"
	"github.com/solatis/alertkeeper/internal/logging"
	"github.com/solatis/alertkeeper/internal/metrics"
	"github.com/solatis/alertkeeper/internal/render"
	"github.com/solatis/alertkeeper/internal/ruleconfig"
	"github.com/solatis/alertkeeper/internal/rules"
)

// runtime is the wired engine shared by serve, process and demo.
type runtime struct {
	cfg        *config.Config
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	rules      *rules.RuleSet
	catalog    *render.Catalog
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine
	source     *ruleconfig.Source // nil without rules.path
	db         *sqlx.DB           // nil without history.db_url
	store      *db.AlertStore
	secrets    map[string][]byte
	closers    []io.Closer
}

// newRuntime builds the rule set, handlers and engine from cfg. A non-nil
// console writer forces the console handler on and writes to it.
func newRuntime(cfg *config.Config, console io.Writer) (_ *runtime, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt := &runtime{
		cfg:      cfg,
		registry: reg,
		metrics:  metrics.New(reg),
		rules:    rules.NewRuleSet(),
		catalog:  render.NewCatalog(render.WithHeatwaveThreshold(cfg.Rules.HeatwaveTemperature)),
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if rt.secrets, err = config.HMACSecrets(); err != nil {
		return nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	if err := rt.loadRules(); err != nil {
		return nil, err
	}
	if err := rt.openHistory(); err != nil {
		return nil, err
	}

	rt.dispatcher = dispatch.New(
		dispatch.WithParallelism(cfg.Engine.DispatchParallelism),
		dispatch.WithLogger(logging.WithComponent("dispatch")),
	)
	if err := rt.registerHandlers(console); err != nil {
		return nil, err
	}

	rt.engine = engine.New(rt.rules, rt.dispatcher,
		engine.WithLogger(logging.WithComponent("engine")),
		engine.WithMetrics(rt.metrics),
	)
	return rt, nil
}

func (rt *runtime) loadRules() error {
	if !rt.cfg.Rules.DisableBuiltin {
		heat := rules.DefaultHeatwaveConfig()
		heat.TemperatureAbove = rt.cfg.Rules.HeatwaveTemperature
		heat.HumidityAbove = rt.cfg.Rules.HeatwaveHumidity
		for _, r := range []rules.Rule{rules.NewStormRule(rules.DefaultPriority), rules.NewHeatwaveRule(heat)} {
			if err := rt.rules.AddFrom("builtin", r); err != nil {
				return err
			}
		}
	}

	if rt.cfg.Rules.Path != "" {
		rt.source = ruleconfig.NewSource(rt.cfg.Rules.Path, rt.rules,
			ruleconfig.WithLogger(logging.WithComponent("rules")),
			ruleconfig.WithMetrics(rt.metrics),
			ruleconfig.WithCatalog(rt.catalog),
		)
		if _, err := rt.source.Reload(); err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
	}
	rt.metrics.RulesLoaded.Set(float64(rt.rules.Len()))
	return nil
}

func (rt *runtime) openHistory() error {
	if rt.cfg.History.DBURL == "" {
		return nil
	}
	database, err := db.Open(rt.cfg.History.DBURL)
	if err != nil {
		return err
	}
	rt.db = database
	rt.closers = append(rt.closers, database)

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'alertkeeper migrate' first", s.ID)
		}
	}

	rt.store, err = db.NewAlertStore(database)
	return err
}

func (rt *runtime) registerHandlers(console io.Writer) error {
	h := rt.cfg.Handlers
	var list []dispatch.Handler

	if h.Log {
		list = append(list, handlers.NewLogHandler(logging.WithComponent("alerts")))
	}
	if console != nil {
		list = append(list, handlers.NewConsoleHandler(console, rt.catalog))
	}
	if len(h.Kafka.Brokers) > 0 {
		kh, err := handlers.NewKafkaHandler(handlers.KafkaOptions{
			Brokers:      h.Kafka.Brokers,
			Topic:        h.Kafka.Topic,
			WriteTimeout: h.Kafka.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create kafka handler: %w", err)
		}
		rt.closers = append(rt.closers, kh)
		list = append(list, kh)
	}
	if h.Webhook.URL != "" {
		opts := handlers.WebhookOptions{URL: h.Webhook.URL, Timeout: h.Webhook.Timeout, KeyID: h.Webhook.KeyID}
		if h.Webhook.KeyID != "" {
			secret, ok := rt.secrets[h.Webhook.KeyID]
			if !ok {
				return fmt.Errorf("webhook key_id %s has no matching %s_HMAC_SECRET", h.Webhook.KeyID, config.EnvPrefix)
			}
			opts.Secret = secret
		}
		wh, err := handlers.NewWebhookHandler(opts)
		if err != nil {
			return fmt.Errorf("failed to create webhook handler: %w", err)
		}
		list = append(list, wh)
	}
	if rt.store != nil {
		list = append(list, handlers.NewHistoryHandler(rt.store))
	}

	for _, handler := range list {
		if err := rt.dispatcher.Register(handler); err != nil {
			return err
		}
	}
	return nil
}

// Close releases handler and database resources.
func (rt *runtime) Close() error {
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i].Close())
	}
	rt.closers = nil
	return err
}
