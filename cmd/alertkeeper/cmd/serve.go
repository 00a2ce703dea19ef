package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/solatis/alertkeeper/internal/core/api"
	"github.com/solatis/alertkeeper/internal/core/auth"
	"github.com/solatis/alertkeeper/internal/core/config"
	"github.com/solatis/alertkeeper/internal/core/retention"
	"github.com/solatis/alertkeeper/internal/core/server"
	"github.com/solatis/alertkeeper/internal/logging"
	"github.com/solatis/alertkeeper/internal/ruleconfig"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alert HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("rules", "", "rule file or directory")
	serveCmd.Flags().Bool("watch", false, "reload rule files on change")
	serveCmd.Flags().String("db-url", "", "alert history database URL (sqlite://path or postgres://...)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.host":    "host",
		"server.port":    "port",
		"rules.path":     "rules",
		"rules.watch":    "watch",
		"history.db_url": "db-url",
	})
	if err != nil {
		return err
	}
	logger := logging.WithComponent("serve")

	var console io.Writer
	if cfg.Handlers.Console {
		console = os.Stdout
	}
	rt, err := newRuntime(cfg, console)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	var verifier *auth.Verifier
	if len(rt.secrets) > 0 {
		verifier = auth.NewVerifier(rt.secrets, logging.WithComponent("auth"))
	} else {
		logger.Warn().Msgf("no HMAC secrets configured (set %s_HMAC_SECRET); API requests are not authenticated", config.EnvPrefix)
	}

	deps := api.Deps{
		Engine:         rt.engine,
		Rules:          rt.rules,
		Dispatcher:     rt.dispatcher,
		Catalog:        rt.catalog,
		Verifier:       verifier,
		Metrics:        rt.metrics,
		Gatherer:       rt.registry,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logging.WithComponent("api"),
	}
	if rt.store != nil {
		deps.History = rt.store
		deps.DB = rt.db
	}
	service, err := api.NewService(deps)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	opts := server.Options{
		HTTPAddr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logging.WithComponent("server"),
	}
	if cfg.Server.GRPCHealthPort > 0 {
		opts.GRPCHealthAddr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCHealthPort))
	}
	srv, err := server.New(service.Router(), opts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rt.store != nil {
		pruner := retention.NewPruner(rt.store, cfg.History.Retention, rt.metrics, logging.WithComponent("retention"))
		scheduler := retention.NewScheduler(pruner, cfg.History.PruneSchedule)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention: %w", err)
		}
		defer scheduler.Stop()
	}

	var wg conc.WaitGroup
	if rt.source != nil && cfg.Rules.Watch {
		watcher := ruleconfig.NewWatcher(rt.source.Path(), cfg.Rules.Debounce, rt.source, logging.WithComponent("watcher"))
		wg.Go(func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("rule watcher stopped")
			}
		})
	}

	logger.Info().
		Str("version", Version).
		Str("http_addr", opts.HTTPAddr).
		Str("grpc_health_addr", opts.GRPCHealthAddr).
		Int("rules", rt.rules.Len()).
		Strs("handlers", rt.dispatcher.Handlers()).
		Msg("starting alertkeeper")

	err = srv.Run(ctx)
	stop()
	wg.Wait()
	if err != nil {
		return err
	}
	logger.Info().Msg("shut down gracefully")
	return nil
}
