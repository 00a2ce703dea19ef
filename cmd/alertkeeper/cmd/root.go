package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solatis/alertkeeper/internal/core/config"
	"github.com/solatis/alertkeeper/internal/logging"
)

// Version is the alertkeeper release.
const Version = "0.1.0"

var (
	configFile string
	logLevel   string
	logFormat  string

	// v collects flag bindings; config.Load layers env, file and defaults below them.
	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "alertkeeper",
	Short:   "alertkeeper weather alert rule engine",
	Long:    `alertkeeper classifies weather records against an ordered rule set and dispatches the resulting alert to every registered handler.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(logLevel, logFormat)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	if err := bindFlags(cmd, keys); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// bindFlags maps command flags onto config keys. Commands bind when they
// run since viper keeps a single flag per key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}
