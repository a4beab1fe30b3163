package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/pfm-alerts/internal/config"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/hooks"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pfa",
	Short: "PFM Alerts - alert rule evaluation and notification dispatch",
	Long: `PFM Alerts evaluates user-defined alert rules against accounts, goals, budgets,
bills and transactions, and records a notification whenever a rule matches.
It can run batch evaluations from the CLI, serve an HTTP trigger API and consume
transaction events from Kafka.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteContext runs the CLI with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.pfa/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return storage.NewSQLite(cfg.Storage.Path)
}

// initHooks creates notification hooks from config.
func initHooks(cfg *config.Config) []hooks.Hook {
	var hs []hooks.Hook

	if cfg.Hooks.Slack.Enabled && cfg.Hooks.Slack.WebhookURL != "" {
		hs = append(hs, hooks.NewSlackHook(
			cfg.Hooks.Slack.WebhookURL,
			cfg.Hooks.Slack.Channel,
		))
	}

	if cfg.Hooks.Webhook.Enabled && cfg.Hooks.Webhook.URL != "" {
		hs = append(hs, hooks.NewWebhookHook(
			cfg.Hooks.Webhook.URL,
			cfg.Hooks.Webhook.Secret,
		))
	}

	return hs
}

// initDispatcher creates a fully wired dispatcher.
func initDispatcher(cfg *config.Config) (*engine.Dispatcher, storage.Storage, error) {
	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{engine.WithAlertTimeout(cfg.Evaluation.AlertTimeout)}
	if hs := initHooks(cfg); len(hs) > 0 {
		opts = append(opts, engine.WithPublisher(hooks.NewPublisher(store, hs, logger)))
	}

	return engine.NewDispatcher(store, evaluator.NewRegistry(), logger, opts...), store, nil
}
