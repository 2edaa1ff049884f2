package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/config"
	"github.com/cartloop/cartloop/internal/orchestrator"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/store"
	"github.com/cartloop/cartloop/internal/validator"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cartloop",
	Short: "Conversational shopping cart orchestration",
	Long: `cartloop turns a free-text shopping request into a priced cart by
comparing variants across vendors, then iterates on the cart through
conversational feedback until you confirm the order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with signal-aware cancellation.
func Execute(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads configuration and applies the --verbose override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// buildEngine wires the configured gateways, collector, validator, and store
// into an engine. The caller owns closing the returned store.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*orchestrator.Engine, *store.Store, error) {
	var gateway catalog.Gateway
	switch cfg.Catalog.Mode {
	case config.CatalogModeHTTP:
		gateway = catalog.NewHTTPGateway(cfg.Catalog.BaseURL, catalog.WithGatewayLogger(logger))
	default:
		var err error
		if cfg.Catalog.SeedFile != "" {
			gateway, err = catalog.NewSimGatewayFromFile(cfg.Catalog.SeedFile)
		} else {
			gateway, err = catalog.NewSimGateway()
		}
		if err != nil {
			return nil, nil, err
		}
	}

	reasoner, err := reasoning.NewOllamaGateway(
		reasoning.WithHost(cfg.Reasoning.Host),
		reasoning.WithModel(cfg.Reasoning.Model),
		reasoning.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	checkpoints, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	collOpts := []collector.Option{
		collector.WithVendors(cfg.Catalog.Vendors),
		collector.WithPolicy(cfg.Retry.Policy()),
		collector.WithLogger(logger),
	}
	engineOpts := []orchestrator.Option{
		orchestrator.WithValidator(validator.New(
			validator.WithConfidenceFloor(cfg.Validator.ConfidenceFloor),
			validator.WithLogger(logger),
		)),
		orchestrator.WithStore(checkpoints),
		orchestrator.WithPolicy(cfg.Retry.Policy()),
		orchestrator.WithMaxReReasoning(cfg.Reasoning.MaxReReasoning),
		orchestrator.WithLogger(logger),
	}
	if cfg.Tracing.Enabled {
		collOpts = append(collOpts, collector.WithTracer(otel.Tracer("cartloop")))
		engineOpts = append(engineOpts, orchestrator.WithTracer(otel.Tracer("cartloop")))
	}

	coll := collector.New(gateway, collOpts...)
	engine := orchestrator.New(reasoner, coll, engineOpts...)

	return engine, checkpoints, nil
}
