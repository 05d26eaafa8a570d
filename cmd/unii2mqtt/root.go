package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unii2mqtt/unii2mqtt/internal/cache"
	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "unii2mqtt",
	Short: "MQTT bridge for UNii intrusion alarm panels",
	Long: `unii2mqtt connects to a UNii intrusion alarm panel over its encrypted
TCP protocol and bridges it to MQTT.

The bridge publishes section and input state on retained topics and
accepts arm, disarm and bypass commands. One-shot subcommands run the
same operations from the command line without a broker.

The panel only allows a single API session; stop other integrations
before running the bridge.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yml", "Path to configuration file")
}

// loadConfig reads the configuration and builds the logger for it.
func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.NewLogger(cfg.Log.Level, cfg.Log.File), nil
}

// seedArrangement primes the panel's input view from the arrangement
// cache when caching is enabled.
func seedArrangement(cfg *config.Config, p *panel.Panel, logger *log.Logger) {
	if !cfg.Cache {
		return
	}
	data, err := cache.Load(cfg.UNii.Host)
	if err != nil {
		logger.Warning("Failed to load arrangement cache: %v", err)
		return
	}
	if data != nil {
		p.SetCachedArrangement(data.Inputs)
		logger.Info("Loaded %d inputs from cache", len(data.Inputs))
	}
}

// discoverArrangement runs the arrangement scan when the input view is
// still empty, saving the result for next time.
func discoverArrangement(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
	if len(p.Arrangement()) > 0 {
		return nil
	}
	if err := p.LoadArrangement(ctx); err != nil {
		return err
	}
	if cfg.Cache {
		if err := cache.Save(cfg.UNii.Host, p.Arrangement()); err != nil {
			logger.Warning("Failed to save arrangement cache: %v", err)
		} else {
			logger.Debug("Saved arrangement to cache")
		}
	}
	return nil
}

// withConnectedPanel runs a one-shot operation against the panel and
// disconnects afterwards, so the panel's single session slot is freed
// for the next caller.
func withConnectedPanel(fn func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := panel.NewPanel(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := p.Connect(ctx); err != nil {
		return err
	}
	defer p.Disconnect()

	seedArrangement(cfg, p, logger)
	return fn(ctx, cfg, p, logger)
}
