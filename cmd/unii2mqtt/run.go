package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/metrics"
	"github.com/unii2mqtt/unii2mqtt/internal/mqtt"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge",
	Long: `Connects to the panel and the MQTT broker and bridges panel state and
operator commands until interrupted.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	m := metrics.New()

	p, err := panel.NewPanel(cfg, logger, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Connect(ctx); err != nil {
		return err
	}
	defer p.Disconnect()

	seedArrangement(cfg, p, logger)
	if err := discoverArrangement(ctx, cfg, p, logger); err != nil {
		return err
	}

	if err := p.Refresh(ctx); err != nil {
		logger.Warning("Initial status poll failed: %v", err)
	}

	bridge := mqtt.NewMQTT(&cfg.MQTT, p, logger)
	p.OnSectionChange = bridge.PublishSection
	p.OnEvent = bridge.PublishEvent

	if err := bridge.Connect(); err != nil {
		return err
	}
	defer bridge.Close()

	if cfg.Metrics.Listen != "" {
		srv := startOpsServer(cfg.Metrics.Listen, m, p, logger)
		defer srv.Shutdown(context.Background())
	}

	logger.Info("Bridge running")
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Shutting down...")
	return nil
}

// startOpsServer exposes liveness and metrics over HTTP.
func startOpsServer(listen string, m *metrics.Metrics, p *panel.Panel, logger *log.Logger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !p.Connected() {
			http.Error(w, "panel disconnected", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: listen, Handler: r}
	go func() {
		logger.Info("Ops endpoint listening on %s", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops endpoint failed: %v", err)
		}
	}()
	return srv
}
