package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hookcast/internal/metrics"
	"hookcast/internal/relay"
)

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the relay server (HTTP ingress forwarding to the endpoint)",
		Long:  "Accepts POST requests and relays them to the configured webhook endpoint. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Endpoint.URL == "" {
				return fmt.Errorf("endpoint.url is not configured")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, store, dispatcher, err := buildStack(ctx, cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			defer dispatcher.Stop()

			var metricsHandler http.Handler
			if cfg.Metrics.Enabled {
				metricsHandler = metrics.Collector.Handler()
			}

			server := relay.New(relay.Config{
				Host:    cfg.Relay.Host,
				Port:    cfg.Relay.Port,
				Path:    cfg.Relay.Path,
				Secret:  cfg.Relay.Secret,
				Sender:  client,
				Metrics: metricsHandler,
				Logger:  logger,
			})
			return server.Start(ctx)
		},
	}
}
