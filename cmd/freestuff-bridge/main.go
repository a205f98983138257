// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/mibmo/matrix-free-stuff/appservice"
	"github.com/mibmo/matrix-free-stuff/lib/metrics"
	"github.com/mibmo/matrix-free-stuff/lib/process"
	"github.com/mibmo/matrix-free-stuff/lib/service"
	"github.com/mibmo/matrix-free-stuff/lib/version"
	"github.com/mibmo/matrix-free-stuff/messaging"
	"github.com/mibmo/matrix-free-stuff/registration"
	"github.com/mibmo/matrix-free-stuff/webhook"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// bridgeConfig holds the resolved runtime configuration. Flags
// override environment variables.
type bridgeConfig struct {
	homeserverURL    string
	registrationPath string
	listenAddress    string
	webhookPath      string
	webhookSecret    string
	metricsListen    string
}

func loadConfig(arguments []string) (bridgeConfig, error) {
	config := bridgeConfig{
		homeserverURL:    os.Getenv("HOMESERVER_URL"),
		registrationPath: os.Getenv("APPSERVICE_REGISTRATION"),
		listenAddress:    envOr("WEBHOOK_ADDR", "0.0.0.0:3000"),
		webhookPath:      envOr("WEBHOOK_PATH", "/"),
		webhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		metricsListen:    os.Getenv("FREESTUFF_METRICS_LISTEN"),
	}

	flagSet := pflag.NewFlagSet("freestuff-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&config.homeserverURL, "homeserver-url", config.homeserverURL, "base URL of the Matrix homeserver")
	flagSet.StringVar(&config.registrationPath, "registration", config.registrationPath, "path to the appservice registration YAML")
	flagSet.StringVar(&config.listenAddress, "listen", config.listenAddress, "address to listen on for webhooks and appservice traffic")
	flagSet.StringVar(&config.webhookPath, "webhook-path", config.webhookPath, "path the FreeStuff API delivers webhooks to")
	flagSet.StringVar(&config.webhookSecret, "webhook-secret", config.webhookSecret, "shared secret expected in webhook events")
	flagSet.StringVar(&config.metricsListen, "metrics-listen", config.metricsListen, "address to serve Prometheus metrics on (empty disables)")
	if err := flagSet.Parse(arguments); err != nil {
		return bridgeConfig{}, err
	}

	if config.homeserverURL == "" {
		return bridgeConfig{}, fmt.Errorf("no homeserver specified; set HOMESERVER_URL or --homeserver-url")
	}
	if config.registrationPath == "" {
		return bridgeConfig{}, fmt.Errorf("no path to registration specified; set APPSERVICE_REGISTRATION or --registration")
	}
	return config, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func run() error {
	// Handle --version before flag parsing so it works without the
	// otherwise-required configuration.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("freestuff-bridge")
		return nil
	}

	config, err := loadConfig(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	reg, err := registration.LoadOrCreate(config.registrationPath, logger)
	if err != nil {
		return err
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: config.homeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	session := client.Session(reg.ASToken)

	// Resolve the bridge's own user ID up front. This both pins the
	// identity the invite matcher looks for and verifies the
	// homeserver accepts our as_token before we start serving.
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("verifying appservice credentials: %w", err)
	}
	logger.Info("authenticated with homeserver",
		"user_id", userID,
		"homeserver", config.homeserverURL,
	)

	registry := prometheus.NewRegistry()
	bridgeMetrics := metrics.New(registry)

	appserviceHandler := appservice.NewHandler(appservice.HandlerConfig{
		Registration: reg,
		UserID:       userID,
		Joiner:       session,
		Metrics:      bridgeMetrics,
		Logger:       logger,
	})

	announcer := NewAnnouncer(session, logger)
	webhookHandler := webhook.NewHandler(webhook.Config{
		Secret:  config.webhookSecret,
		Logger:  logger,
		Metrics: bridgeMetrics,
		OnFreeGames: func(games []webhook.GameID) error {
			return announcer.AnnounceFreeGames(ctx, games)
		},
	})

	// The appservice handler routes its own /_matrix paths
	// internally; the top-level mux only splits appservice traffic
	// from webhook traffic.
	mux := http.NewServeMux()
	mux.Handle("/_matrix/app/v1/", appserviceHandler)
	mux.Handle(config.webhookPath, webhookHandler)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: config.listenAddress,
		Handler: mux,
		Logger:  logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("webhook listener ready", "address", httpServer.Addr().String())
	case err := <-httpDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	var metricsDone chan error
	if config.metricsListen != "" {
		metricsServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: config.metricsListen,
			Handler: metricsHandler(registry),
			Logger:  logger,
		})
		metricsDone = make(chan error, 1)
		go func() {
			metricsDone <- metricsServer.Serve(ctx)
		}()
		logger.Info("metrics listener starting", "address", config.metricsListen)
	}

	logger.Info("freestuff bridge running",
		"appservice_id", reg.ID,
		"webhook_path", config.webhookPath,
	)

	select {
	case err := <-httpDone:
		return err
	case err := <-metricsDone:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return fmt.Errorf("metrics server exited early")
	case <-ctx.Done():
	}

	// Let the servers drain their shutdown.
	if err := <-httpDone; err != nil {
		return err
	}
	if metricsDone != nil {
		if err := <-metricsDone; err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
	}
	return nil
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}
