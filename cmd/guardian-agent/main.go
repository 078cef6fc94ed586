package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentra-safety/sentra-platform/internal/alert"
	"github.com/sentra-safety/sentra-platform/internal/guardian"
	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/health"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/postgres"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

func main() {
	// Standard bootstrap (consistent with other agents)
	cfg := config.NewConfig()
	cfg.ServiceName = "guardian-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Guardian Agent",
		"mqtt", cfg.MQTTAddress(),
		"redis", cfg.RedisAddress(),
		"postgres", fmt.Sprintf("%s:%d/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize clients
	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)

	pgClient := postgres.NewClient(cfg, logger)
	if err := pgClient.Connect(ctx); err != nil {
		logger.Error("Failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	// Load the escalation policy if one is configured
	var resolver alert.ContactResolver
	if cfg.EscalationPolicyPath != "" {
		policy, err := guardian.LoadPolicy(cfg.EscalationPolicyPath)
		if err != nil {
			logger.Error("Failed to load escalation policy", "path", cfg.EscalationPolicyPath, "error", err)
			os.Exit(1)
		}
		resolver = policy
		logger.Info("Escalation policy loaded", "contacts", len(policy.Contacts))
	}

	// Alert store is the dispatch gateway implementation
	store := alert.NewStore(pgClient, mqttClient, resolver, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure alert schema", "error", err)
		os.Exit(1)
	}

	agent := guardian.NewAgent(mqttClient, redisClient, store, cfg, logger)

	// Health endpoint
	checker := health.NewChecker(mqttClient, redisClient, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HealthPort)
		http.HandleFunc("/health", checker.HandlerFunc())
		http.HandleFunc("/ready", checker.ReadyFunc())
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error("Health endpoint failed", "error", err)
		}
	}()

	// Start agent
	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	// Wait for shutdown
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	cancel()
	agent.Stop()
	if err := pgClient.Disconnect(); err != nil {
		logger.Error("Error disconnecting from postgres", "error", err)
	}
	logger.Info("Guardian agent stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
