package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentra-safety/sentra-platform/internal/monitor"
	"github.com/sentra-safety/sentra-platform/pkg/config"
	"github.com/sentra-safety/sentra-platform/pkg/health"
	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

func main() {
	// Standard bootstrap (consistent with other agents)
	cfg := config.NewConfig()
	cfg.ServiceName = "monitor-agent"
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

	logger.Info("Starting Monitor Agent",
		"mqtt", cfg.MQTTAddress(),
		"redis", cfg.RedisAddress())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize clients
	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)

	agent := monitor.NewAgent(mqttClient, redisClient, cfg, logger)

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
	logger.Info("Monitor agent stopped")
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
