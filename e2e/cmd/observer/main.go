package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sentra-safety/sentra-platform/e2e/internal/observer"
)

// Standalone capture tool for scenario development: watches the safety/
// namespace and snapshots the traffic to JSON at a fixed interval, plus a
// final snapshot on shutdown.
func main() {
	var (
		mqttBroker = pflag.String("mqtt-broker", "mqtt://mosquitto:1883", "MQTT broker URL")
		outputDir  = pflag.String("output-dir", "./test-output/captures", "Directory for capture snapshots")
		interval   = pflag.Duration("snapshot-interval", 30*time.Second, "Time between snapshots")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "", log.Ltime)

	obs := observer.NewObserver(*mqttBroker, logger)
	if err := obs.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start observer: %v\n", err)
		os.Exit(1)
	}
	defer obs.Stop()

	logger.Printf("Observer running, snapshotting every %s. Ctrl+C to stop.", *interval)
	watch(obs, *outputDir, *interval, logger)
}

func watch(obs *observer.Observer, outputDir string, interval time.Duration, logger *log.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ticker.C:
			n++
			name := fmt.Sprintf("snapshot-%s-%03d.json", time.Now().Format("20060102-150405"), n)
			if err := obs.SaveCapture(filepath.Join(outputDir, name)); err != nil {
				logger.Printf("Warning: failed to save snapshot: %v", err)
				continue
			}
			logger.Printf("Snapshot %s (%d messages)", name, obs.Count())
		case <-sigChan:
			logger.Printf("Shutting down")
			name := fmt.Sprintf("final-%s.json", time.Now().Format("20060102-150405"))
			if err := obs.SaveCapture(filepath.Join(outputDir, name)); err != nil {
				logger.Printf("Warning: failed to save final capture: %v", err)
			}
			return
		}
	}
}
