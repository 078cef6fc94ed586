package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sentra-safety/sentra-platform/e2e/internal/executor"
	"github.com/sentra-safety/sentra-platform/e2e/internal/reporter"
	"github.com/sentra-safety/sentra-platform/e2e/internal/scenario"
)

func main() {
	var (
		scenarioPath = pflag.String("scenario", "", "Path to YAML scenario file (required)")
		mqttBroker   = pflag.String("mqtt-broker", "mqtt://mosquitto:1883", "MQTT broker URL")
		redisHost    = pflag.String("redis-host", "redis:6379", "Redis host")
		postgresDSN  = pflag.String("postgres-dsn", "", "Postgres connection string (optional)")
		outputDir    = pflag.String("output-dir", "./test-output", "Directory for run artifacts")
		verbose      = pflag.Bool("verbose", false, "Log captured traffic to stdout")
	)
	pflag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --scenario is required")
		pflag.Usage()
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "", log.Ltime)
	if !*verbose {
		logger.SetOutput(os.Stderr)
	}

	scen, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}
	logger.Printf("Running scenario %q", scen.Name)

	runner := executor.NewRunner(*mqttBroker, *redisHost, *postgresDSN, logger)
	result, timelineEvents, err := runner.Run(context.Background(), scen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scenario execution failed: %v\n", err)
		os.Exit(1)
	}

	timeline := reporter.GenerateTimeline(result, timelineEvents)
	fmt.Println(timeline)

	saveArtifacts(runner, result, timeline, *outputDir, *scenarioPath, logger)

	if !result.Passed {
		os.Exit(1)
	}
}

// saveArtifacts writes the timeline, capture and summary for the run. A
// failed write is reported but never fails the run itself.
func saveArtifacts(runner *executor.Runner, result *scenario.TestResult, timeline, outputDir, scenarioPath string, logger *log.Logger) {
	name := strings.TrimSuffix(filepath.Base(scenarioPath), ".yaml")

	if err := reporter.SaveTimeline(timeline, filepath.Join(outputDir, "timelines", name+".txt")); err != nil {
		logger.Printf("Warning: failed to save timeline: %v", err)
	}
	if err := runner.SaveCapture(filepath.Join(outputDir, "captures", name+".json")); err != nil {
		logger.Printf("Warning: failed to save capture: %v", err)
	}
	if err := reporter.SaveSummary(result, filepath.Join(outputDir, "summaries", name+".json")); err != nil {
		logger.Printf("Warning: failed to save summary: %v", err)
	}
}
