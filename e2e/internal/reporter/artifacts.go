package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentra-safety/sentra-platform/e2e/internal/scenario"
)

// SaveTimeline writes the rendered timeline next to the other run artifacts
func SaveTimeline(content string, filename string) error {
	return writeArtifact(filename, []byte(content))
}

// SaveSummary writes the machine-readable result for CI to pick up
func SaveSummary(result *scenario.TestResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return writeArtifact(filename, data)
}

func writeArtifact(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
