package app

import (
	"fmt"
	"strings"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// RunbookPath is a .tx file or a directory of .tx files.
	RunbookPath string
	// RunbookName labels the run; defaults to the path base.
	RunbookName string
	// ManifestPath optionally points at a workspace manifest.
	ManifestPath string
	// Environment selects a manifest environment whose values become
	// top-level inputs.
	Environment string
	// Inputs are CLI-supplied key=value pairs, highest precedence.
	Inputs []string
	// CheckOnly validates the sources without executing anything.
	CheckOnly bool
	// Unsupervised answers auto-approvable action items without prompting
	// and fails everything that demands a human.
	Unsupervised bool
	// SnapshotPath, when set, persists the run outcome for embedding.
	SnapshotPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RunbookPath == "" {
		return nil, fmt.Errorf("a runbook path is required")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	for _, pair := range cfg.Inputs {
		if !strings.Contains(pair, "=") {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
	}
	if cfg.Environment != "" && cfg.ManifestPath == "" {
		return nil, fmt.Errorf("--env requires a manifest")
	}
	return &cfg, nil
}

// ParseInput splits one key=value pair.
func ParseInput(pair string) (string, string) {
	parts := strings.SplitN(pair, "=", 2)
	if len(parts) != 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
