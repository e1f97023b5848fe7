// Package app wires the engine together: registry, loader, validator,
// scheduler, and the supervision surface, configured from CLI flags.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/runbookgo/addons/std"
	"github.com/vk/runbookgo/internal/hcl"
	"github.com/vk/runbookgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loader   *hcl.Loader
}

// NewApp constructs the application. The std addon is always registered;
// callers append chain-specific addons on top.
func NewApp(outW io.Writer, cfg *Config, addons ...registry.Addon) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)

	all := append([]registry.Addon{std.New()}, addons...)
	reg := registry.New(all...)
	logger.Debug("Addons registered.", "namespaces", reg.Namespaces())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		loader:   hcl.NewLoader(reg),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
