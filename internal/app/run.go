package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/executor"
	"github.com/vk/runbookgo/internal/fsutil"
	"github.com/vk/runbookgo/internal/hcl"
	"github.com/vk/runbookgo/internal/manifest"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/snapshot"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/validation"
	"github.com/vk/runbookgo/internal/values"
)

// Run drives one invocation end to end: validate or load, resolve the
// graph, execute, report outputs, and optionally persist a snapshot.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.CheckOnly {
		return a.check(ctx)
	}

	rb, err := a.load(ctx)
	if err != nil {
		return err
	}

	channel := supervisor.NewChannel()
	defer channel.Close()
	sup := supervisor.Context{Supervised: !a.config.Unsupervised}
	if sup.Supervised {
		go a.promptLoop(ctx, channel)
	}

	sched := executor.NewScheduler(rb, a.registry, channel, sup, nil)
	result, err := sched.Execute(ctx)
	if err != nil {
		return err
	}

	a.reportOutputs(rb, result)
	for _, diag := range result.Diagnostics {
		a.logger.Error("Run diagnostic.", "error", diag.Error())
	}

	if a.config.SnapshotPath != "" {
		snap := snapshot.Capture(rb, result.Results.Snapshot())
		if err := snap.Save(a.config.SnapshotPath); err != nil {
			return err
		}
		a.logger.Info("Snapshot written.", "path", a.config.SnapshotPath, "fingerprint", snap.Fingerprint)
	}

	if result.Failed() {
		return fmt.Errorf("runbook %q finished with failures", rb.Name)
	}
	a.logger.Info("Runbook completed.", "name", rb.Name)
	return nil
}

// check runs the static validator over the sources without executing.
func (a *App) check(ctx context.Context) error {
	files, err := fsutil.FindFilesByExtension(a.config.RunbookPath, hcl.SourceExtension)
	if err != nil {
		return err
	}
	sources := make(map[string][]byte, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		sources[file] = data
	}

	validator := validation.NewValidator(a.registry, validation.ModeFull)
	result := validator.Validate(sources)
	for _, w := range result.Warnings {
		fmt.Fprintln(a.outW, "warning:", w.Error())
	}
	for _, e := range result.Errors {
		fmt.Fprintln(a.outW, "error:", e.Error())
	}
	if !result.Valid() {
		return fmt.Errorf("validation found %d error(s)", len(result.Errors))
	}
	a.logger.Info("Validation passed.", "files", len(files))
	return nil
}

// load parses the sources, applies manifest and CLI inputs, and resolves
// the dependency graph.
func (a *App) load(ctx context.Context) (*runbook.Runbook, error) {
	name := a.config.RunbookName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(a.config.RunbookPath), hcl.SourceExtension)
	}

	rb, diags := a.loader.Load(ctx, name, a.config.RunbookPath)
	if len(diags) > 0 {
		return nil, fmt.Errorf("loading runbook: %s", diags[0].Error())
	}

	if a.config.ManifestPath != "" {
		m, err := manifest.Load(a.config.ManifestPath)
		if err != nil {
			return nil, err
		}
		if a.config.Environment != "" {
			env, keys, err := m.Environment(a.config.Environment)
			if err != nil {
				return nil, err
			}
			for _, key := range keys {
				rb.AddTopLevelInput(key, coerceInputValue(env[key]))
			}
			a.logger.Debug("Environment applied.", "environment", a.config.Environment, "inputs", len(keys))
		}
	}

	// CLI inputs land last so they override the environment.
	for _, pair := range a.config.Inputs {
		key, raw := ParseInput(pair)
		rb.AddTopLevelInput(key, coerceInputValue(raw))
	}

	if diags := rb.ResolveGraph(ctx); len(diags) > 0 {
		return nil, fmt.Errorf("resolving graph: %s", diags[0].Error())
	}
	for _, diag := range rb.Diagnostics {
		a.logger.Warn("Load diagnostic.", "warning", diag.Error())
	}
	return rb, nil
}

// reportOutputs prints the values of output constructs in execution order.
func (a *App) reportOutputs(rb *runbook.Runbook, result *executor.ExecutionResult) {
	for _, constructDid := range rb.Graph.ExecutionOrder {
		c, ok := rb.Construct(constructDid)
		if !ok || c.Kind != runbook.KindOutput {
			continue
		}
		store, found := result.Results.Get(c.Did)
		if !found {
			continue
		}
		if val, hasValue := store.Get("value"); hasValue {
			fmt.Fprintf(a.outW, "%s = %s\n", c.Name, val.String())
		}
	}
}

// promptLoop answers action items from the terminal. Each request prints
// its title and payload and waits for a y/n answer.
func (a *App) promptLoop(ctx context.Context, channel *supervisor.Channel) {
	reader := bufio.NewReader(os.Stdin)
	for req := range channel.Requests() {
		fmt.Fprintf(a.outW, "\n[%s] %s\n", req.Type.String(), req.Title)
		if req.Description != "" {
			fmt.Fprintln(a.outW, req.Description)
		}
		if !req.Payload.IsNull() {
			fmt.Fprintln(a.outW, "payload:", req.Payload.String())
		}
		fmt.Fprint(a.outW, "approve? [y/N] ")

		line, err := reader.ReadString('\n')
		accepted := err == nil && strings.EqualFold(strings.TrimSpace(line), "y")
		_ = channel.Respond(&supervisor.ActionItemResponse{
			ConstructDid: req.ConstructDid,
			Key:          req.Key,
			Accepted:     accepted,
			Payload:      req.Payload,
		})
	}
}

// coerceInputValue maps a raw CLI/manifest string onto the closest engine
// value: integer, float, bool, then string.
func coerceInputValue(raw string) values.Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return values.Integer(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return values.Float(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return values.Bool(b)
	}
	return values.String(raw)
}
