// Package testutil provides shared fixtures for engine tests: an inline
// source harness, a registry with recording test addons, and execution
// helpers.
package testutil

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/addons/std"
	"github.com/vk/runbookgo/internal/executor"
	"github.com/vk/runbookgo/internal/hcl"
	"github.com/vk/runbookgo/internal/registry"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/supervisor"
)

// NewTestRegistry returns a registry with the std addon plus any extras.
func NewTestRegistry(extras ...registry.Addon) *registry.Registry {
	return registry.New(append([]registry.Addon{std.New()}, extras...)...)
}

// LoadRunbook parses inline sources keyed by location into a resolved
// runbook. Locations load in sorted order so construct indexing is
// deterministic.
func LoadRunbook(t *testing.T, reg *registry.Registry, sources map[string]string) *runbook.Runbook {
	t.Helper()
	ctx := context.Background()
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)

	locations := make([]string, 0, len(sources))
	for loc := range sources {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	for _, loc := range locations {
		diags := loader.LoadSource(ctx, rb, loc, []byte(sources[loc]))
		require.Empty(t, diags, "loading %s", loc)
	}
	diags := rb.ResolveGraph(ctx)
	require.Empty(t, diags, "resolving graph")
	return rb
}

// LoadRunbookExpectingGraphError parses inline sources and returns the
// graph resolution diagnostics, which the caller asserts on.
func LoadRunbookExpectingGraphError(t *testing.T, reg *registry.Registry, sources map[string]string) []string {
	t.Helper()
	ctx := context.Background()
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)

	locations := make([]string, 0, len(sources))
	for loc := range sources {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	for _, loc := range locations {
		diags := loader.LoadSource(ctx, rb, loc, []byte(sources[loc]))
		require.Empty(t, diags, "loading %s", loc)
	}
	diags := rb.ResolveGraph(ctx)
	require.NotEmpty(t, diags, "expected graph resolution to fail")
	messages := make([]string, 0, len(diags))
	for _, d := range diags {
		messages = append(messages, d.Message)
	}
	return messages
}

// ExecuteRunbook runs a resolved runbook unsupervised and returns the
// execution result.
func ExecuteRunbook(t *testing.T, reg *registry.Registry, rb *runbook.Runbook) *executor.ExecutionResult {
	t.Helper()
	channel := supervisor.NewChannel()
	defer channel.Close()

	sched := executor.NewScheduler(rb, reg, channel, supervisor.Context{Supervised: false}, nil)
	result, err := sched.Execute(context.Background())
	require.NoError(t, err)
	return result
}

// ConstructByName finds a construct by kind and name.
func ConstructByName(t *testing.T, rb *runbook.Runbook, kind runbook.Kind, name string) *runbook.Construct {
	t.Helper()
	for _, constructDid := range rb.ConstructOrder {
		c := rb.Constructs[constructDid]
		if c.Kind == kind && c.Name == name {
			return c
		}
	}
	t.Fatalf("construct %s %q not found", kind, name)
	return nil
}
