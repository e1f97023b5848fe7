package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/signers"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// RecorderAddon is a test addon whose "task" action records execution order
// and fails on demand. Blocks identify themselves through an `id` input.
type RecorderAddon struct {
	mu         sync.Mutex
	executions []string

	// FailOn lists ids whose execution returns an error diagnostic.
	FailOn map[string]bool
	// Delay is applied before each execution completes, to widen races.
	Delay time.Duration
}

// NewRecorderAddon returns an empty recorder.
func NewRecorderAddon() *RecorderAddon {
	return &RecorderAddon{FailOn: make(map[string]bool)}
}

// Executions returns the recorded ids in completion order.
func (a *RecorderAddon) Executions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.executions))
	copy(out, a.executions)
	return out
}

// Namespace returns "test".
func (a *RecorderAddon) Namespace() string { return "test" }

// Functions returns no functions.
func (a *RecorderAddon) Functions() []*functions.FunctionSpecification { return nil }

// Signers returns no signers.
func (a *RecorderAddon) Signers() []*signers.SignerSpecification { return nil }

// Actions returns the recording "task" action.
func (a *RecorderAddon) Actions() []*commands.CommandSpecification {
	return []*commands.CommandSpecification{{
		Name:                     "Test task",
		Matcher:                  "task",
		AcceptsArbitraryInputs:   true,
		CreateOutputForEachInput: true,
		RunExecution: func(ctx context.Context, constructDid did.ConstructDid, spec *commands.CommandSpecification, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*commands.CommandExecutionResult, *diagnostics.Diagnostic) {
			id, _ := inputs.GetString("id")
			if a.Delay > 0 {
				select {
				case <-time.After(a.Delay):
				case <-ctx.Done():
					return nil, diagnostics.Errorf("task %q canceled", id)
				}
			}

			a.mu.Lock()
			shouldFail := a.FailOn[id]
			if !shouldFail {
				a.executions = append(a.executions, id)
			}
			a.mu.Unlock()

			if shouldFail {
				return nil, diagnostics.Errorf("task %q failed on request", id)
			}

			result := commands.NewCommandExecutionResult(id)
			for _, key := range inputs.Keys() {
				val, _ := inputs.Get(key)
				result.Outputs.Insert(key, val)
			}
			result.Outputs.Insert("result", values.String(id))
			return result, nil
		},
	}}
}
