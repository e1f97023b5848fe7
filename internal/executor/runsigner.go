package executor

import (
	"context"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/runbook"
)

// runSigner drives a signer construct through activation. Activation runs
// at most once per signer instance regardless of how many dependents the
// graph schedules concurrently; subsequent arrivals observe the cached
// result.
func (s *Scheduler) runSigner(ctx context.Context, c *runbook.Construct) *diagnostics.Diagnostic {
	signer := c.Signer
	if signer == nil {
		return diagnostics.Errorf("signer %q has no bound specification", c.Name)
	}

	inputs, _, diag := s.evaluateInputs(c)
	if diag != nil {
		return diag
	}

	reqs, diag := signer.CheckActivability(ctx, inputs, s.supervisor)
	if diag != nil {
		return diag
	}
	responses, diag := s.channel.Dispatch(ctx, s.supervisor, reqs)
	if diag != nil {
		return diag
	}

	result, diag := signer.Activate(ctx, inputs, responses)
	if diag != nil {
		return diag
	}

	if diag := signer.CheckPublicKeyExpectations(ctx, inputs); diag != nil {
		return diag
	}

	if result != nil && result.Outputs != nil {
		s.results.Publish(c.Did, result.Outputs)
	}
	return nil
}
