package executor

import (
	"context"
	"sync"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// runCommand drives one command construct through its lifecycle: evaluate
// inputs, static checks, supervision, signing delegation, execution, and
// output publication.
func (s *Scheduler) runCommand(ctx context.Context, c *runbook.Construct) *diagnostics.Diagnostic {
	instance := c.Command
	if instance == nil {
		return diagnostics.Errorf("%s %q has no bound command", c.Kind, c.Name)
	}

	if diag := s.waitBackgroundOutputs(ctx, c); diag != nil {
		return diag
	}

	inputs, argTypes, diag := s.evaluateInputs(c)
	if diag != nil {
		return diag
	}

	if _, diag := instance.CheckInstantiability(argTypes); diag != nil {
		return diag
	}
	if diag := instance.CheckTypedInputs(inputs); diag != nil {
		return diag
	}

	reqs, diag := instance.CheckExecutability(ctx, inputs, s.supervisor)
	if diag != nil {
		return diag
	}
	if len(reqs) > 0 {
		if _, diag := s.channel.Dispatch(ctx, s.supervisor, reqs); diag != nil {
			return diag
		}
	}

	if instance.Specification.ImplementsSigningCapability {
		if diag := s.delegateSigning(ctx, c, inputs); diag != nil {
			return diag
		}
	}

	result, diag := s.runWithProgress(ctx, instance, inputs)
	if diag != nil {
		return diag
	}
	if result == nil {
		result = commands.NewCommandExecutionResult(c.Name)
	}
	s.results.Publish(c.Did, result.Outputs)

	if instance.Specification.ImplementsBackgroundTaskCapability {
		if diag := s.launchBackgroundTask(ctx, c, inputs, result.Outputs); diag != nil {
			return diag
		}
	}
	return nil
}

// runWithProgress invokes the execution hook with a live progress stream
// forwarded to the run's event channel.
func (s *Scheduler) runWithProgress(ctx context.Context, instance *commands.CommandInstance, inputs *values.ValueStore) (*commands.CommandExecutionResult, *diagnostics.Diagnostic) {
	progress := make(chan supervisor.BlockEvent, 8)
	var fwd sync.WaitGroup
	fwd.Add(1)
	go func() {
		defer fwd.Done()
		for ev := range progress {
			s.emit(ev)
		}
	}()
	result, diag := instance.RunExecution(ctx, inputs, progress)
	close(progress)
	fwd.Wait()
	return result, diag
}

// delegateSigning walks the construct's signers in declaration order and
// runs the signability check plus signing round on each. The signed payload
// is injected back into the inputs under "signature" before execution.
func (s *Scheduler) delegateSigning(ctx context.Context, c *runbook.Construct, inputs *values.ValueStore) *diagnostics.Diagnostic {
	payload, ok := inputs.Get("payload")
	if !ok {
		payload = values.Null()
	}

	for _, signerDid := range s.runbook.Graph.SignedCommands[c.Did] {
		signerConstruct, found := s.runbook.Construct(signerDid)
		if !found || signerConstruct.Signer == nil {
			return diagnostics.Errorf("%s %q delegates to an unknown signer", c.Kind, c.Name)
		}
		signer := signerConstruct.Signer

		signerInputs, _, diag := s.evaluateInputs(signerConstruct)
		if diag != nil {
			return diag
		}

		reqs, diag := signer.CheckSignability(ctx, c.Did, c.Name, payload, signerInputs, s.supervisor)
		if diag != nil {
			return diag
		}
		if len(reqs) > 0 {
			if _, diag := s.channel.Dispatch(ctx, s.supervisor, reqs); diag != nil {
				return diag
			}
		}

		signed, diag := signer.Sign(ctx, c.Did, c.Name, payload, signerInputs)
		if diag != nil {
			return diag
		}
		inputs.Insert("signature", signed)
	}
	return nil
}

// launchBackgroundTask starts the construct's detached post-completion unit.
// Dependents that reference one of its background-only outputs block on the
// done channel; everything else proceeds immediately.
func (s *Scheduler) launchBackgroundTask(ctx context.Context, c *runbook.Construct, inputs, outputs *values.ValueStore) *diagnostics.Diagnostic {
	task, diag := c.Command.BuildBackgroundTask(ctx, inputs, outputs, nil)
	if diag != nil {
		return diag
	}
	if task == nil {
		return nil
	}

	state := s.states[c.Did.String()]
	state.backgroundDone = make(chan struct{})
	s.emit(supervisor.BlockEvent{Type: supervisor.EventBackgroundStarted, ConstructDid: c.Did})

	logger := ctxlog.FromContext(ctx)
	s.background.Go(func() error {
		defer close(state.backgroundDone)
		result, diag := task(context.WithoutCancel(ctx))
		if diag != nil {
			logger.Error("Background task failed.", "name", c.Name, "error", diag.Message)
			s.mu.Lock()
			s.diags = append(s.diags, diag)
			s.mu.Unlock()
			s.emit(supervisor.BlockEvent{Type: supervisor.EventFailed, ConstructDid: c.Did, Diagnostic: diag})
			return nil
		}
		if result != nil && result.Outputs != nil {
			s.results.Merge(c.Did, result.Outputs)
		}
		s.emit(supervisor.BlockEvent{Type: supervisor.EventBackgroundCompleted, ConstructDid: c.Did})
		return nil
	})
	return nil
}

// waitBackgroundOutputs blocks until every dependency whose background-only
// output this construct references has finished its detached task.
func (s *Scheduler) waitBackgroundOutputs(ctx context.Context, c *runbook.Construct) *diagnostics.Diagnostic {
	for _, depDid := range s.runbook.Graph.Dependencies(c.Did) {
		dep, ok := s.runbook.Construct(depDid)
		if !ok || dep.Command == nil {
			continue
		}
		state := s.states[depDid.String()]
		if state == nil || state.backgroundDone == nil {
			continue
		}
		needed := false
		for _, ref := range c.References {
			if ref.Name != dep.Name || ref.Field == "" {
				continue
			}
			if out, found := dep.Command.Specification.Output(ref.Field); found && out.BackgroundOnly {
				needed = true
				break
			}
		}
		if !needed {
			continue
		}
		select {
		case <-ctx.Done():
			return diagnostics.Errorf("run canceled while awaiting background output of %q", dep.Name)
		case <-state.backgroundDone:
		}
	}
	return nil
}

// evaluateInputs evaluates a construct's attribute expressions in
// declaration order against the current published results.
func (s *Scheduler) evaluateInputs(c *runbook.Construct) (*values.ValueStore, map[string]values.Type, *diagnostics.Diagnostic) {
	evalCtx := buildEvalContext(s.runbook, s.results, s.registry)
	store := values.NewValueStore(c.Name)
	argTypes := make(map[string]values.Type, len(c.ExprOrder))

	for _, name := range c.ExprOrder {
		expr := c.Expressions[name]
		ctyVal, hclDiags := expr.Value(evalCtx)
		if hclDiags.HasErrors() {
			rng := expr.Range()
			return nil, nil, diagnostics.Errorf("evaluating %q in %s %q: %s", name, c.Kind, c.Name, hclDiags.Error()).
				WithLocation(c.Location).
				WithSpan(rng.Start.Line, rng.Start.Column)
		}
		val, err := values.FromCty(ctyVal)
		if err != nil {
			return nil, nil, diagnostics.Errorf("converting %q in %s %q: %s", name, c.Kind, c.Name, err).
				WithLocation(c.Location)
		}
		store.Insert(name, val)
		argTypes[name] = val.Type()
	}
	return store, argTypes, nil
}
