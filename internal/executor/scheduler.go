package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/registry"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// nodeState tracks one construct's scheduling bookkeeping.
type nodeState struct {
	depCount atomic.Int32
	skipOnce sync.Once
	// backgroundDone closes when the construct's detached task finishes;
	// nil when the construct has none.
	backgroundDone chan struct{}
}

// ExecutionResult is the outcome of one graph run.
type ExecutionResult struct {
	Results *ResultsStore
	// Diagnostics lists every failure, each skip carrying its originating
	// failure as parent.
	Diagnostics []*diagnostics.Diagnostic
	// Skipped lists constructs not attempted because an upstream failed.
	Skipped []did.ConstructDid
}

// Failed reports whether any construct failed or was skipped.
func (r *ExecutionResult) Failed() bool {
	return diagnostics.HasErrors(r.Diagnostics) || len(r.Skipped) > 0
}

// Scheduler walks a resolved construct graph in dependency order. Every
// node whose dependencies completed gets its own goroutine, so the width
// of the graph is the only concurrency bound.
type Scheduler struct {
	runbook    *runbook.Runbook
	registry   *registry.Registry
	channel    *supervisor.Channel
	supervisor supervisor.Context
	events     chan<- supervisor.BlockEvent

	results    *ResultsStore
	background *errgroup.Group

	mu      sync.Mutex
	states  map[string]*nodeState
	diags   []*diagnostics.Diagnostic
	skipped []did.ConstructDid

	wg        sync.WaitGroup
	readyChan chan string
}

// NewScheduler assembles a scheduler for one run. The events channel
// receives per-construct progress; pass nil to discard it.
func NewScheduler(rb *runbook.Runbook, reg *registry.Registry, channel *supervisor.Channel, sup supervisor.Context, events chan<- supervisor.BlockEvent) *Scheduler {
	return &Scheduler{
		runbook:    rb,
		registry:   reg,
		channel:    channel,
		supervisor: sup,
		events:     events,
		results:    NewResultsStore(),
		states:     make(map[string]*nodeState),
	}
}

// Execute runs the graph to quiescence and waits for background tasks.
// Construct failures are contained: they skip their downstream cone and
// surface in the result, while independent branches run to completion.
// Only a canceled context aborts the walk itself.
func (s *Scheduler) Execute(ctx context.Context) (*ExecutionResult, error) {
	logger := ctxlog.FromContext(ctx)
	g := s.runbook.Graph

	// Background tasks outlive a canceled graph walk on purpose: a broadcast
	// already sent should still be tracked to finality.
	s.background = new(errgroup.Group)

	nodeIDs := g.ConstructsDag.Nodes()
	s.readyChan = make(chan string, len(nodeIDs))

	for _, id := range nodeIDs {
		state := &nodeState{}
		deps, err := g.ConstructsDag.Dependencies(id)
		if err != nil {
			return nil, err
		}
		state.depCount.Store(int32(len(deps)))
		s.states[id] = state
		if len(deps) == 0 {
			s.readyChan <- id
		}
	}
	s.wg.Add(len(nodeIDs))
	logger.Debug("Scheduler starting.", "nodes", len(nodeIDs))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	go func() {
		for id := range s.readyChan {
			if ctx.Err() != nil {
				s.drainNode(ctx, id)
				continue
			}
			go s.runNode(ctx, id)
		}
	}()

	select {
	case <-ctx.Done():
		<-done
	case <-done:
	}
	close(s.readyChan)

	// Detached tasks outlive the graph walk but not the run.
	if err := s.background.Wait(); err != nil {
		logger.Error("Background task failed.", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &ExecutionResult{
		Results:     s.results,
		Diagnostics: s.diags,
		Skipped:     s.skipped,
	}, ctx.Err()
}

// runNode dispatches one ready construct. Non-executable nodes (the
// synthetic root, imports, addon configs) complete immediately so their
// dependents unlock.
func (s *Scheduler) runNode(ctx context.Context, id string) {
	logger := ctxlog.FromContext(ctx)
	constructDid := did.NewConstructDid(did.FromHexString(id))

	if constructDid.IsZero() {
		s.completeNode(ctx, id)
		return
	}

	if store, ok := s.topLevelInputStore(constructDid); ok {
		s.results.Publish(constructDid, store)
		s.completeNode(ctx, id)
		return
	}

	c, ok := s.runbook.Construct(constructDid)
	if !ok || !c.Executable() {
		s.completeNode(ctx, id)
		return
	}

	logger.Debug("Executing construct.", "kind", c.Kind.String(), "name", c.Name)
	s.emit(supervisor.BlockEvent{Type: supervisor.EventProgress, ConstructDid: constructDid, Message: c.Name})

	var diag *diagnostics.Diagnostic
	switch c.Kind {
	case runbook.KindSigner:
		diag = s.runSigner(ctx, c)
	case runbook.KindEmbeddedRunbook:
		diag = s.runEmbedded(ctx, c)
	default:
		diag = s.runCommand(ctx, c)
	}

	if diag != nil {
		logger.Error("Construct failed.", "name", c.Name, "error", diag.Message)
		s.failNode(ctx, id, c, diag)
		return
	}

	s.emit(supervisor.BlockEvent{Type: supervisor.EventCompleted, ConstructDid: constructDid})
	s.completeNode(ctx, id)
}

// completeNode unlocks dependents whose last dependency just finished.
func (s *Scheduler) completeNode(ctx context.Context, id string) {
	g := s.runbook.Graph
	dependents, err := g.ConstructsDag.Descendants(id, false)
	if err == nil {
		for _, dep := range dependents {
			if s.states[dep].depCount.Add(-1) == 0 {
				s.readyChan <- dep
			}
		}
	}
	s.wg.Done()
}

// failNode records the failure and skips the downstream cone. Unrelated
// branches keep running.
func (s *Scheduler) failNode(ctx context.Context, id string, c *runbook.Construct, diag *diagnostics.Diagnostic) {
	diag = diag.WithLocation(c.Location)
	s.mu.Lock()
	s.diags = append(s.diags, diag)
	s.mu.Unlock()

	s.emit(supervisor.BlockEvent{
		Type:         supervisor.EventFailed,
		ConstructDid: c.Did,
		Diagnostic:   diag,
	})

	g := s.runbook.Graph
	descendants, err := g.ConstructsDag.Descendants(id, true)
	if err == nil {
		for _, dep := range descendants {
			s.skipNode(ctx, dep, diag)
		}
	}
	s.wg.Done()
}

// drainNode skips a ready construct after cancellation and keeps the
// readiness wave moving so the walk reaches quiescence. Unlike a failure
// skip, draining must propagate to dependents: nothing downstream will
// ever complete, so the wait group only empties if the wave flows on.
func (s *Scheduler) drainNode(ctx context.Context, id string) {
	s.skipNode(ctx, id, diagnostics.Errorf("run canceled"))
	g := s.runbook.Graph
	dependents, err := g.ConstructsDag.Descendants(id, false)
	if err != nil {
		return
	}
	for _, dep := range dependents {
		if s.states[dep].depCount.Add(-1) == 0 {
			s.readyChan <- dep
		}
	}
}

// skipNode marks a construct as not attempted. The skip diagnostic chains
// to the originating failure so the report shows the causal path.
func (s *Scheduler) skipNode(ctx context.Context, id string, cause *diagnostics.Diagnostic) {
	state, ok := s.states[id]
	if !ok {
		return
	}
	state.skipOnce.Do(func() {
		constructDid := did.NewConstructDid(did.FromHexString(id))
		if !constructDid.IsZero() {
			skipDiag := diagnostics.Warnf("construct %q skipped: upstream dependency failed",
				s.runbook.ConstructName(id)).WithParent(cause)

			s.mu.Lock()
			s.skipped = append(s.skipped, constructDid)
			s.diags = append(s.diags, skipDiag)
			s.mu.Unlock()

			ctxlog.FromContext(ctx).Warn("Skipping construct.", "name", s.runbook.ConstructName(id))
		}
		s.wg.Done()
	})
}

// topLevelInputStore builds the published store for a synthetic input node.
func (s *Scheduler) topLevelInputStore(constructDid did.ConstructDid) (*values.ValueStore, bool) {
	val, ok := s.runbook.InputValues[constructDid]
	if !ok {
		return nil, false
	}
	name := "input"
	for n, d := range s.runbook.TopLevelInputs {
		if d == constructDid {
			name = n
			break
		}
	}
	store := values.NewValueStore(name)
	store.Insert("value", val)
	return store, true
}

func (s *Scheduler) emit(ev supervisor.BlockEvent) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
