package supervisor

import (
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
)

// BlockEventType classifies progress events emitted during execution.
type BlockEventType int

const (
	// EventProgress is an incremental status update from a running command.
	EventProgress BlockEventType = iota
	// EventCompleted marks a construct's successful terminal state.
	EventCompleted
	// EventFailed marks a construct's failed terminal state.
	EventFailed
	// EventBackgroundStarted marks the start of a post-completion task.
	EventBackgroundStarted
	// EventBackgroundCompleted marks the end of a post-completion task.
	EventBackgroundCompleted
)

// BlockEvent is one progress update on the multi-producer progress channel.
// Commands report status through these instead of blocking silently.
type BlockEvent struct {
	Type         BlockEventType
	ConstructDid did.ConstructDid
	Message      string
	Diagnostic   *diagnostics.Diagnostic
}

// DrainEvents consumes a progress channel into a slice, for tests and for
// surfaces that render progress after the fact.
func DrainEvents(ch <-chan BlockEvent) []BlockEvent {
	var out []BlockEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}
