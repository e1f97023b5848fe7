package diagnostics

import (
	"fmt"
	"strings"
)

// DiscoveryError reports an unknown or malformed construct kind encountered
// while indexing source files.
type DiscoveryError struct {
	ConstructKind string
	Location      string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("unknown construct kind %q in %s", e.ConstructKind, e.Location)
}

// CycleError is the fatal graph-level failure raised when edge insertion
// closes a cycle. Members holds every construct participating in the cycle,
// not just the offending edge.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycling dependency between: %s", strings.Join(e.Members, ", "))
}

// Diagnostic renders the cycle error as a fatal diagnostic naming every
// participating construct.
func (e *CycleError) Diagnostic() *Diagnostic {
	return Errorf("%s", e.Error())
}
