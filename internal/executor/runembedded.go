package executor

import (
	"context"
	"path/filepath"

	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/snapshot"
	"github.com/vk/runbookgo/internal/values"
)

// runEmbedded resolves an embedded runbook construct from its recorded
// snapshot. Each output construct of the embedded run is published as a
// field under the embed's own did, so dependents address them as
// runbook.<name>.<output>. Load verifies the snapshot fingerprint, so a
// tampered or stale record fails the construct instead of leaking values.
func (s *Scheduler) runEmbedded(ctx context.Context, c *runbook.Construct) *diagnostics.Diagnostic {
	if c.EmbeddedLocation == "" {
		return diagnostics.Errorf("embedded runbook %q has no location", c.Name)
	}
	// Relative locations resolve against the declaring file, not the
	// process working directory.
	location := c.EmbeddedLocation
	if !filepath.IsAbs(location) {
		location = filepath.Join(filepath.Dir(c.Location), location)
	}
	snap, err := snapshot.Load(location)
	if err != nil {
		return diagnostics.Errorf("embedded runbook %q: %s", c.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Embedded runbook snapshot loaded.",
		"name", c.Name, "snapshot", snap.Name, "fingerprint", snap.Fingerprint)

	store := values.NewValueStore(c.Name)
	for _, cs := range snap.Constructs {
		if cs.Kind != runbook.KindOutput.String() {
			continue
		}
		for _, entry := range cs.Outputs {
			if entry.Key == "value" {
				store.Insert(cs.Name, entry.Value)
			}
		}
	}
	s.results.Publish(c.Did, store)
	return nil
}
