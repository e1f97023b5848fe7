package runbook

import (
	"context"
	"errors"

	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
)

// ResolveGraph scans every construct's collected references, resolves them
// within the owning package (following imports into other packages), and
// materializes the dependency edges of both DAGs. Unresolvable references
// become warnings so that independent constructs may still execute. Cycles
// are fatal: no valid execution order exists.
//
// On success the graph context's ExecutionOrder, SignersInitOrder, and
// SignedCommands tables are populated.
func (r *Runbook) ResolveGraph(ctx context.Context) []*diagnostics.Diagnostic {
	logger := ctxlog.FromContext(ctx)
	g := r.Graph
	root := did.Zero().String()

	seenSigners := make(map[did.ConstructDid]bool)

	for _, pkgDid := range r.PackageOrder {
		pkg := r.Packages[pkgDid]
		for _, cdid := range r.ConstructOrder {
			c := r.Constructs[cdid]
			if c.PackageDid != pkgDid {
				continue
			}
			for _, ref := range c.References {
				depDid, depPkgDid, ok := r.resolveReference(pkg, ref)
				if !ok {
					r.Diagnostics = append(r.Diagnostics, diagnostics.Warnf(
						"unable to resolve '%s' in %s '%s'", ref.String(), c.Kind, c.Name).
						WithLocation(c.Location).
						WithSpan(ref.Range.Start.Line, ref.Range.Start.Column))
					continue
				}

				if err := g.ConstructsDag.AddEdge(depDid.String(), c.Did.String()); err != nil {
					var cycleErr *diagnostics.CycleError
					if errors.As(err, &cycleErr) {
						return []*diagnostics.Diagnostic{diagnostics.Errorf(
							"%s '%s' depends on itself", c.Kind, c.Name).WithLocation(c.Location)}
					}
					return []*diagnostics.Diagnostic{diagnostics.Errorf("graph edge insertion failed: %s", err)}
				}
				logger.Debug("Linking dependency.", "from", ref.String(), "to", c.Kind.String()+"."+c.Name)

				// The root should only parent true graph sources.
				if g.ConstructsDag.HasEdge(root, c.Did.String()) {
					g.ConstructsDag.RemoveEdge(root, c.Did.String())
				}

				if dep, found := r.Constructs[depDid]; found && dep.Kind == KindSigner {
					if !seenSigners[depDid] {
						seenSigners[depDid] = true
						g.SignersInitOrder = append(g.SignersInitOrder, depDid)
					}
					g.SignedCommands[c.Did] = append(g.SignedCommands[c.Did], depDid)
				}

				if depPkgDid != pkgDid && !depPkgDid.IsZero() {
					_ = g.PackagesDag.AddEdge(depPkgDid.String(), pkgDid.String())
				}
			}
		}
	}

	if err := g.PackagesDag.DetectCycles(); err != nil {
		return []*diagnostics.Diagnostic{r.cycleDiagnostic(err)}
	}
	if err := g.ConstructsDag.DetectCycles(); err != nil {
		return []*diagnostics.Diagnostic{r.cycleDiagnostic(err)}
	}

	sorted, err := g.ConstructsDag.Sorted()
	if err != nil {
		return []*diagnostics.Diagnostic{r.cycleDiagnostic(err)}
	}
	g.ExecutionOrder = g.ExecutionOrder[:0]
	for _, id := range sorted {
		g.ExecutionOrder = append(g.ExecutionOrder, did.NewConstructDid(did.FromHexString(id)))
	}

	logger.Debug("Graph resolution complete.",
		"constructs", len(r.ConstructOrder), "packages", len(r.PackageOrder), "signers", len(g.SignersInitOrder))
	return nil
}

// cycleDiagnostic renders a CycleError with construct names instead of
// raw dids, listing the full cycle membership.
func (r *Runbook) cycleDiagnostic(err error) *diagnostics.Diagnostic {
	var cycleErr *diagnostics.CycleError
	if !errors.As(err, &cycleErr) {
		return diagnostics.Errorf("graph resolution failed: %s", err)
	}
	names := make([]string, 0, len(cycleErr.Members))
	for _, id := range cycleErr.Members {
		names = append(names, r.ConstructName(id))
	}
	return (&diagnostics.CycleError{Members: names}).Diagnostic()
}

// resolveReference resolves `<namespace>.<name>` within the given package.
// `input` and `env` namespaces resolve against top-level inputs; other
// namespaces resolve in the package's lookup tables, then through its
// imports. Multiple references to one dependency are fine: the DAG's
// AddEdge is idempotent.
func (r *Runbook) resolveReference(pkg *Package, ref Reference) (did.ConstructDid, did.PackageDid, bool) {
	if ref.Namespace == "input" || ref.Namespace == "env" {
		if cdid, ok := r.TopLevelInputs[ref.Name]; ok {
			return cdid, did.PackageDid{}, true
		}
		return did.ConstructDid{}, did.PackageDid{}, false
	}

	if cdid, ok := pkg.lookupByNamespace(ref.Namespace, ref.Name); ok {
		return cdid, pkg.Did, true
	}

	// Imports redirect resolution into the imported package.
	for _, importDid := range pkg.ImportDids {
		imp, ok := r.Constructs[importDid]
		if !ok || imp.ImportPath == "" {
			continue
		}
		target, ok := r.PackageByLocation(imp.ImportPath)
		if !ok {
			continue
		}
		if cdid, found := target.lookupByNamespace(ref.Namespace, ref.Name); found {
			return cdid, target.Did, true
		}
	}

	return did.ConstructDid{}, did.PackageDid{}, false
}
