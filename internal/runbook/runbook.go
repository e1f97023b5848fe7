package runbook

import (
	"fmt"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/values"
)

// Runbook is the aggregate owning packages, constructs, top-level inputs,
// and the dependency graph for the duration of one run. No other component
// mutates these concurrently; re-running re-indexes from scratch.
type Runbook struct {
	Name        string
	Description string

	Packages     map[did.PackageDid]*Package
	PackageOrder []did.PackageDid

	Constructs     map[did.ConstructDid]*Construct
	ConstructOrder []did.ConstructDid

	// Top-level inputs (manifest environment values and CLI --input pairs)
	// surface as synthetic dependency-free constructs referenced via
	// `input.*` / `env.*`.
	TopLevelInputs     map[string]did.ConstructDid
	TopLevelInputOrder []string
	InputValues        map[did.ConstructDid]values.Value

	Graph *GraphContext

	// Diagnostics accumulates non-fatal findings (unresolved references)
	// raised while indexing and resolving.
	Diagnostics []*diagnostics.Diagnostic
}

// New returns an empty runbook aggregate.
func New(name string) *Runbook {
	return &Runbook{
		Name:           name,
		Packages:       make(map[did.PackageDid]*Package),
		Constructs:     make(map[did.ConstructDid]*Construct),
		TopLevelInputs: make(map[string]did.ConstructDid),
		InputValues:    make(map[did.ConstructDid]values.Value),
		Graph:          NewGraphContext(),
	}
}

// IndexPackage creates (or returns) the package for a source scope and
// registers it in the package DAG.
func (r *Runbook) IndexPackage(name, location string) *Package {
	pkg := NewPackage(name, location)
	if existing, ok := r.Packages[pkg.Did]; ok {
		return existing
	}
	r.Packages[pkg.Did] = pkg
	r.PackageOrder = append(r.PackageOrder, pkg.Did)
	r.Graph.IndexPackage(pkg.Did)
	return pkg
}

// IndexConstruct registers a construct into its package's per-kind tables
// and into the construct DAG as a child of the synthetic root.
func (r *Runbook) IndexConstruct(pkg *Package, c *Construct) error {
	if _, exists := r.Constructs[c.Did]; exists {
		return fmt.Errorf("construct %s %q already indexed", c.Kind, c.Name)
	}
	c.PackageDid = pkg.Did
	r.Constructs[c.Did] = c
	r.ConstructOrder = append(r.ConstructOrder, c.Did)
	pkg.addConstruct(c)
	r.Graph.IndexConstruct(c.Did)
	return nil
}

// AddTopLevelInput registers a named top-level input value as a synthetic
// dependency-free construct.
func (r *Runbook) AddTopLevelInput(name string, val values.Value) did.ConstructDid {
	if existing, ok := r.TopLevelInputs[name]; ok {
		r.InputValues[existing] = val
		return existing
	}
	cdid := did.NewConstructDid(did.FromComponents("input", r.Name, name))
	r.TopLevelInputs[name] = cdid
	r.TopLevelInputOrder = append(r.TopLevelInputOrder, name)
	r.InputValues[cdid] = val
	r.Graph.ConstructsDag.AddNode(cdid.String())
	_ = r.Graph.ConstructsDag.AddEdge(did.Zero().String(), cdid.String())
	return cdid
}

// Construct looks up a construct by did.
func (r *Runbook) Construct(cdid did.ConstructDid) (*Construct, bool) {
	c, ok := r.Constructs[cdid]
	return c, ok
}

// ConstructName renders a construct identity for diagnostics; synthetic
// nodes fall back to their did.
func (r *Runbook) ConstructName(id string) string {
	cdid := did.NewConstructDid(did.FromHexString(id))
	if c, ok := r.Constructs[cdid]; ok {
		return c.Name
	}
	for name, inputDid := range r.TopLevelInputs {
		if inputDid == cdid {
			return name
		}
	}
	return id
}

// PackageByLocation finds the package indexed from the given location.
func (r *Runbook) PackageByLocation(location string) (*Package, bool) {
	for _, pkgDid := range r.PackageOrder {
		if r.Packages[pkgDid].Location == location {
			return r.Packages[pkgDid], true
		}
	}
	return nil, false
}
