package runbook

import (
	"github.com/vk/runbookgo/internal/dag"
	"github.com/vk/runbookgo/internal/did"
)

// GraphContext owns the two dependency DAGs of a runbook: one across
// packages, one across constructs. Both carry a synthetic root (the zero
// did) from which every node is initially reachable; the graph builder
// detaches a construct from the root once a real dependency edge arrives,
// so the root's direct children are exactly the true graph sources.
//
// Edges point dependency → dependent: a construct's graph-parents are the
// constructs it consumes data from.
type GraphContext struct {
	PackagesDag   *dag.Graph
	ConstructsDag *dag.Graph
	RootDid       did.ConstructDid

	// SignersInitOrder lists the signer constructs in the order their
	// activation must be initialized, deduplicated.
	SignersInitOrder []did.ConstructDid
	// SignedCommands maps each signing action to the signer constructs it
	// delegates to.
	SignedCommands map[did.ConstructDid][]did.ConstructDid
	// ExecutionOrder is the stable topological order of all constructs,
	// root first. Populated by the graph builder after cycle detection.
	ExecutionOrder []did.ConstructDid
}

// NewGraphContext returns a graph context with both DAGs initialized to a
// single synthetic root node.
func NewGraphContext() *GraphContext {
	g := &GraphContext{
		PackagesDag:    dag.New(),
		ConstructsDag:  dag.New(),
		RootDid:        did.NewConstructDid(did.Zero()),
		SignedCommands: make(map[did.ConstructDid][]did.ConstructDid),
	}
	g.PackagesDag.AddNode(did.Zero().String())
	g.ConstructsDag.AddNode(did.Zero().String())
	return g
}

// IndexPackage adds a package as a child of the synthetic root.
func (g *GraphContext) IndexPackage(pkgDid did.PackageDid) {
	g.PackagesDag.AddNode(pkgDid.String())
	// Root edges on the package DAG are never an error: the root is zero.
	_ = g.PackagesDag.AddEdge(did.Zero().String(), pkgDid.String())
}

// IndexConstruct adds a construct as a child of the synthetic root. The
// root edge is removed later if a real dependency edge is attached.
func (g *GraphContext) IndexConstruct(constructDid did.ConstructDid) {
	g.ConstructsDag.AddNode(constructDid.String())
	_ = g.ConstructsDag.AddEdge(did.Zero().String(), constructDid.String())
}

// Dependencies returns a construct's direct graph-parents, excluding the
// synthetic root.
func (g *GraphContext) Dependencies(constructDid did.ConstructDid) []did.ConstructDid {
	deps, err := g.ConstructsDag.Dependencies(constructDid.String())
	if err != nil {
		return nil
	}
	return g.toConstructDids(deps)
}

// Dependents returns every construct downstream of the given one. With
// recursive=false only direct dependents are returned.
func (g *GraphContext) Dependents(constructDid did.ConstructDid, recursive bool) []did.ConstructDid {
	deps, err := g.ConstructsDag.Descendants(constructDid.String(), recursive)
	if err != nil {
		return nil
	}
	return g.toConstructDids(deps)
}

// Ancestors returns every construct upstream of the given one, excluding
// the synthetic root.
func (g *GraphContext) Ancestors(constructDid did.ConstructDid) []did.ConstructDid {
	deps, err := g.ConstructsDag.Ancestors(constructDid.String())
	if err != nil {
		return nil
	}
	return g.toConstructDids(deps)
}

func (g *GraphContext) toConstructDids(ids []string) []did.ConstructDid {
	root := did.Zero().String()
	out := make([]did.ConstructDid, 0, len(ids))
	for _, id := range ids {
		if id == root {
			continue
		}
		out = append(out, did.NewConstructDid(did.FromHexString(id)))
	}
	return out
}
