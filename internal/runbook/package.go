package runbook

import (
	"github.com/vk/runbookgo/internal/did"
)

// Package groups the constructs of one source scope (a file or directory).
// Per construct kind it keeps both the ordered did set and a name→did
// lookup used during reference resolution. Packages are created while
// indexing source and are immutable afterwards; mutations go through the
// owning Runbook.
type Package struct {
	Did      did.PackageDid
	Name     string
	Location string

	VariableDids []did.ConstructDid
	OutputDids   []did.ConstructDid
	ModuleDids   []did.ConstructDid
	ImportDids   []did.ConstructDid
	ActionDids   []did.ConstructDid
	SignerDids   []did.ConstructDid
	AddonDids    []did.ConstructDid
	EmbeddedDids []did.ConstructDid

	VariableLookup map[string]did.ConstructDid
	OutputLookup   map[string]did.ConstructDid
	ModuleLookup   map[string]did.ConstructDid
	ImportLookup   map[string]did.ConstructDid
	ActionLookup   map[string]did.ConstructDid
	SignerLookup   map[string]did.ConstructDid
	AddonLookup    map[string]did.ConstructDid
	EmbeddedLookup map[string]did.ConstructDid
}

// NewPackage returns an empty package identified by its location and name.
func NewPackage(name, location string) *Package {
	return &Package{
		Did:            did.NewPackageDid(did.FromComponents("package", location, name)),
		Name:           name,
		Location:       location,
		VariableLookup: make(map[string]did.ConstructDid),
		OutputLookup:   make(map[string]did.ConstructDid),
		ModuleLookup:   make(map[string]did.ConstructDid),
		ImportLookup:   make(map[string]did.ConstructDid),
		ActionLookup:   make(map[string]did.ConstructDid),
		SignerLookup:   make(map[string]did.ConstructDid),
		AddonLookup:    make(map[string]did.ConstructDid),
		EmbeddedLookup: make(map[string]did.ConstructDid),
	}
}

// addConstruct indexes a construct into the per-kind tables.
func (p *Package) addConstruct(c *Construct) {
	switch c.Kind {
	case KindVariable:
		p.VariableDids = append(p.VariableDids, c.Did)
		p.VariableLookup[c.Name] = c.Did
	case KindOutput:
		p.OutputDids = append(p.OutputDids, c.Did)
		p.OutputLookup[c.Name] = c.Did
	case KindModule:
		p.ModuleDids = append(p.ModuleDids, c.Did)
		p.ModuleLookup[c.Name] = c.Did
	case KindImport:
		p.ImportDids = append(p.ImportDids, c.Did)
		p.ImportLookup[c.Name] = c.Did
	case KindAction:
		p.ActionDids = append(p.ActionDids, c.Did)
		p.ActionLookup[c.Name] = c.Did
	case KindSigner:
		p.SignerDids = append(p.SignerDids, c.Did)
		p.SignerLookup[c.Name] = c.Did
	case KindAddonConfig:
		p.AddonDids = append(p.AddonDids, c.Did)
		p.AddonLookup[c.Name] = c.Did
	case KindEmbeddedRunbook:
		p.EmbeddedDids = append(p.EmbeddedDids, c.Did)
		p.EmbeddedLookup[c.Name] = c.Did
	}
}

// lookupByNamespace resolves a reference namespace within this package.
func (p *Package) lookupByNamespace(namespace, name string) (did.ConstructDid, bool) {
	switch namespace {
	case "variable":
		d, ok := p.VariableLookup[name]
		return d, ok
	case "output":
		d, ok := p.OutputLookup[name]
		return d, ok
	case "module":
		d, ok := p.ModuleLookup[name]
		return d, ok
	case "action":
		d, ok := p.ActionLookup[name]
		return d, ok
	case "signer":
		d, ok := p.SignerLookup[name]
		return d, ok
	case "runbook":
		d, ok := p.EmbeddedLookup[name]
		return d, ok
	default:
		return did.ConstructDid{}, false
	}
}
