package di

import (
	"slices"
	"sync/atomic"
)

// ResolutionContext carries the state of one resolution request through the
// handler pipeline. A context is created for every identifier being resolved;
// descending into a dependency creates a child context whose ancestor chain is
// the parent's chain plus the parent's identifier. Contexts are never shared
// between unrelated resolutions.
type ResolutionContext struct {
	resolver   *Resolver
	original   Identifier
	identifier Identifier
	ancestors  []Identifier
	fresh      bool

	// pending holds the construction of every ancestor, parallel to ancestors.
	pending []*construction
	current *construction
	caller  *caller
}

// construction is marked done once the instance of a context is built or
// has failed.
type construction struct{ done atomic.Bool }

// caller identifies one top-level resolution; all contexts descending from
// it share the same caller.
type caller struct{ _ byte }

func newContext(r *Resolver, id Identifier, fresh bool) *ResolutionContext {
	return &ResolutionContext{
		resolver:   r,
		original:   id,
		identifier: id,
		fresh:      fresh,
		current:    &construction{},
		caller:     &caller{},
	}
}

// Resolver returns the resolver handling this request, for recursive lookups.
func (c *ResolutionContext) Resolver() *Resolver { return c.resolver }

// Identifier returns the identifier currently being resolved. Pre-construct
// handlers may have replaced the originally requested one.
func (c *ResolutionContext) Identifier() Identifier { return c.identifier }

// OriginalIdentifier returns the identifier as it was requested.
func (c *ResolutionContext) OriginalIdentifier() Identifier { return c.original }

// SetIdentifier replaces the identifier being resolved. It is meant for
// pre-construct handlers mapping an abstract type to an implementation.
func (c *ResolutionContext) SetIdentifier(id Identifier) { c.identifier = id }

// Ancestors returns a copy of the identifiers currently being resolved above
// this one, outermost first.
func (c *ResolutionContext) Ancestors() []Identifier { return slices.Clone(c.ancestors) }

// RequestsNewInstance reports whether the caller asked for a fresh instance
// rather than the singleton.
func (c *ResolutionContext) RequestsNewInstance() bool { return c.fresh }

// descend returns the context for dependency id of c. It fails when id is
// already on the chain.
func (c *ResolutionContext) descend(id Identifier) (*ResolutionContext, error) {
	chain := append(slices.Clip(c.ancestors), c.identifier)
	if err := checkCycle(chain, id); err != nil {
		return nil, err
	}
	return &ResolutionContext{
		resolver:   c.resolver,
		original:   id,
		identifier: id,
		ancestors:  chain,
		pending:    append(slices.Clip(c.pending), c.current),
		current:    &construction{},
		caller:     c.caller,
	}, nil
}

// unfinished returns a context for id below the ancestors of c whose
// construction is still running, or nil when all of them are done. Providers
// use it so that a call made while their owner is being built still sees the
// owner on the chain.
func (c *ResolutionContext) unfinished(id Identifier) *ResolutionContext {
	var (
		chain   []Identifier
		pending []*construction
	)
	for i, p := range c.pending {
		if !p.done.Load() {
			chain = append(chain, c.ancestors[i])
			pending = append(pending, p)
		}
	}
	if len(chain) == 0 {
		return nil
	}
	return &ResolutionContext{
		resolver:   c.resolver,
		original:   id,
		identifier: id,
		ancestors:  chain,
		pending:    pending,
		current:    &construction{},
		caller:     c.caller,
	}
}

// checkCycle reports a CyclicDependencyError when id already appears in chain.
func checkCycle(chain []Identifier, id Identifier) error {
	for i, a := range chain {
		if a.Equal(id) {
			cycle := append(slices.Clone(chain[i:]), id)
			return &CyclicDependencyError{Chain: cycle}
		}
	}
	return nil
}
