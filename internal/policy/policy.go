// Package policy holds the feed assembly strategies. The active one is chosen once
// at startup from configuration.
package policy

import (
	"fmt"
	"sort"
)

const (
	Open    = "open"
	Premium = "premium"

	defaultPageSize = 20
)

// Policy decides how large a feed page may be and how many candidates are
// fetched for re-ranking.
type Policy interface {
	Name() string
	// PageSize clamps the requested page size; non-positive requests get the default.
	PageSize(requested int) int
	// Candidates returns how many articles to fetch for a page of the given size.
	Candidates(pageSize int) int
}

type tiered struct {
	name      string
	maxLimit  int
	overFetch int
}

func (t tiered) Name() string { return t.name }

func (t tiered) PageSize(requested int) int {
	switch {
	case requested <= 0:
		return min(defaultPageSize, t.maxLimit)
	case requested > t.maxLimit:
		return t.maxLimit
	default:
		return requested
	}
}

func (t tiered) Candidates(pageSize int) int {
	return pageSize * t.overFetch
}

// NewOpen is the default policy: up to 50 items, three candidates per slot.
func NewOpen() Policy {
	return tiered{name: Open, maxLimit: 50, overFetch: 3}
}

// NewPremium allows larger pages and a deeper re-ranking pool.
func NewPremium() Policy {
	return tiered{name: Premium, maxLimit: 100, overFetch: 5}
}

// Registry keeps a mapping from policy names to their implementations.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: map[string]Policy{}}
}

// DefaultRegistry contains the built-in policies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewOpen())
	r.Register(NewPremium())
	return r
}

// Register adds or replaces a policy implementation.
func (r *Registry) Register(p Policy) {
	if r.policies == nil {
		r.policies = map[string]Policy{}
	}
	r.policies[p.Name()] = p
}

// Resolve returns a policy by name; an empty name selects the open policy.
func (r *Registry) Resolve(name string) (Policy, error) {
	if name == "" {
		name = Open
	}
	if p, ok := r.policies[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("feed policy %s is not registered (known: %v)", name, r.Names())
}

// Names lists registered policies in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
