package provider

import "sort"

// Registry resolves tiers to concrete providers and supports the router's
// single one-tier failover by walking down the tier order.
type Registry struct {
	byTier map[Tier]Provider
}

// NewRegistry creates a registry from the given providers.
// Later providers win when two share a tier.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byTier: make(map[Tier]Provider)}
	for _, p := range providers {
		if p != nil {
			r.byTier[p.Tier()] = p
		}
	}
	return r
}

// ByTier returns the provider for a tier, or nil if none is registered.
func (r *Registry) ByTier(t Tier) Provider {
	return r.byTier[t]
}

// NextLower returns the first available provider strictly below the given
// tier, or nil when there is nothing to fail over to.
func (r *Registry) NextLower(t Tier) Provider {
	for lower := t - 1; lower >= TierFast; lower-- {
		if p, ok := r.byTier[lower]; ok && p.Available() {
			return p
		}
	}
	return nil
}

// Statuses returns every registered provider's status, ordered by tier.
func (r *Registry) Statuses() []*Status {
	tiers := make([]int, 0, len(r.byTier))
	for t := range r.byTier {
		tiers = append(tiers, int(t))
	}
	sort.Ints(tiers)

	out := make([]*Status, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, r.byTier[Tier(t)].Status())
	}
	return out
}
