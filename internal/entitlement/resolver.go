package entitlement

import "github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"

// Resolver maps a tier to its entitlement set. It has no I/O.
type Resolver struct {
	tables *Tables
}

func NewResolver(tables *Tables) *Resolver {
	return &Resolver{tables: tables}
}

// Resolve returns a copy of the table for tier. Anything other than premium
// resolves to the free table.
func (r *Resolver) Resolve(tier entity.Tier) Set {
	if tier == entity.TierPremium {
		return r.tables.Premium.Clone()
	}
	return r.tables.Free.Clone()
}
