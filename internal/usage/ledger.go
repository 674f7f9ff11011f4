// Package usage tracks advisory per-feature usage counters. Counters gate
// UI affordances only and never feed billing.
package usage

import (
	"context"
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
)

// Status is the gate state of one feature window.
type Status struct {
	Feature   string             `json:"feature"`
	Window    entitlement.Window `json:"window"`
	Count     int                `json:"count"`
	Limit     entitlement.Limit  `json:"limit"`
	Remaining entitlement.Limit  `json:"remaining"`
	CanUse    bool               `json:"can_use"`
	WindowKey string             `json:"window_key"`
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the timezone windows roll over in.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// Ledger gates features of one user against the entitlements of their tier.
type Ledger struct {
	userID string
	tier   entity.Tier
	set    entitlement.Set
	store  Store
	now    func() time.Time
	loc    *time.Location
}

func NewLedger(userID string, tier entity.Tier, set entitlement.Set, store Store, opts ...Option) *Ledger {
	l := &Ledger{
		userID: userID,
		tier:   tier,
		set:    set,
		store:  store,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) windowKey(window entitlement.Window) string {
	return WindowKey(window, l.now(), l.loc)
}

// limitFor returns the effective limit. Premium and features without a
// declared limit are unbounded.
func (l *Ledger) limitFor(feature string, window entitlement.Window) entitlement.Limit {
	if l.tier == entity.TierPremium {
		return entitlement.Unbounded()
	}
	e, ok := l.set.Lookup(feature, window)
	if !ok {
		return entitlement.Unbounded()
	}
	return e.Limit
}

func (l *Ledger) status(c Counter) Status {
	limit := l.limitFor(c.Feature, c.Window)
	return Status{
		Feature:   c.Feature,
		Window:    c.Window,
		Count:     c.Count,
		Limit:     limit,
		Remaining: limit.Sub(c.Count),
		CanUse:    limit.Allows(c.Count),
		WindowKey: c.WindowKey,
	}
}

// Declares reports whether the tier's entitlement set has a limit for this
// feature window.
func (l *Ledger) Declares(feature string, window entitlement.Window) bool {
	_, ok := l.set.Lookup(feature, window)
	return ok
}

// Tier returns the tier the ledger was resolved for.
func (l *Ledger) Tier() entity.Tier {
	return l.tier
}

// Status returns the gate state after rolling the window over if needed.
func (l *Ledger) Status(ctx context.Context, feature string, window entitlement.Window) (Status, error) {
	c, err := l.store.Load(ctx, l.userID, feature, window, l.windowKey(window))
	if err != nil {
		return Status{}, err
	}
	return l.status(c), nil
}

func (l *Ledger) CanUse(ctx context.Context, feature string, window entitlement.Window) (bool, error) {
	st, err := l.Status(ctx, feature, window)
	if err != nil {
		return false, err
	}
	return st.CanUse, nil
}

func (l *Ledger) Remaining(ctx context.Context, feature string, window entitlement.Window) (entitlement.Limit, error) {
	st, err := l.Status(ctx, feature, window)
	if err != nil {
		return entitlement.Limit{}, err
	}
	return st.Remaining, nil
}

// Increment records exactly one use. Call it once the gated action has
// started, never speculatively.
func (l *Ledger) Increment(ctx context.Context, feature string, window entitlement.Window) (Status, error) {
	c, err := l.store.Increment(ctx, l.userID, feature, window, l.windowKey(window))
	if err != nil {
		return Status{}, err
	}
	return l.status(c), nil
}

// Snapshot returns the state of every limit in the user's entitlement set.
func (l *Ledger) Snapshot(ctx context.Context) ([]Status, error) {
	entries := l.set.Entries()
	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		st, err := l.Status(ctx, e.Feature, e.Window)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
