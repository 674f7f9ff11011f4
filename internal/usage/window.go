package usage

import (
	"fmt"
	"time"
	// zone database for hosts without one
	_ "time/tzdata"

	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
)

// DefaultTimezone is where calendar windows roll over.
const DefaultTimezone = "America/Sao_Paulo"

const lifetimeKey = "lifetime"

// WindowKey identifies the calendar window containing t: YYYY-MM-DD for
// daily, MM-YYYY for monthly.
func WindowKey(window entitlement.Window, t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	switch window {
	case entitlement.WindowDaily:
		return t.Format("2006-01-02")
	case entitlement.WindowMonthly:
		return t.Format("01-2006")
	default:
		return lifetimeKey
	}
}

// LoadLocation resolves a timezone name, falling back to DefaultTimezone
// when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}
