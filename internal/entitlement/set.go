package entitlement

import "sort"

// LimitEntry is one numeric entitlement.
type LimitEntry struct {
	Feature string `json:"feature"`
	Window  Window `json:"window"`
	Limit   Limit  `json:"limit"`
}

// Key returns the flat entitlement key.
func (e LimitEntry) Key() string {
	return LimitKey(e.Feature, e.Window)
}

// Set is the concrete entitlements granted by one tier.
type Set struct {
	Limits       map[string]LimitEntry
	Capabilities map[string]bool
}

// Lookup returns the limit for feature and window, if the table declares one.
func (s Set) Lookup(feature string, window Window) (LimitEntry, bool) {
	e, ok := s.Limits[LimitKey(feature, window)]
	return e, ok
}

// Can reports a capability flag. Undeclared flags are false.
func (s Set) Can(flag string) bool {
	return s.Capabilities[flag]
}

// Flatten returns limits and flags under their flat keys, the shape served
// by /me/entitlements.
func (s Set) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(s.Limits)+len(s.Capabilities))
	for k, e := range s.Limits {
		out[k] = e.Limit
	}
	for k, v := range s.Capabilities {
		out[k] = v
	}
	return out
}

// Entries returns the limit entries sorted by key.
func (s Set) Entries() []LimitEntry {
	entries := make([]LimitEntry, 0, len(s.Limits))
	for _, e := range s.Limits {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key() < entries[j].Key() })
	return entries
}

// Clone returns a deep copy so callers cannot mutate the shared tables.
func (s Set) Clone() Set {
	c := Set{
		Limits:       make(map[string]LimitEntry, len(s.Limits)),
		Capabilities: make(map[string]bool, len(s.Capabilities)),
	}
	for k, v := range s.Limits {
		c.Limits[k] = v
	}
	for k, v := range s.Capabilities {
		c.Capabilities[k] = v
	}
	return c
}
