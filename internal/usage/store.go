package usage

import (
	"context"
	"sort"
	"sync"

	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
)

// Counter is one usage counter of a user.
type Counter struct {
	Feature   string             `json:"feature"`
	Window    entitlement.Window `json:"window"`
	Count     int                `json:"count"`
	WindowKey string             `json:"window_key"`
}

// Store persists counters. Both Load and Increment first roll a counter whose
// stored window key differs from windowKey over to zero, atomically with
// respect to other calls on the same counter.
type Store interface {
	// Load returns the counter, or a zero counter when none exists yet
	Load(ctx context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error)
	// Increment adds exactly one use and returns the new counter
	Increment(ctx context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error)
	// List returns every stored counter of the user as stored
	List(ctx context.Context, userID string) ([]Counter, error)
}

type counterKey struct {
	userID  string
	feature string
	window  entitlement.Window
}

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[counterKey]Counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[counterKey]Counter)}
}

func (s *MemoryStore) Load(_ context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := counterKey{userID, feature, window}
	c, ok := s.counters[k]
	if !ok {
		return Counter{Feature: feature, Window: window, WindowKey: windowKey}, nil
	}
	if c.WindowKey != windowKey {
		c = Counter{Feature: feature, Window: window, WindowKey: windowKey}
		s.counters[k] = c
	}
	return c, nil
}

func (s *MemoryStore) Increment(_ context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := counterKey{userID, feature, window}
	c, ok := s.counters[k]
	if !ok || c.WindowKey != windowKey {
		c = Counter{Feature: feature, Window: window, WindowKey: windowKey}
	}
	c.Count++
	s.counters[k] = c
	return c, nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Counter
	for k, c := range s.counters {
		if k.userID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return entitlement.LimitKey(out[i].Feature, out[i].Window) < entitlement.LimitKey(out[j].Feature, out[j].Window)
	})
	return out, nil
}
