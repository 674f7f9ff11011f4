package usecase

import (
	"context"
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
)

// DefaultSnapshotFreshness is how long a fetched snapshot may be served
// without going back to the store.
const DefaultSnapshotFreshness = 30 * time.Second

// SnapshotEntry is a cached query result with the time it was fetched.
// UserID is the caller the entry was resolved for; it is only served back
// to that caller.
type SnapshotEntry struct {
	Data      entity.SubscriptionSnapshot `json:"data"`
	FetchedAt time.Time                   `json:"fetched_at"`
	UserID    string                      `json:"user_id,omitempty"`
}

// IsFresh reports whether the entry is younger than threshold at now.
func (e SnapshotEntry) IsFresh(now time.Time, threshold time.Duration) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	age := now.Sub(e.FetchedAt)
	return age >= 0 && age < threshold
}

// SnapshotCache stores query results keyed by normalized email.
// Get returns nil, nil on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, email string) (*SnapshotEntry, error)
	Set(ctx context.Context, email string, entry SnapshotEntry) error
	Invalidate(ctx context.Context, email string) error
}

// SubscriptionChangedMessage is published after a webhook commits a new
// subscription snapshot.
type SubscriptionChangedMessage struct {
	EventID          string                    `json:"event_id"`
	EventType        string                    `json:"event_type"`
	Email            string                    `json:"email"`
	UserID           string                    `json:"user_id,omitempty"`
	Status           entity.SubscriptionStatus `json:"status"`
	Tier             entity.Tier               `json:"tier"`
	CurrentPeriodEnd *time.Time                `json:"current_period_end"`
	ChangedAt        time.Time                 `json:"changed_at"`
}
