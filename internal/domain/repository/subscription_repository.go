package repository

import (
	"context"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
)

// SubscriberRepository stores canonical subscription records keyed by email.
// Lookups return nil, nil when no record exists.
type SubscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (*entity.SubscriptionRecord, error)
	GetByUserID(ctx context.Context, userID string) (*entity.SubscriptionRecord, error)

	// Upsert writes the full snapshot. An existing non-null user_id is kept.
	Upsert(ctx context.Context, record *entity.SubscriptionRecord) error

	// BindUserID sets user_id on the record for email only while it is still
	// null. It reports whether a row was updated.
	BindUserID(ctx context.Context, email, userID string) (bool, error)
}

// ProcessedEventRepository is the idempotency ledger of provider event ids.
type ProcessedEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)

	// Insert records eventID. It returns domain ErrDuplicateEvent when the id
	// is already present.
	Insert(ctx context.Context, eventID, eventType string) error
}

// UnitOfWork runs fn against repositories that share one transaction. When fn
// returns an error nothing it wrote is kept.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(subscribers SubscriberRepository, events ProcessedEventRepository) error) error
}
