package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
)

// AuthenticatedUser is the caller identity from the bearer token
type AuthenticatedUser struct {
	ID    string
	Email string
	Name  string
}

// QueryOption configures a SubscriptionQueryService
type QueryOption func(*SubscriptionQueryService)

// WithQueryCache serves snapshots younger than freshness from cache.
func WithQueryCache(cache SnapshotCache, freshness time.Duration) QueryOption {
	return func(s *SubscriptionQueryService) {
		s.cache = cache
		if freshness > 0 {
			s.freshness = freshness
		}
	}
}

// WithQueryClock overrides the clock used for cache freshness.
func WithQueryClock(now func() time.Time) QueryOption {
	return func(s *SubscriptionQueryService) { s.now = now }
}

// SubscriptionQueryService answers "what tier is this user" on demand. It
// never writes the canonical record; BindUserID only fills a null user_id.
type SubscriptionQueryService struct {
	subscribers repository.SubscriberRepository
	provider    provider.BillingProvider
	cache       SnapshotCache
	freshness   time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubscriptionQueryService creates a new query service. billing may be
// nil to disable the provider fallback.
func NewSubscriptionQueryService(
	subscribers repository.SubscriberRepository,
	billing provider.BillingProvider,
	logger *zap.Logger,
	opts ...QueryOption,
) *SubscriptionQueryService {
	s := &SubscriptionQueryService{
		subscribers: subscribers,
		provider:    billing,
		freshness:   DefaultSnapshotFreshness,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSnapshot returns the caller's subscription snapshot. Having no
// subscription is not an error. A failing canonical store is, and the
// returned snapshot is then the free default.
func (s *SubscriptionQueryService) GetSnapshot(ctx context.Context, user AuthenticatedUser) (entity.SubscriptionSnapshot, error) {
	email := entity.NormalizeEmail(user.Email)
	log := s.logger.With(zap.String("user_id", user.ID), zap.String("email", email))

	if s.cache != nil && email != "" {
		entry, err := s.cache.Get(ctx, email)
		if err != nil {
			log.Warn("Failed to read snapshot cache", zap.Error(err))
		} else if entry != nil && entry.UserID == user.ID && entry.IsFresh(s.now(), s.freshness) {
			return entry.Data, nil
		}
	}

	record, err := s.findRecord(ctx, user.ID, email)
	if err != nil {
		log.Error("Failed to read canonical subscription record", zap.Error(err))
		return entity.DefaultSnapshot(), err
	}

	snapshot := entity.DefaultSnapshot()
	switch {
	case record != nil:
		snapshot = record.Snapshot()
	case s.provider != nil && email != "":
		snapshot = s.fromProvider(ctx, email, log)
	}

	// Invalidation is keyed by the record's email, so a record found under
	// another address is not cached under the caller's.
	if s.cache != nil && email != "" && (record == nil || entity.NormalizeEmail(record.Email) == email) {
		entry := SnapshotEntry{Data: snapshot, FetchedAt: s.now(), UserID: user.ID}
		if err := s.cache.Set(ctx, email, entry); err != nil {
			log.Warn("Failed to write snapshot cache", zap.Error(err))
		}
	}
	return snapshot, nil
}

func (s *SubscriptionQueryService) findRecord(ctx context.Context, userID, email string) (*entity.SubscriptionRecord, error) {
	if userID != "" {
		record, err := s.subscribers.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get subscriber by user id: %w", err)
		}
		if record != nil {
			return record, nil
		}
	}
	if email == "" {
		return nil, nil
	}
	record, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber by email: %w", err)
	}
	return record, nil
}

// fromProvider asks the payment provider directly. The answer is used for
// this read only and is not persisted.
func (s *SubscriptionQueryService) fromProvider(ctx context.Context, email string, log *zap.Logger) entity.SubscriptionSnapshot {
	sub, err := s.provider.FindActiveSubscriptionByEmail(ctx, email)
	if err != nil {
		log.Warn("Provider fallback failed, serving free default", zap.Error(err))
		return entity.DefaultSnapshot()
	}
	if sub == nil {
		return entity.DefaultSnapshot()
	}

	status := entity.NormalizeStatus(sub.Status)
	log.Info("Subscription found at provider but not in canonical store",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(status)))
	return entity.SubscriptionSnapshot{
		Tier:             entity.DeriveTier(status),
		Status:           status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}

// LinkUser binds userID to the record for email if it has no user yet.
func (s *SubscriptionQueryService) LinkUser(ctx context.Context, email, userID string) (bool, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || userID == "" {
		return false, nil
	}
	bound, err := s.subscribers.BindUserID(ctx, email, userID)
	if err != nil {
		return false, fmt.Errorf("failed to link user: %w", err)
	}
	if bound {
		s.logger.Info("Linked user to subscription record",
			zap.String("email", email),
			zap.String("user_id", userID))
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, email); err != nil {
				s.logger.Warn("Failed to invalidate snapshot cache", zap.String("email", email), zap.Error(err))
			}
		}
	}
	return bound, nil
}
