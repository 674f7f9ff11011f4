package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/model"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriberRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriberRepository creates a GORM-backed subscriber repository
func NewSubscriberRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriberRepository {
	return &subscriberRepository{
		db:     db,
		logger: logger,
	}
}

// GetByEmail retrieves the canonical record for an email
func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*entity.SubscriptionRecord, error) {
	return r.first(ctx, "email = ?", entity.NormalizeEmail(email))
}

// GetByUserID retrieves the canonical record bound to a user
func (r *subscriberRepository) GetByUserID(ctx context.Context, userID string) (*entity.SubscriptionRecord, error) {
	if userID == "" {
		return nil, nil
	}
	return r.first(ctx, "user_id = ?", userID)
}

func (r *subscriberRepository) first(ctx context.Context, query string, arg string) (*entity.SubscriptionRecord, error) {
	var sub model.Subscriber

	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscriber",
			zap.String("query", query),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return sub.ToEntity(), nil
}

// Upsert writes the full snapshot keyed by email
func (r *subscriberRepository) Upsert(ctx context.Context, record *entity.SubscriptionRecord) error {
	row := model.SubscriberFromEntity(record)

	updates := clause.Assignments(map[string]interface{}{
		"user_id": gorm.Expr("COALESCE(subscribers.user_id, excluded.user_id)"),
	})
	updates = append(updates, clause.AssignmentColumns([]string{
		"stripe_customer_id",
		"stripe_subscription_id",
		"subscribed",
		"status",
		"subscription_tier",
		"subscription_end",
		"cancel_at_period_end",
		"updated_at",
	})...)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: updates,
		}).
		Create(row).Error

	if err != nil {
		r.logger.Error("Failed to upsert subscriber",
			zap.String("email", record.Email),
			zap.String("status", string(record.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}

	return nil
}

// BindUserID links a user to the record while user_id is still null
func (r *subscriberRepository) BindUserID(ctx context.Context, email, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Subscriber{}).
		Where("email = ? AND user_id IS NULL", entity.NormalizeEmail(email)).
		Update("user_id", userID)

	if result.Error != nil {
		r.logger.Error("Failed to bind user to subscriber",
			zap.String("email", email),
			zap.String("user_id", userID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to bind user id: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
