package repository

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/model"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type processedEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProcessedEventRepository creates a GORM-backed idempotency ledger
func NewProcessedEventRepository(db *gorm.DB, logger *zap.Logger) repository.ProcessedEventRepository {
	return &processedEventRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether an event id was already recorded
func (r *processedEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error

	if err != nil {
		r.logger.Error("Failed to check processed event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}

	return count > 0, nil
}

// Insert records the event id. A concurrent or earlier insert of the same
// id makes this a no-op that reports ErrDuplicateEvent.
func (r *processedEventRepository) Insert(ctx context.Context, eventID, eventType string) error {
	event := &model.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to record processed event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return fmt.Errorf("failed to record processed event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("event %s: %w", eventID, domainErrors.ErrDuplicateEvent)
	}

	return nil
}
