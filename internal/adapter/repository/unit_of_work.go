package repository

import (
	"context"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type gormUnitOfWork struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUnitOfWork runs callbacks inside one database transaction
func NewUnitOfWork(db *gorm.DB, logger *zap.Logger) repository.UnitOfWork {
	return &gormUnitOfWork{
		db:     db,
		logger: logger,
	}
}

func (u *gormUnitOfWork) WithinTransaction(ctx context.Context, fn func(repository.SubscriberRepository, repository.ProcessedEventRepository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewSubscriberRepository(tx, u.logger), NewProcessedEventRepository(tx, u.logger))
	})
}
