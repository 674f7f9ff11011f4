package database

import (
	"fmt"

	"github.com/wekeepgrowing/medvoa-backend/internal/adapter/repository"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	domainRepo "github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscribers     domainRepo.SubscriberRepository
	ProcessedEvents domainRepo.ProcessedEventRepository
	UnitOfWork      domainRepo.UnitOfWork

	db *gorm.DB
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscribers:     repository.NewSubscriberRepository(db, logger),
		ProcessedEvents: repository.NewProcessedEventRepository(db, logger),
		UnitOfWork:      repository.NewUnitOfWork(db, logger),
		db:              db,
	}
}

// OpenRepositories builds the repositories for the configured driver.
// Only the postgres driver holds a connection that Close releases.
func OpenRepositories(cfg *config.Config, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return NewRepositories(db, logger), nil

	case config.DriverSupabase:
		supa := cfg.Service.Supabase
		store := repository.NewSupabaseRepository(supa.ProjectURL, supa.ServiceKey, supa.Timeout, logger)
		logger.Warn("Supabase driver selected, subscriber upsert and event insert are not atomic")
		return &Repositories{Subscribers: store, ProcessedEvents: store, UnitOfWork: store}, nil

	case config.DriverMemory:
		store := repository.NewMemoryRepository()
		logger.Warn("Memory driver selected, state is lost on restart")
		return &Repositories{Subscribers: store, ProcessedEvents: store, UnitOfWork: store}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// Close releases the database connection, if any
func (r *Repositories) Close(logger *zap.Logger) error {
	if r.db == nil {
		return nil
	}
	return Close(r.db, logger)
}
