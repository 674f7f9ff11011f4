package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
)

// MemoryRepository is an in-process subscriber store and idempotency ledger
// for local development. Transactions are serialized and staged until fn
// returns nil.
type MemoryRepository struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	subscribers map[string]entity.SubscriptionRecord
	events      map[string]string
	writes      int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subscribers: make(map[string]entity.SubscriptionRecord),
		events:      make(map[string]string),
	}
}

var (
	_ repository.SubscriberRepository     = (*MemoryRepository)(nil)
	_ repository.ProcessedEventRepository = (*MemoryRepository)(nil)
	_ repository.UnitOfWork               = (*MemoryRepository)(nil)
)

// SubscriberWrites counts committed subscriber upserts.
func (m *MemoryRepository) SubscriberWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// EventCount returns the number of recorded event ids.
func (m *MemoryRepository) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (*entity.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.subscribers[entity.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryRepository) GetByUserID(_ context.Context, userID string) (*entity.SubscriptionRecord, error) {
	if userID == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.subscribers {
		if rec.UserID == userID {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) Upsert(ctx context.Context, record *entity.SubscriptionRecord) error {
	return m.WithinTransaction(ctx, func(s repository.SubscriberRepository, _ repository.ProcessedEventRepository) error {
		return s.Upsert(ctx, record)
	})
}

func (m *MemoryRepository) BindUserID(_ context.Context, email, userID string) (bool, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	email = entity.NormalizeEmail(email)
	rec, ok := m.subscribers[email]
	if !ok || rec.UserID != "" {
		return false, nil
	}
	rec.UserID = userID
	m.subscribers[email] = rec
	return true, nil
}

func (m *MemoryRepository) Exists(_ context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *MemoryRepository) Insert(ctx context.Context, eventID, eventType string) error {
	return m.WithinTransaction(ctx, func(_ repository.SubscriberRepository, e repository.ProcessedEventRepository) error {
		return e.Insert(ctx, eventID, eventType)
	})
}

func (m *MemoryRepository) WithinTransaction(ctx context.Context, fn func(repository.SubscriberRepository, repository.ProcessedEventRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{
		base:        m,
		subscribers: make(map[string]entity.SubscriptionRecord),
		events:      make(map[string]string),
	}
	if err := fn(tx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range tx.subscribers {
		m.subscribers[k] = v
		m.writes++
	}
	for k, v := range tx.events {
		m.events[k] = v
	}
	return nil
}

// memoryTx stages writes of one transaction
type memoryTx struct {
	base        *MemoryRepository
	subscribers map[string]entity.SubscriptionRecord
	events      map[string]string
}

func (t *memoryTx) GetByEmail(ctx context.Context, email string) (*entity.SubscriptionRecord, error) {
	if rec, ok := t.subscribers[entity.NormalizeEmail(email)]; ok {
		return &rec, nil
	}
	return t.base.GetByEmail(ctx, email)
}

func (t *memoryTx) GetByUserID(ctx context.Context, userID string) (*entity.SubscriptionRecord, error) {
	for _, rec := range t.subscribers {
		if userID != "" && rec.UserID == userID {
			rec := rec
			return &rec, nil
		}
	}
	return t.base.GetByUserID(ctx, userID)
}

func (t *memoryTx) Upsert(ctx context.Context, record *entity.SubscriptionRecord) error {
	existing, err := t.GetByEmail(ctx, record.Email)
	if err != nil {
		return err
	}
	rec := *record
	rec.Email = entity.NormalizeEmail(rec.Email)
	rec.PreserveUserID(existing)
	t.subscribers[rec.Email] = rec
	return nil
}

func (t *memoryTx) BindUserID(ctx context.Context, email, userID string) (bool, error) {
	existing, err := t.GetByEmail(ctx, email)
	if err != nil || existing == nil || existing.UserID != "" {
		return false, err
	}
	existing.UserID = userID
	t.subscribers[existing.Email] = *existing
	return true, nil
}

func (t *memoryTx) Exists(ctx context.Context, eventID string) (bool, error) {
	if _, ok := t.events[eventID]; ok {
		return true, nil
	}
	return t.base.Exists(ctx, eventID)
}

func (t *memoryTx) Insert(ctx context.Context, eventID, eventType string) error {
	exists, err := t.Exists(ctx, eventID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("event %s: %w", eventID, domainErrors.ErrDuplicateEvent)
	}
	t.events[eventID] = eventType
	return nil
}
