package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
)

// MockBillingProvider is a mock implementation of BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) VerifyEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func (m *MockBillingProvider) GetCustomerEmail(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) FindActiveSubscriptionByEmail(ctx context.Context, email string) (*provider.Subscription, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func (m *MockBillingProvider) GetProviderName() string {
	return string(provider.ProviderTypeStripe)
}

// MockPublisher is a mock implementation of messaging.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

// fakeCache is an in-memory SnapshotCache
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]SnapshotEntry
	invalidated []string
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]SnapshotEntry)}
}

func (c *fakeCache) Get(_ context.Context, email string) (*SnapshotEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	e, ok := c.entries[email]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *fakeCache) Set(_ context.Context, email string, entry SnapshotEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[email] = entry
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, email)
	delete(c.entries, email)
	return c.err
}
