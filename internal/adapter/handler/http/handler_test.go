package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"github.com/wekeepgrowing/medvoa-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
	"github.com/wekeepgrowing/medvoa-backend/internal/usecase"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret"
	testUserID = "550e8400-e29b-41d4-a716-446655440000"
	testEmail  = "ana@example.com"
)

type MockSubscriptionReader struct {
	mock.Mock
}

func (m *MockSubscriptionReader) GetSnapshot(ctx context.Context, user usecase.AuthenticatedUser) (entity.SubscriptionSnapshot, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(entity.SubscriptionSnapshot), args.Error(1)
}

func (m *MockSubscriptionReader) LinkUser(ctx context.Context, email, userID string) (bool, error) {
	args := m.Called(ctx, email, userID)
	return args.Bool(0), args.Error(1)
}

type MockEntitlementReader struct {
	mock.Mock
}

func (m *MockEntitlementReader) Entitlements(ctx context.Context, user usecase.AuthenticatedUser) (entity.SubscriptionSnapshot, entitlement.Set, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(entity.SubscriptionSnapshot), args.Get(1).(entitlement.Set), args.Error(2)
}

func (m *MockEntitlementReader) Ledger(ctx context.Context, user usecase.AuthenticatedUser) (*usage.Ledger, error) {
	args := m.Called(ctx, user)
	ledger, _ := args.Get(0).(*usage.Ledger)
	return ledger, args.Error(1)
}

type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Process(ctx context.Context, payload []byte, signature string) (*usecase.ProcessOutcome, error) {
	args := m.Called(ctx, payload, signature)
	outcome, _ := args.Get(0).(*usecase.ProcessOutcome)
	return outcome, args.Error(1)
}

var testUser = usecase.AuthenticatedUser{ID: testUserID, Email: testEmail, Name: "Ana Souza"}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           testUserID,
		"email":         testEmail,
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{"full_name": "Ana Souza"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

// newTestEcho mounts the handlers behind the JWT middleware the way the
// server does
func newTestEcho(sub *SubscriptionHandler, usageHandler *UsageHandler, webhook *WebhookHandler) *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()

	if webhook != nil {
		e.POST("/stripe-webhook", webhook.HandleWebhook)
	}

	protected := e.Group("", auth.JWTMiddleware(auth.JWTConfig{Secret: testSecret, Logger: zap.NewNop()}))
	if sub != nil {
		protected.POST("/check-subscription", sub.CheckSubscription)
		protected.GET("/me", sub.Me)
		protected.GET("/me/entitlements", sub.Entitlements)
	}
	if usageHandler != nil {
		protected.GET("/me/usage", usageHandler.List)
		protected.GET("/me/usage/:feature/:window", usageHandler.Get)
		protected.POST("/me/usage/:feature/:window", usageHandler.Consume)
	}
	return e
}

func serve(t *testing.T, e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func resolvedSet(t *testing.T, tier entity.Tier) entitlement.Set {
	t.Helper()
	tables, err := entitlement.DefaultTables()
	require.NoError(t, err)
	return entitlement.NewResolver(tables).Resolve(tier)
}
