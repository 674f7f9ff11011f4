package http

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"github.com/wekeepgrowing/medvoa-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
	"github.com/wekeepgrowing/medvoa-backend/internal/usecase"
)

// SubscriptionReader is the query side used by the subscription handler
type SubscriptionReader interface {
	GetSnapshot(ctx context.Context, user usecase.AuthenticatedUser) (entity.SubscriptionSnapshot, error)
	LinkUser(ctx context.Context, email, userID string) (bool, error)
}

// EntitlementReader resolves entitlement sets and usage ledgers
type EntitlementReader interface {
	Entitlements(ctx context.Context, user usecase.AuthenticatedUser) (entity.SubscriptionSnapshot, entitlement.Set, error)
	Ledger(ctx context.Context, user usecase.AuthenticatedUser) (*usage.Ledger, error)
}

// EventProcessor consumes signed provider webhooks
type EventProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (*usecase.ProcessOutcome, error)
}

func authenticated(u *auth.AuthUser) usecase.AuthenticatedUser {
	return usecase.AuthenticatedUser{ID: u.UserID, Email: u.Email, Name: u.Name}
}

// RequestValidator plugs go-playground/validator into echo's c.Validate
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
