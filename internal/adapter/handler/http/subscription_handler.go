package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/middleware/auth"
	pkgerrors "github.com/wekeepgrowing/medvoa-backend/pkg/errors"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	logger       *zap.Logger
	query        SubscriptionReader
	entitlements EntitlementReader
}

func NewSubscriptionHandler(logger *zap.Logger, query SubscriptionReader, entitlements EntitlementReader) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:       logger,
		query:        query,
		entitlements: entitlements,
	}
}

// CheckSubscriptionResponse is the body of POST /check-subscription
type CheckSubscriptionResponse struct {
	Subscribed       bool        `json:"subscribed"`
	SubscriptionTier entity.Tier `json:"subscription_tier"`
	SubscriptionEnd  *time.Time  `json:"subscription_end"`
}

// MeResponse is the body of GET /me
type MeResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	IsPremium          bool                      `json:"isPremium"`
	Plan               entity.Tier               `json:"plan"`
	SubscriptionStatus entity.SubscriptionStatus `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time                `json:"current_period_end"`
}

// CheckSubscription reports the caller's tier
func (h *SubscriptionHandler) CheckSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if user == nil {
		return err
	}

	snapshot, err := h.query.GetSnapshot(c.Request().Context(), authenticated(user))
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to check subscription", zap.String("user_id", user.UserID))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("subscription lookup failed", err))
	}

	return c.JSON(http.StatusOK, CheckSubscriptionResponse{
		Subscribed:       snapshot.IsPremium(),
		SubscriptionTier: snapshot.Tier,
		SubscriptionEnd:  snapshot.CurrentPeriodEnd,
	})
}

// Me returns the caller's profile merged with the subscription snapshot.
// It also binds the caller's user id to a record created before signup.
func (h *SubscriptionHandler) Me(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if user == nil {
		return err
	}
	ctx := c.Request().Context()

	if linked, err := h.query.LinkUser(ctx, user.Email, user.UserID); err != nil {
		h.logger.Warn("Failed to link user to subscriber record",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	} else if linked {
		h.logger.Info("Linked user to subscriber record", zap.String("user_id", user.UserID))
	}

	snapshot, err := h.query.GetSnapshot(ctx, authenticated(user))
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to load profile subscription", zap.String("user_id", user.UserID))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("subscription lookup failed", err))
	}

	return c.JSON(http.StatusOK, MeResponse{
		ID:                 user.UserID,
		Name:               user.Name,
		Email:              user.Email,
		IsPremium:          snapshot.IsPremium(),
		Plan:               snapshot.Tier,
		SubscriptionStatus: snapshot.Status,
		CurrentPeriodEnd:   snapshot.CurrentPeriodEnd,
	})
}

// Entitlements returns the flattened entitlement set of the caller's tier
func (h *SubscriptionHandler) Entitlements(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if user == nil {
		return err
	}

	snapshot, set, err := h.entitlements.Entitlements(c.Request().Context(), authenticated(user))
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to resolve entitlements", zap.String("user_id", user.UserID))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("entitlement lookup failed", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tier":         snapshot.Tier,
		"entitlements": set.Flatten(),
	})
}
