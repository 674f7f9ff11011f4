package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"github.com/wekeepgrowing/medvoa-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
	pkgerrors "github.com/wekeepgrowing/medvoa-backend/pkg/errors"
	"go.uber.org/zap"
)

type UsageHandler struct {
	logger       *zap.Logger
	entitlements EntitlementReader
}

func NewUsageHandler(logger *zap.Logger, entitlements EntitlementReader) *UsageHandler {
	return &UsageHandler{
		logger:       logger,
		entitlements: entitlements,
	}
}

type usageParams struct {
	Feature string `param:"feature" validate:"required,max=64"`
	Window  string `param:"window" validate:"required,oneof=daily monthly none"`
}

// ledgerFor binds the path, validates it and resolves the caller's ledger.
// A nil ledger means the response was already written.
func (h *UsageHandler) ledgerFor(c echo.Context, withParams bool) (*usage.Ledger, *usageParams, error) {
	user, err := auth.RequireAuth(c)
	if user == nil {
		return nil, nil, err
	}

	var params usageParams
	if withParams {
		if err := c.Bind(&params); err != nil {
			return nil, nil, pkgerrors.WriteJSON(c, pkgerrors.InvalidArgument("invalid path", err))
		}
		if err := c.Validate(&params); err != nil {
			return nil, nil, pkgerrors.WriteJSON(c, pkgerrors.InvalidArgument("invalid feature or window", err))
		}
	}

	ledger, err := h.entitlements.Ledger(c.Request().Context(), authenticated(user))
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to resolve usage ledger", zap.String("user_id", user.UserID))
		return nil, nil, pkgerrors.WriteJSON(c, pkgerrors.Unavailable("entitlement lookup failed", err))
	}

	if withParams && !ledger.Declares(params.Feature, entitlement.Window(params.Window)) {
		return nil, nil, pkgerrors.WriteJSON(c, pkgerrors.NotFound("no limit declared for "+entitlement.LimitKey(params.Feature, entitlement.Window(params.Window)), nil))
	}
	return ledger, &params, nil
}

// List returns the state of every limit of the caller's tier
func (h *UsageHandler) List(c echo.Context) error {
	ledger, _, err := h.ledgerFor(c, false)
	if ledger == nil {
		return err
	}

	statuses, err := ledger.Snapshot(c.Request().Context())
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to read usage counters")
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("usage lookup failed", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tier":  ledger.Tier(),
		"usage": statuses,
	})
}

// Get returns the gate state of one feature window
func (h *UsageHandler) Get(c echo.Context) error {
	ledger, params, err := h.ledgerFor(c, true)
	if ledger == nil {
		return err
	}

	status, err := ledger.Status(c.Request().Context(), params.Feature, entitlement.Window(params.Window))
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to read usage counter", zap.String("feature", params.Feature))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("usage lookup failed", err))
	}
	return c.JSON(http.StatusOK, status)
}

// Consume records one use when the gate is open and rejects it otherwise
func (h *UsageHandler) Consume(c echo.Context) error {
	ledger, params, err := h.ledgerFor(c, true)
	if ledger == nil {
		return err
	}
	ctx := c.Request().Context()
	window := entitlement.Window(params.Window)

	status, err := ledger.Status(ctx, params.Feature, window)
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to read usage counter", zap.String("feature", params.Feature))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("usage lookup failed", err))
	}
	if !status.CanUse {
		return pkgerrors.WriteJSON(c, pkgerrors.QuotaExceeded(
			"usage limit reached for "+entitlement.LimitKey(params.Feature, window), nil))
	}

	status, err = ledger.Increment(ctx, params.Feature, window)
	if err != nil {
		pkgerrors.LogError(h.logger, err, "Failed to increment usage counter", zap.String("feature", params.Feature))
		return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("usage update failed", err))
	}
	return c.JSON(http.StatusOK, status)
}
