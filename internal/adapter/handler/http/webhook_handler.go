package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	pkgerrors "github.com/wekeepgrowing/medvoa-backend/pkg/errors"
	"go.uber.org/zap"
)

// maxWebhookBodyBytes bounds the webhook body read
const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	logger    *zap.Logger
	processor EventProcessor
}

func NewWebhookHandler(logger *zap.Logger, processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		processor: processor,
	}
}

// HandleWebhook verifies and applies one Stripe delivery. Any 5xx makes
// Stripe redeliver the same event later.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return pkgerrors.WriteJSON(c, pkgerrors.InvalidArgument("Error reading request body", err))
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	outcome, err := h.processor.Process(c.Request().Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			h.logger.Warn("Rejected webhook with invalid signature", zap.Error(err))
			return pkgerrors.WriteJSON(c, pkgerrors.InvalidArgument("Invalid signature", err))
		case errors.Is(err, domainErrors.ErrMalformedPayload):
			h.logger.Warn("Rejected malformed webhook payload", zap.Error(err))
			return pkgerrors.WriteJSON(c, pkgerrors.InvalidArgument("Malformed payload", err))
		default:
			pkgerrors.LogError(h.logger, err, "Webhook processing failed")
			return pkgerrors.WriteJSON(c, pkgerrors.Unavailable("webhook processing failed", err))
		}
	}

	h.logger.Info("Webhook acknowledged",
		zap.String("event_id", outcome.EventID),
		zap.String("event_type", outcome.EventType),
		zap.String("result", string(outcome.Result)))

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
