package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"github.com/wekeepgrowing/medvoa-backend/pkg/messaging"
	"go.uber.org/zap"
)

// ProcessResult is how a verified webhook delivery was handled.
type ProcessResult string

const (
	ResultProcessed ProcessResult = "processed"
	ResultDuplicate ProcessResult = "duplicate"
	// ResultIgnored covers unrecognized event types and events whose
	// subscriber email cannot be resolved
	ResultIgnored ProcessResult = "ignored"
)

// ProcessOutcome describes one handled delivery
type ProcessOutcome struct {
	EventID   string
	EventType string
	Result    ProcessResult
	Record    *entity.SubscriptionRecord
}

// ProcessorOption configures a WebhookProcessor
type ProcessorOption func(*WebhookProcessor)

// WithSnapshotCache invalidates cached query snapshots after each commit.
func WithSnapshotCache(cache SnapshotCache) ProcessorOption {
	return func(p *WebhookProcessor) { p.cache = cache }
}

// WithPublisher announces each committed snapshot.
func WithPublisher(publisher messaging.Publisher) ProcessorOption {
	return func(p *WebhookProcessor) { p.publisher = publisher }
}

// WithProcessorClock overrides the clock used for updated_at.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *WebhookProcessor) { p.now = now }
}

// WebhookProcessor is the only writer of canonical subscription records.
type WebhookProcessor struct {
	provider  provider.BillingProvider
	events    repository.ProcessedEventRepository
	uow       repository.UnitOfWork
	cache     SnapshotCache
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewWebhookProcessor creates a new webhook processor
func NewWebhookProcessor(
	billing provider.BillingProvider,
	events repository.ProcessedEventRepository,
	uow repository.UnitOfWork,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *WebhookProcessor {
	p := &WebhookProcessor{
		provider: billing,
		events:   events,
		uow:      uow,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process verifies and applies one webhook delivery. Returned errors
// wrapping ErrInvalidSignature or ErrMalformedPayload are terminal; any
// other error means the event was not recorded and the provider should
// redeliver it.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, signature string) (*ProcessOutcome, error) {
	event, err := p.provider.VerifyEvent(payload, signature)
	if err != nil {
		p.logger.Warn("Rejected webhook delivery", zap.Error(err))
		return nil, err
	}

	outcome := &ProcessOutcome{EventID: event.ID, EventType: event.Type}
	log := p.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	processed, err := p.events.Exists(ctx, event.ID)
	if err != nil {
		log.Error("Failed to check idempotency ledger", zap.Error(err))
		return nil, fmt.Errorf("failed to check processed event: %w", err)
	}
	if processed {
		log.Info("Duplicate webhook delivery acknowledged")
		outcome.Result = ResultDuplicate
		return outcome, nil
	}

	input, err := p.buildRecordInput(ctx, event)
	switch {
	case errors.Is(err, errUnrecognizedEvent):
		log.Info("Ignoring unhandled event type")
		outcome.Result = ResultIgnored
		return outcome, nil
	case errors.Is(err, domainErrors.ErrEmailUnresolved):
		log.Warn("Ignoring event without resolvable subscriber email", zap.Error(err))
		outcome.Result = ResultIgnored
		return outcome, nil
	case err != nil:
		log.Error("Failed to build subscription snapshot", zap.Error(err))
		return nil, err
	}

	record := entity.NewSubscriptionRecord(input, p.now())

	err = p.uow.WithinTransaction(ctx, func(subscribers repository.SubscriberRepository, events repository.ProcessedEventRepository) error {
		existing, err := subscribers.GetByEmail(ctx, record.Email)
		if err != nil {
			return err
		}
		record.PreserveUserID(existing)
		if err := subscribers.Upsert(ctx, record); err != nil {
			return err
		}
		return events.Insert(ctx, event.ID, event.Type)
	})
	if errors.Is(err, domainErrors.ErrDuplicateEvent) {
		log.Info("Concurrent duplicate delivery rolled back")
		outcome.Result = ResultDuplicate
		return outcome, nil
	}
	if err != nil {
		log.Error("Failed to commit subscription snapshot",
			zap.String("email", record.Email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to commit event %s: %w", event.ID, err)
	}

	log.Info("Subscription snapshot committed",
		zap.String("email", record.Email),
		zap.String("status", string(record.Status)),
		zap.String("tier", string(record.Tier)))

	p.afterCommit(ctx, event, record)

	outcome.Result = ResultProcessed
	outcome.Record = record
	return outcome, nil
}

// afterCommit runs best-effort side effects that never fail the delivery.
func (p *WebhookProcessor) afterCommit(ctx context.Context, event *provider.Event, record *entity.SubscriptionRecord) {
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, record.Email); err != nil {
			p.logger.Warn("Failed to invalidate snapshot cache",
				zap.String("email", record.Email),
				zap.Error(err))
		}
	}
	if p.publisher != nil {
		msg := SubscriptionChangedMessage{
			EventID:          event.ID,
			EventType:        event.Type,
			Email:            record.Email,
			UserID:           record.UserID,
			Status:           record.Status,
			Tier:             record.Tier,
			CurrentPeriodEnd: record.CurrentPeriodEnd,
			ChangedAt:        record.UpdatedAt,
		}
		if err := p.publisher.Publish(ctx, messaging.ChannelSubscriptionChanged, msg); err != nil {
			p.logger.Warn("Failed to publish subscription change",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
}

var errUnrecognizedEvent = errors.New("unrecognized event")

func (p *WebhookProcessor) buildRecordInput(ctx context.Context, event *provider.Event) (entity.RecordInput, error) {
	switch payload := event.Payload.(type) {
	case *provider.CheckoutCompleted:
		return p.fromCheckout(ctx, payload)
	case *provider.SubscriptionChanged:
		return p.fromSubscription(ctx, &payload.Subscription)
	case *provider.InvoicePaid:
		return p.fromInvoicePaid(ctx, payload)
	case *provider.InvoicePaymentFailed:
		return p.fromInvoiceFailed(ctx, payload)
	case *provider.Unrecognized:
		return entity.RecordInput{}, errUnrecognizedEvent
	default:
		return entity.RecordInput{}, fmt.Errorf("%w: payload %T", errUnrecognizedEvent, payload)
	}
}

func (p *WebhookProcessor) fromCheckout(ctx context.Context, c *provider.CheckoutCompleted) (entity.RecordInput, error) {
	in := entity.RecordInput{
		UserID:                 validUserID(c.UserID),
		ProviderCustomerID:     c.CustomerID,
		ProviderSubscriptionID: c.SubscriptionID,
		Status:                 entity.StatusActive,
	}

	if c.SubscriptionID != "" {
		sub, err := p.provider.GetSubscription(ctx, c.SubscriptionID)
		if err != nil {
			return entity.RecordInput{}, fmt.Errorf("failed to fetch subscription %s: %w", c.SubscriptionID, err)
		}
		in.Status = entity.NormalizeStatus(sub.Status)
		in.CurrentPeriodEnd = sub.CurrentPeriodEnd
		in.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if in.ProviderCustomerID == "" {
			in.ProviderCustomerID = sub.CustomerID
		}
		if in.UserID == "" {
			in.UserID = validUserID(sub.UserID)
		}
	}

	email, err := p.resolveEmail(ctx, c.CustomerEmail, in.ProviderCustomerID)
	if err != nil {
		return entity.RecordInput{}, err
	}
	in.Email = email
	return in, nil
}

func (p *WebhookProcessor) fromSubscription(ctx context.Context, sub *provider.Subscription) (entity.RecordInput, error) {
	email, err := p.resolveEmail(ctx, sub.CustomerEmail, sub.CustomerID)
	if err != nil {
		return entity.RecordInput{}, err
	}
	return entity.RecordInput{
		Email:                  email,
		UserID:                 validUserID(sub.UserID),
		ProviderCustomerID:     sub.CustomerID,
		ProviderSubscriptionID: sub.ID,
		Status:                 entity.NormalizeStatus(sub.Status),
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}, nil
}

func (p *WebhookProcessor) fromInvoicePaid(ctx context.Context, inv *provider.InvoicePaid) (entity.RecordInput, error) {
	if inv.SubscriptionID != "" {
		sub, err := p.provider.GetSubscription(ctx, inv.SubscriptionID)
		if err != nil {
			return entity.RecordInput{}, fmt.Errorf("failed to fetch subscription %s: %w", inv.SubscriptionID, err)
		}
		if sub.CustomerEmail == "" {
			sub.CustomerEmail = inv.CustomerEmail
		}
		if sub.CustomerID == "" {
			sub.CustomerID = inv.CustomerID
		}
		return p.fromSubscription(ctx, sub)
	}

	email, err := p.resolveEmail(ctx, inv.CustomerEmail, inv.CustomerID)
	if err != nil {
		return entity.RecordInput{}, err
	}
	return entity.RecordInput{
		Email:              email,
		ProviderCustomerID: inv.CustomerID,
		Status:             entity.StatusActive,
	}, nil
}

// fromInvoiceFailed always downgrades, whatever the subscription says.
func (p *WebhookProcessor) fromInvoiceFailed(ctx context.Context, inv *provider.InvoicePaymentFailed) (entity.RecordInput, error) {
	email, err := p.resolveEmail(ctx, inv.CustomerEmail, inv.CustomerID)
	if err != nil {
		return entity.RecordInput{}, err
	}
	return entity.RecordInput{
		Email:                  email,
		ProviderCustomerID:     inv.CustomerID,
		ProviderSubscriptionID: inv.SubscriptionID,
		Status:                 entity.StatusPastDue,
	}, nil
}

// resolveEmail prefers the email carried by the event and otherwise looks
// up the customer profile.
func (p *WebhookProcessor) resolveEmail(ctx context.Context, email, customerID string) (string, error) {
	if e := entity.NormalizeEmail(email); e != "" {
		return e, nil
	}
	if customerID == "" {
		return "", fmt.Errorf("%w: no email and no customer id", domainErrors.ErrEmailUnresolved)
	}

	e, err := p.provider.GetCustomerEmail(ctx, customerID)
	if errors.Is(err, domainErrors.ErrCustomerNotFound) {
		return "", fmt.Errorf("%w: customer %s: %v", domainErrors.ErrEmailUnresolved, customerID, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve customer %s: %w", customerID, err)
	}
	if e = entity.NormalizeEmail(e); e == "" {
		return "", fmt.Errorf("%w: customer %s has no email", domainErrors.ErrEmailUnresolved, customerID)
	}
	return e, nil
}

// validUserID drops references that are not datastore user ids.
func validUserID(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}
