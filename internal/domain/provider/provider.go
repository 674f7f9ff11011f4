package provider

import (
	"context"
	"time"
)

// BillingProvider is the payment-processor boundary used by the webhook
// processor and the query fallback.
type BillingProvider interface {
	// VerifyEvent checks the signature over the raw body and decodes the event.
	// Errors wrap domain ErrInvalidSignature or ErrMalformedPayload.
	VerifyEvent(payload []byte, signature string) (*Event, error)

	// GetSubscription fetches the current state of a subscription
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// GetCustomerEmail resolves a provider customer id to its profile email
	GetCustomerEmail(ctx context.Context, customerID string) (string, error)

	// FindActiveSubscriptionByEmail returns the first active or trialing
	// subscription of any customer with this email, or nil when there is none
	FindActiveSubscriptionByEmail(ctx context.Context, email string) (*Subscription, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// ProviderType represents the type of payment provider
type ProviderType string

const (
	ProviderTypeStripe ProviderType = "stripe"
)

// Event is a verified provider event. Payload is one of the concrete
// payload types below.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Payload Payload
}

// Payload is the closed set of event kinds the processor distinguishes.
type Payload interface {
	isPayload()
}

// CheckoutCompleted is emitted when a hosted checkout finishes.
type CheckoutCompleted struct {
	SessionID      string
	CustomerID     string
	CustomerEmail  string
	SubscriptionID string
	// UserID is the datastore user id passed as client reference, if any
	UserID string
}

// SubscriptionAction distinguishes the three subscription lifecycle events.
type SubscriptionAction string

const (
	SubscriptionCreated SubscriptionAction = "created"
	SubscriptionUpdated SubscriptionAction = "updated"
	SubscriptionDeleted SubscriptionAction = "deleted"
)

// SubscriptionChanged carries the subscription object of a lifecycle event.
type SubscriptionChanged struct {
	Action       SubscriptionAction
	Subscription Subscription
}

// InvoicePaid is emitted for invoice.paid and invoice.payment_succeeded.
type InvoicePaid struct {
	InvoiceID      string
	CustomerID     string
	CustomerEmail  string
	SubscriptionID string
}

// InvoicePaymentFailed is emitted when a charge for an invoice fails.
type InvoicePaymentFailed struct {
	InvoiceID      string
	CustomerID     string
	CustomerEmail  string
	SubscriptionID string
}

// Unrecognized is any event type this system does not act on.
type Unrecognized struct {
	Type string
}

func (*CheckoutCompleted) isPayload()    {}
func (*SubscriptionChanged) isPayload()  {}
func (*InvoicePaid) isPayload()          {}
func (*InvoicePaymentFailed) isPayload() {}
func (*Unrecognized) isPayload()         {}

// Subscription is the provider-neutral view of a subscription object.
type Subscription struct {
	ID                string
	CustomerID        string
	CustomerEmail     string
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	UserID            string
}
