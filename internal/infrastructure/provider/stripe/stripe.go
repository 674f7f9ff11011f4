package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
	"go.uber.org/zap"
)

const metadataUserID = "user_id"

// Config holds the Stripe credentials and transport settings
type Config struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	// APIURL overrides the API base URL, used against stripe-mock and in tests
	APIURL     string
	HTTPClient *http.Client
}

// StripeProvider implements BillingProvider for Stripe
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProvider creates a new Stripe provider with its own API client.
// Network retries are disabled; the webhook sender retries instead.
func NewStripeProvider(cfg Config, logger *zap.Logger) *StripeProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &StripeProvider{
		api:           client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

var _ provider.BillingProvider = (*StripeProvider)(nil)

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return string(provider.ProviderTypeStripe)
}

// VerifyEvent checks the Stripe-Signature header and decodes the event
func (s *StripeProvider) VerifyEvent(payload []byte, signature string) (*provider.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Data == nil {
		return nil, fmt.Errorf("%w: missing id or data", domainErrors.ErrMalformedPayload)
	}

	out := &provider.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	out.Payload, err = decodePayload(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domainErrors.ErrMalformedPayload, event.Type, err)
	}
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func decodePayload(event stripe.Event) (provider.Payload, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, err
		}
		return checkoutFromStripe(&session), nil

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, err
		}
		return &provider.SubscriptionChanged{
			Action:       subscriptionAction(event.Type),
			Subscription: *subscriptionFromStripe(&sub),
		}, nil

	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentSucceeded:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, err
		}
		p := provider.InvoicePaid(invoiceRefs(&invoice))
		return &p, nil

	case stripe.EventTypeInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, err
		}
		p := provider.InvoicePaymentFailed(invoiceRefs(&invoice))
		return &p, nil

	default:
		return &provider.Unrecognized{Type: string(event.Type)}, nil
	}
}

func subscriptionAction(t stripe.EventType) provider.SubscriptionAction {
	switch t {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return provider.SubscriptionCreated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return provider.SubscriptionDeleted
	default:
		return provider.SubscriptionUpdated
	}
}

func checkoutFromStripe(session *stripe.CheckoutSession) *provider.CheckoutCompleted {
	c := &provider.CheckoutCompleted{
		SessionID:     session.ID,
		CustomerEmail: session.CustomerEmail,
		UserID:        session.ClientReferenceID,
	}
	if c.CustomerEmail == "" && session.CustomerDetails != nil {
		c.CustomerEmail = session.CustomerDetails.Email
	}
	if c.UserID == "" {
		c.UserID = session.Metadata[metadataUserID]
	}
	if session.Customer != nil {
		c.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		c.SubscriptionID = session.Subscription.ID
	}
	return c
}

// invoiceRefs has the shape shared by InvoicePaid and InvoicePaymentFailed
type invoiceRefsShape = struct {
	InvoiceID      string
	CustomerID     string
	CustomerEmail  string
	SubscriptionID string
}

func invoiceRefs(invoice *stripe.Invoice) invoiceRefsShape {
	refs := invoiceRefsShape{
		InvoiceID:     invoice.ID,
		CustomerEmail: invoice.CustomerEmail,
	}
	if invoice.Customer != nil {
		refs.CustomerID = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		refs.SubscriptionID = invoice.Subscription.ID
	}
	return refs
}

func subscriptionFromStripe(sub *stripe.Subscription) *provider.Subscription {
	out := &provider.Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		UserID:            sub.Metadata[metadataUserID],
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &end
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
		if !sub.Customer.Deleted {
			out.CustomerEmail = sub.Customer.Email
		}
	}
	return out
}

// GetSubscription fetches a subscription with its customer expanded
func (s *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("customer")

	sub, err := s.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		s.logger.Error("Failed to fetch Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, &domainErrors.ProviderError{Provider: s.GetProviderName(), Op: "get subscription", Cause: err}
	}
	return subscriptionFromStripe(sub), nil
}

// GetCustomerEmail resolves a customer id to its profile email
func (s *StripeProvider) GetCustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := s.api.Customers.Get(customerID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return "", fmt.Errorf("%w: %s", domainErrors.ErrCustomerNotFound, customerID)
		}
		s.logger.Error("Failed to fetch Stripe customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return "", &domainErrors.ProviderError{Provider: s.GetProviderName(), Op: "get customer", Cause: err}
	}
	if cust.Deleted {
		return "", fmt.Errorf("%w: %s is deleted", domainErrors.ErrCustomerNotFound, customerID)
	}
	return cust.Email, nil
}

// FindActiveSubscriptionByEmail scans every customer with the email for an
// active or trialing subscription
func (s *StripeProvider) FindActiveSubscriptionByEmail(ctx context.Context, email string) (*provider.Subscription, error) {
	custParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	custParams.Context = ctx
	custParams.Limit = stripe.Int64(10)

	customers := s.api.Customers.List(custParams)
	for customers.Next() {
		cust := customers.Customer()

		subParams := &stripe.SubscriptionListParams{
			Customer: stripe.String(cust.ID),
			Status:   stripe.String("all"),
		}
		subParams.Context = ctx

		subs := s.api.Subscriptions.List(subParams)
		for subs.Next() {
			sub := subs.Subscription()
			if sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing {
				out := subscriptionFromStripe(sub)
				out.CustomerID = cust.ID
				out.CustomerEmail = cust.Email
				return out, nil
			}
		}
		if err := subs.Err(); err != nil {
			return nil, &domainErrors.ProviderError{Provider: s.GetProviderName(), Op: "list subscriptions", Cause: err}
		}
	}
	if err := customers.Err(); err != nil {
		return nil, &domainErrors.ProviderError{Provider: s.GetProviderName(), Op: "list customers", Cause: err}
	}
	return nil, nil
}
